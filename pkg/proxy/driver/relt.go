package driver

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jabolina/relt/pkg/relt"
	"github.com/prometheus/common/log"

	"github.com/keshava/maro/pkg/proxy/types"
)

// ReltDriver is the concrete "ZeroMQ-style" driver named in spec.md §6,
// built over the reliable group-transport library the teacher already
// depends on (pkg/mcast/core/transport.go's ReliableTransport). Each
// connected peer name is addressed by its own relt.GroupAddress; sending
// to a peer is a relt.Broadcast to that peer's group, mirroring
// transport.go's apply/Unicast/Broadcast trio. Because the underlying
// bus is publish/subscribe, Connect performs no handshake of its own —
// this is exactly the shape of transport spec.md §4.1 step 7's
// slow-joiner delay exists to compensate for.
type ReltDriver struct {
	log      types.Logger
	relt     *relt.Relt
	producer chan types.Message
	ctx      context.Context
	cancel   context.CancelFunc
	name     string

	mu    sync.Mutex
	peers map[string]string // name -> relt group address
}

// NewReltDriver starts a relt instance whose own exchange group is
// componentName, and begins polling it for incoming messages.
func NewReltDriver(componentName string, logger types.Logger) (*ReltDriver, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Exchange = relt.GroupAddress(componentName)
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &ReltDriver{
		log:      logger,
		relt:     r,
		producer: make(chan types.Message, 256),
		ctx:      ctx,
		cancel:   cancel,
		name:     componentName,
		peers:    make(map[string]string),
	}
	go d.poll()
	return d, nil
}

func (d *ReltDriver) Address() string { return string(relt.GroupAddress(d.name)) }

func (d *ReltDriver) Connect(peers map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, addr := range peers {
		d.peers[name] = addr
	}
	return nil
}

func (d *ReltDriver) Disconnect(peers map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name := range peers {
		delete(d.peers, name)
	}
	return nil
}

func (d *ReltDriver) send(address string, message types.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		d.log.Errorf("failed marshalling message %#v. %v", message, err)
		return types.ErrDriverSendFailure
	}
	err = d.relt.Broadcast(d.ctx, relt.Send{
		Address: relt.GroupAddress(address),
		Data:    data,
	})
	if err != nil {
		d.log.Errorf("failed sending to %s. %v", address, err)
		return types.ErrDriverSendFailure
	}
	return nil
}

func (d *ReltDriver) Send(message types.Message) ([]string, error) {
	d.mu.Lock()
	addr, ok := d.peers[message.Destination]
	d.mu.Unlock()
	if !ok {
		return nil, types.ErrDriverSendFailure
	}
	return nil, d.send(addr, message)
}

func (d *ReltDriver) Broadcast(message types.Message) error {
	d.mu.Lock()
	addrs := make([]string, 0, len(d.peers))
	for _, addr := range d.peers {
		addrs = append(addrs, addr)
	}
	d.mu.Unlock()
	for _, addr := range addrs {
		if err := d.send(addr, message); err != nil {
			return err
		}
	}
	return nil
}

func (d *ReltDriver) Receive(continuous bool) <-chan types.Message {
	return d.producer
}

func (d *ReltDriver) Close() error {
	d.cancel()
	return d.relt.Close()
}

// poll mirrors transport.go's poll/consume pair: drain relt's own
// channel, decode into types.Message, and republish on the driver's
// producer channel.
func (d *ReltDriver) poll() {
	listener, err := d.relt.Consume()
	if err != nil {
		log.Errorf("failed starting relt consumer. %v", err)
		return
	}
	for {
		select {
		case <-d.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			d.consume(recv)
		}
	}
}

func (d *ReltDriver) consume(recv relt.Recv) {
	if recv.Error != nil {
		d.log.Errorf("failed consuming message. %v", recv.Error)
		return
	}
	if recv.Data == nil {
		return
	}
	var m types.Message
	if err := json.Unmarshal(recv.Data, &m); err != nil {
		d.log.Errorf("failed unmarshalling message %#v. %v", recv, err)
		return
	}
	select {
	case <-d.ctx.Done():
	case d.producer <- m:
	}
}

var _ Driver = (*ReltDriver)(nil)
