package driver

import (
	"sync"

	"github.com/keshava/maro/pkg/proxy/helper"
	"github.com/keshava/maro/pkg/proxy/types"
)

// broker is a process-wide switchboard of address -> inbox channel, so
// that independent LoopbackDriver instances within the same test binary
// can exchange messages without a real transport. Grounded on the
// teacher's test.TestInvoker pattern of providing an in-process stand-in
// for a production collaborator (pkg/mcast test helpers spawn goroutines
// through a test-scoped Invoker rather than the production one).
var broker = struct {
	mu      sync.Mutex
	inboxes map[string]chan types.Message
}{inboxes: make(map[string]chan types.Message)}

func registerInbox(address string) chan types.Message {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	ch := make(chan types.Message, 256)
	broker.inboxes[address] = ch
	return ch
}

func deliver(address string, msg types.Message) bool {
	broker.mu.Lock()
	ch, ok := broker.inboxes[address]
	broker.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		// Slow consumer: fall back to a blocking send in its own
		// goroutine rather than dropping the message, since the
		// loopback driver carries no flow control of its own.
		go func() { ch <- msg }()
		return true
	}
}

func unregisterInbox(address string) {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	if ch, ok := broker.inboxes[address]; ok {
		close(ch)
		delete(broker.inboxes, address)
	}
}

// LoopbackDriver is an in-process Driver: every connected peer is
// another LoopbackDriver instance in the same process, addressed by a
// generated token. There is no real network hop, which is exactly what
// makes it useful for exercising SessionRouter/RejoinController logic in
// tests without standing up relt or Redis.
type LoopbackDriver struct {
	address string
	inbox   chan types.Message

	mu    sync.Mutex
	peers map[string]string // name -> address
}

// NewLoopbackDriver builds a driver with a fresh address derived from
// name, so repeated runs in the same process don't collide.
func NewLoopbackDriver(name string) *LoopbackDriver {
	addr := "loopback://" + name + "-" + helper.GenerateUID()
	d := &LoopbackDriver{
		address: addr,
		peers:   make(map[string]string),
	}
	d.inbox = registerInbox(addr)
	return d
}

func (d *LoopbackDriver) Address() string { return d.address }

func (d *LoopbackDriver) Connect(peers map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, addr := range peers {
		d.peers[name] = addr
	}
	return nil
}

func (d *LoopbackDriver) Disconnect(peers map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name := range peers {
		delete(d.peers, name)
	}
	return nil
}

func (d *LoopbackDriver) Send(message types.Message) ([]string, error) {
	d.mu.Lock()
	addr, ok := d.peers[message.Destination]
	d.mu.Unlock()
	if !ok {
		return nil, types.ErrDriverSendFailure
	}
	if !deliver(addr, message) {
		return nil, types.ErrDriverSendFailure
	}
	return nil, nil
}

func (d *LoopbackDriver) Broadcast(message types.Message) error {
	d.mu.Lock()
	addrs := make([]string, 0, len(d.peers))
	for _, addr := range d.peers {
		addrs = append(addrs, addr)
	}
	d.mu.Unlock()
	for _, addr := range addrs {
		deliver(addr, message)
	}
	return nil
}

func (d *LoopbackDriver) Receive(continuous bool) <-chan types.Message {
	return d.inbox
}

func (d *LoopbackDriver) Close() error {
	unregisterInbox(d.address)
	return nil
}

var _ Driver = (*LoopbackDriver)(nil)
