package core

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/keshava/maro/pkg/proxy/driver"
	"github.com/keshava/maro/pkg/proxy/registry"
	"github.com/keshava/maro/pkg/proxy/types"
)

// DegradedFlag is the shared, lock-free "proxy is below minimal_peers"
// marker RejoinController raises and SessionRouter's peer-existence
// gate consults (spec.md §4.3 "the controller marks the proxy as
// degraded").
type DegradedFlag struct {
	v atomic.Bool
}

// NewDegradedFlag constructs a fresh, unset DegradedFlag.
func NewDegradedFlag() *DegradedFlag { return &DegradedFlag{} }

func (d *DegradedFlag) Set(value bool) { d.v.Store(value) }
func (d *DegradedFlag) IsSet() bool    { return d.v.Load() }

// RejoinController implements spec.md §4.3: on a fixed cadence it
// reconciles the onboard view against the registry, dispatching any
// RejoinCache entries for newly-(re)connected peers and setting the
// DegradedFlag when a peer-type's census drops below its minimum.
type RejoinController struct {
	store    registry.Store
	drv      driver.Driver
	log      types.Logger
	onboard  *Onboard
	rejoin   *RejoinCache // nil when disabled
	router   *SessionRouter
	degraded *DegradedFlag

	peerInfo     map[string]types.PeerInfo
	minimalPeers map[string]int
	frequency    time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRejoinController builds a controller. router is used only to
// redispatch RejoinCache entries via Isend once their target peer comes
// back onboard.
func NewRejoinController(store registry.Store, drv driver.Driver, log types.Logger, onboard *Onboard, rejoin *RejoinCache, router *SessionRouter, degraded *DegradedFlag, peerInfo map[string]types.PeerInfo, minimalPeers map[string]int, frequency time.Duration) *RejoinController {
	return &RejoinController{
		store:        store,
		drv:          drv,
		log:          log,
		onboard:      onboard,
		rejoin:       rejoin,
		router:       router,
		degraded:     degraded,
		peerInfo:     peerInfo,
		minimalPeers: minimalPeers,
		frequency:    frequency,
	}
}

// Start begins the periodic reconcile loop on its own goroutine; each
// pass runs one frequency after the previous pass finished. A pass whose
// registry reads failed still counts as the previous pass.
func (c *RejoinController) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx)
}

// Stop cancels the reconcile loop and waits for it to exit.
func (c *RejoinController) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *RejoinController) loop(ctx context.Context) {
	defer close(c.done)
	timer := time.NewTimer(c.frequency)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			c.Reconcile(ctx)
			timer.Reset(c.frequency)
		}
	}
}

// Reconcile runs one pass of spec.md §4.3's algorithm. A registry read
// error is logged and that peer type is skipped for this pass;
// RejoinController only fails the proxy (via the DegradedFlag) when
// minimal_peers is breached,
// per spec.md §7's policy.
func (c *RejoinController) Reconcile(ctx context.Context) {
	anyBelowMinimum := false

	for peerType, info := range c.peerInfo {
		registryView, err := c.store.HGetAll(ctx, info.HashTableName)
		if err != nil {
			c.log.Errorf("rejoin: failed reading registry for %s: %v", info.HashTableName, err)
			continue
		}

		decoded := make(map[string]string, len(registryView))
		for name, raw := range registryView {
			var addr string
			if err := json.Unmarshal(raw, &addr); err != nil {
				c.log.Errorf("rejoin: undecodable address for %s: %v", name, err)
				continue
			}
			decoded[name] = addr
		}

		onboardNames := c.onboard.NamesForType(peerType)
		onboardAddrs := c.onboard.Addresses(onboardNames)

		var newNames, restarted []string
		connectSet := make(map[string]string)
		for name, addr := range decoded {
			old, isOnboard := onboardAddrs[name]
			if !isOnboard {
				newNames = append(newNames, name)
				connectSet[name] = addr
			} else if old != addr {
				restarted = append(restarted, name)
				connectSet[name] = addr
			}
		}

		var exited []string
		disconnectSet := make(map[string]string)
		for name, addr := range onboardAddrs {
			if _, present := decoded[name]; !present {
				exited = append(exited, name)
				disconnectSet[name] = addr
			}
		}

		if len(connectSet) > 0 {
			if err := c.drv.Connect(connectSet); err != nil {
				c.log.Errorf("rejoin: failed connecting %v: %v", connectSet, err)
			}
		}
		for _, name := range newNames {
			c.onboard.Add(peerType, name, decoded[name])
		}
		for _, name := range restarted {
			// Open Question (b): drain the RejoinCache for this name
			// against its new address before disconnecting the stale
			// one, so a replayed message cannot race the old entry's
			// removal from PeerSockets.
			c.drainRejoinCache(name)
			c.onboard.UpdateAddress(name, decoded[name])
			stale := map[string]string{name: onboardAddrs[name]}
			if err := c.drv.Disconnect(stale); err != nil {
				c.log.Errorf("rejoin: failed disconnecting stale %s: %v", name, err)
			}
			// Disconnect drops the peer by name, so restore the route to
			// its new address.
			if err := c.drv.Connect(map[string]string{name: decoded[name]}); err != nil {
				c.log.Errorf("rejoin: failed reconnecting %s: %v", name, err)
			}
		}

		for _, name := range exited {
			if err := c.drv.Disconnect(map[string]string{name: disconnectSet[name]}); err != nil {
				c.log.Errorf("rejoin: failed disconnecting %s: %v", name, err)
			}
			c.onboard.Remove(peerType, name)
		}

		for _, name := range newNames {
			c.drainRejoinCache(name)
		}

		if min, ok := c.minimalPeers[peerType]; ok && c.onboard.CountForType(peerType) < min {
			anyBelowMinimum = true
		}
	}

	c.degraded.Set(anyBelowMinimum)
}

// drainRejoinCache flushes every cache entry for name, in FIFO order,
// dispatching each via Isend (spec.md §4.3 step 3).
func (c *RejoinController) drainRejoinCache(name string) {
	if c.rejoin == nil || c.router == nil {
		return
	}
	for _, msg := range c.rejoin.DrainFor(name) {
		if _, err := c.router.Isend(msg); err != nil {
			c.log.Errorf("rejoin: failed redispatching cached message to %s: %v", name, err)
		}
	}
}
