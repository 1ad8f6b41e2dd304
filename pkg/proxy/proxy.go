// Package proxy is the public entry point: it wires Rendezvous,
// SessionRouter, RejoinController and LifecycleHooks into the single
// Proxy type an application embeds, mirroring the shape of the
// original Python module's top-level Proxy class.
package proxy

import (
	"context"
	"fmt"
	"os"

	"github.com/keshava/maro/pkg/proxy/core"
	"github.com/keshava/maro/pkg/proxy/definition"
	"github.com/keshava/maro/pkg/proxy/driver"
	"github.com/keshava/maro/pkg/proxy/helper"
	"github.com/keshava/maro/pkg/proxy/registry"
	"github.com/keshava/maro/pkg/proxy/types"
)

// Proxy is the single object an application constructs and holds for
// its lifetime: it joins the group at construction time (blocking) and
// exposes every session-messaging operation of spec.md §4.2.
type Proxy struct {
	cfg       *types.Configuration
	log       types.Logger
	store     registry.Store
	drv       driver.Driver
	onboard   *core.Onboard
	router    *core.SessionRouter
	rejoin    *core.RejoinController
	lifecycle *core.LifecycleHooks

	selfName     string
	selfHashName string
}

// New constructs a Proxy, blocking on Rendezvous.Join until census is
// reached or the retry budget is exhausted. store may be nil, in which
// case a RedisStore is dialed from cfg.Defaults' host/port.
func New(cfg *types.Configuration, store registry.Store) (*Proxy, error) {
	var log types.Logger
	if cfg.LogEnable {
		log = definition.NewDefaultLogger(cfg.ComponentType)
	} else {
		log = definition.NewNoopLogger()
	}

	selfName := helper.ResolveComponentName(cfg.ComponentType)
	selfHashName := fmt.Sprintf("%s:%s", cfg.GroupName, cfg.ComponentType)

	if store == nil {
		ctx := context.Background()
		redisStore, err := registry.NewRedisStore(ctx, cfg.Defaults.RegistryHost, cfg.Defaults.RegistryPort)
		if err != nil {
			return nil, err
		}
		store = redisStore
	}

	drv, err := driver.New(cfg.DriverType, selfName, log, cfg.DriverParams)
	if err != nil {
		return nil, err
	}

	peerInfo := make(map[string]types.PeerInfo, len(cfg.ExpectedPeers))
	for peerType, expected := range cfg.ExpectedPeers {
		peerInfo[peerType] = types.PeerInfo{
			HashTableName:  fmt.Sprintf("%s:%s", cfg.GroupName, peerType),
			ExpectedNumber: expected,
		}
	}

	onboard := core.NewOnboard()
	rendezvous := core.NewRendezvous(store, drv, log, selfName, selfHashName, peerInfo, cfg.MaxRetries, cfg.BaseRetryInterval, cfg.Defaults.DelayForSlowJoiner, cfg.EnableRejoin)

	if err := rendezvous.Join(context.Background(), onboard); err != nil {
		_ = drv.Close()
		return nil, err
	}

	var rejoinCache *core.RejoinCache
	if cfg.EnableRejoin && cfg.EnableMessageCacheForRejoin {
		rejoinCache = core.NewRejoinCache(cfg.Defaults.RejoinCacheCapacity)
	}

	degraded := core.NewDegradedFlag()
	minimalPeers := cfg.ResolvedMinimalPeers()

	router := core.NewSessionRouter(selfName, drv, log, onboard, cfg.EnableRejoin, rejoinCache, cfg.MaxWaitTimeForRejoin, minimalPeers, degraded)

	var rejoinCtrl *core.RejoinController
	if cfg.EnableRejoin {
		rejoinCtrl = core.NewRejoinController(store, drv, log, onboard, rejoinCache, router, degraded, peerInfo, minimalPeers, cfg.PeerUpdateFrequency)
		rejoinCtrl.Start()
	}

	lifecycle := core.NewLifecycleHooks(store, drv, log, selfName, selfHashName, os.Getenv("JOB_NAME"), cfg.EnableRejoin, rejoinCtrl)
	lifecycle.InstallSignalHandler()

	return &Proxy{
		cfg:          cfg,
		log:          log,
		store:        store,
		drv:          drv,
		onboard:      onboard,
		router:       router,
		rejoin:       rejoinCtrl,
		lifecycle:    lifecycle,
		selfName:     selfName,
		selfHashName: selfHashName,
	}, nil
}

// Isend fire-and-forgets message, returning the session-id(s) it was
// dispatched under.
func (p *Proxy) Isend(message types.Message) ([]string, error) { return p.router.Isend(message) }

// Send unicasts message and waits for its reply.
func (p *Proxy) Send(message types.Message) ([]types.Message, error) { return p.router.Send(message) }

// Iscatter fans a tagged session out to several destinations.
func (p *Proxy) Iscatter(tag types.Tag, sessionType types.SessionType, pairs []core.DestinationPayload, sessionID string) ([]string, error) {
	return p.router.Iscatter(tag, sessionType, pairs, sessionID)
}

// Scatter is Iscatter followed by a wait for every reply.
func (p *Proxy) Scatter(tag types.Tag, sessionType types.SessionType, pairs []core.DestinationPayload, sessionID string) ([]types.Message, error) {
	return p.router.Scatter(tag, sessionType, pairs, sessionID)
}

// Ibroadcast fire-and-forgets message to every onboard peer.
func (p *Proxy) Ibroadcast(tag types.Tag, sessionType types.SessionType, sessionID string, payload []byte) ([]string, error) {
	return p.router.Ibroadcast(tag, sessionType, sessionID, payload)
}

// Broadcast is Ibroadcast followed by a wait for every reply.
func (p *Proxy) Broadcast(tag types.Tag, sessionType types.SessionType, sessionID string, payload []byte) ([]types.Message, error) {
	return p.router.Broadcast(tag, sessionType, sessionID, payload)
}

// Reply responds to orig, retaining its session-id.
func (p *Proxy) Reply(orig types.Message, tag *types.Tag, payload []byte, ack bool) ([]string, error) {
	return p.router.Reply(orig, tag, payload, ack)
}

// Forward retargets orig to a new destination, retaining session-id and
// stage.
func (p *Proxy) Forward(orig types.Message, destination string, tag *types.Tag, payload []byte) ([]string, error) {
	return p.router.Forward(orig, destination, tag, payload)
}

// Receive exposes the raw inbound stream.
func (p *Proxy) Receive(continuous bool) <-chan types.Message { return p.router.Receive(continuous) }

// ReceiveByID waits for exactly the given session-ids.
func (p *Proxy) ReceiveByID(ids []string) ([]types.Message, error) { return p.router.ReceiveByID(ids) }

// Peers returns a snapshot of the current onboard roster, peer-type ->
// names.
func (p *Proxy) Peers() map[string][]string { return p.onboard.Snapshot() }

// GroupName returns the configured group name.
func (p *Proxy) GroupName() string { return p.cfg.GroupName }

// ComponentName returns this instance's resolved component name
// (env-overridden or generated at construction).
func (p *Proxy) ComponentName() string { return p.selfName }

// ComponentType returns the configured component type.
func (p *Proxy) ComponentType() string { return p.cfg.ComponentType }

// Shutdown deregisters self from the registry, stops the rejoin
// controller and closes the driver. Safe to call more than once.
func (p *Proxy) Shutdown(ctx context.Context) error {
	return p.lifecycle.Shutdown(ctx)
}
