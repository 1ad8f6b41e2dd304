package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/keshava/maro/pkg/proxy/driver"
	"github.com/keshava/maro/pkg/proxy/registry"
	"github.com/keshava/maro/pkg/proxy/types"
)

// Rendezvous implements spec.md §4.1: publish self to the registry,
// poll for peers with exponential backoff, resolve addresses, and
// instruct the driver to connect. A Rendezvous is used exactly once,
// at Proxy construction.
type Rendezvous struct {
	store         registry.Store
	drv           driver.Driver
	log           types.Logger
	selfName      string
	selfHashName  string
	peerInfo      map[string]types.PeerInfo
	maxRetries    int
	baseRetry     time.Duration
	slowJoinDelay time.Duration
	enableRejoin  bool
}

// NewRendezvous builds a Rendezvous for the given component.
func NewRendezvous(store registry.Store, drv driver.Driver, log types.Logger, selfName, selfHashName string, peerInfo map[string]types.PeerInfo, maxRetries int, baseRetry, slowJoinDelay time.Duration, enableRejoin bool) *Rendezvous {
	return &Rendezvous{
		store:         store,
		drv:           drv,
		log:           log,
		selfName:      selfName,
		selfHashName:  selfHashName,
		peerInfo:      peerInfo,
		maxRetries:    maxRetries,
		baseRetry:     baseRetry,
		slowJoinDelay: slowJoinDelay,
		enableRejoin:  enableRejoin,
	}
}

// Join runs the full algorithm of spec.md §4.1 and populates onboard.
// It blocks until every expected peer-type's census is met or retries
// are exhausted, in which case it returns types.ErrInformationIncomplete.
func (r *Rendezvous) Join(ctx context.Context, onboard *Onboard) error {
	if err := r.register(ctx); err != nil {
		return err
	}

	for peerType, info := range r.peerInfo {
		names, err := r.pollForCensus(ctx, info)
		if err != nil {
			return err
		}

		addresses, err := r.resolveAddresses(ctx, info.HashTableName, names)
		if err != nil {
			return err
		}

		onboard.ReplaceType(peerType, names, addresses)
	}

	if err := r.drv.Connect(onboard.Addresses(onboard.AllNames())); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInformationIncomplete, err)
	}

	// Pub/sub-style transports silently drop messages sent before a
	// subscriber's filter has propagated; this delay is the pragmatic
	// fix (spec.md §4.1 step 7).
	time.Sleep(r.slowJoinDelay)

	if r.enableRejoin {
		r.publishContainerMapping(ctx)
	}

	return nil
}

// register writes (self-name -> local address) into the registry
// hash-map for self's own peer type (spec.md §4.1 step 2).
func (r *Rendezvous) register(ctx context.Context) error {
	addr, err := json.Marshal(r.drv.Address())
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInformationIncomplete, err)
	}
	return r.store.HSet(ctx, r.selfHashName, r.selfName, addr)
}

// pollForCensus implements the exponential-backoff poll of spec.md §4.1
// step 4: sleep base*2^k before attempt k+1, up to maxRetries attempts.
func (r *Rendezvous) pollForCensus(ctx context.Context, info types.PeerInfo) ([]string, error) {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		length, err := r.store.HLen(ctx, info.HashTableName)
		if err == nil && length >= info.ExpectedNumber {
			keys, err := r.store.HKeys(ctx, info.HashTableName)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", types.ErrInformationIncomplete, err)
			}
			// spec.md Open Question (a): when the registry has more
			// than expected peers, truncate to the first expected_count
			// in registry iteration order, matching the original's
			// behavior verbatim.
			if len(keys) > info.ExpectedNumber {
				keys = keys[:info.ExpectedNumber]
			}
			return keys, nil
		}
		if err != nil {
			r.log.Debugf("rendezvous poll for %s failed: %v", info.HashTableName, err)
		}
		sleep := time.Duration(float64(r.baseRetry) * pow2(attempt))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("%w: failed to reach census for %s", types.ErrInformationIncomplete, info.HashTableName)
}

func pow2(k int) float64 {
	v := 1.0
	for i := 0; i < k; i++ {
		v *= 2
	}
	return v
}

// resolveAddresses fetches the addresses of names from hashTableName in
// one multi-get (spec.md §4.1 step 5), failing if any is missing or
// undecodable.
func (r *Rendezvous) resolveAddresses(ctx context.Context, hashTableName string, names []string) (map[string]string, error) {
	raw, err := r.store.HMGet(ctx, hashTableName, names)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInformationIncomplete, err)
	}
	out := make(map[string]string, len(names))
	for i, name := range names {
		if raw[i] == nil {
			return nil, fmt.Errorf("%w: missing address for %s", types.ErrInformationIncomplete, name)
		}
		var addr string
		if err := json.Unmarshal(raw[i], &addr); err != nil {
			return nil, fmt.Errorf("%w: undecodable address for %s: %v", types.ErrInformationIncomplete, name, err)
		}
		out[name] = addr
	}
	return out, nil
}

// publishContainerMapping writes self-name -> container-name into the
// well-known side hash-map for external orchestrators (spec.md §4.1
// step 8), recovering the feature from original_source/proxy.py's
// CONTAINER_NAME/JOB_NAME handling.
func (r *Rendezvous) publishContainerMapping(ctx context.Context) {
	container := os.Getenv("CONTAINER_NAME")
	job := os.Getenv("JOB_NAME")
	data, err := json.Marshal(container)
	if err != nil {
		r.log.Errorf("failed marshalling container name: %v", err)
		return
	}
	if err := r.store.HSet(ctx, fmt.Sprintf("%s:component_name_to_container_name", job), r.selfName, data); err != nil {
		r.log.Errorf("failed publishing container mapping: %v", err)
	}
	if err := r.store.HSet(ctx, "component-container-mapping", r.selfName, data); err != nil {
		r.log.Errorf("failed publishing component-container mapping: %v", err)
	}
}
