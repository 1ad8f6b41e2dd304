package core

import "sync"

// Onboard is the shared membership view: OnboardSet (peer-type ->
// ordered peer names) mirrored by PeerSockets (name -> transport
// address), guarded by a single mutex per spec.md §5's "a single mutex
// over the membership structures suffices" guidance. Every mutation
// keeps I1 (every name in OnboardSet has an entry in PeerSockets and
// vice versa) true atomically from any reader's perspective.
type Onboard struct {
	mu      sync.RWMutex
	byType  map[string][]string // peer-type -> ordered names
	sockets map[string]string   // name -> address
}

// NewOnboard returns an empty membership view.
func NewOnboard() *Onboard {
	return &Onboard{
		byType:  make(map[string][]string),
		sockets: make(map[string]string),
	}
}

// ReplaceType atomically sets the full onboard roster and addresses for
// a single peer-type, used by Rendezvous when building the initial
// connection set.
func (o *Onboard) ReplaceType(peerType string, names []string, addresses map[string]string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, name := range o.byType[peerType] {
		delete(o.sockets, name)
	}
	ordered := make([]string, len(names))
	copy(ordered, names)
	o.byType[peerType] = ordered
	for _, name := range ordered {
		o.sockets[name] = addresses[name]
	}
}

// Add onboards a single new peer, used by RejoinController.
func (o *Onboard) Add(peerType, name, address string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byType[peerType] = append(o.byType[peerType], name)
	o.sockets[name] = address
}

// UpdateAddress rewrites the cached address of an already-onboard peer,
// used by RejoinController when a peer restarts at a new address.
func (o *Onboard) UpdateAddress(name, address string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sockets[name] = address
}

// Remove drops a peer from both structures, used by RejoinController
// when a peer exits.
func (o *Onboard) Remove(peerType, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := o.byType[peerType]
	for i, n := range names {
		if n == name {
			o.byType[peerType] = append(names[:i], names[i+1:]...)
			break
		}
	}
	delete(o.sockets, name)
}

// Address returns the cached transport address for name.
func (o *Onboard) Address(name string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	addr, ok := o.sockets[name]
	return addr, ok
}

// Contains reports whether name is currently onboard.
func (o *Onboard) Contains(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.sockets[name]
	return ok
}

// CountForType returns how many peers of peerType are currently onboard.
func (o *Onboard) CountForType(peerType string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.byType[peerType])
}

// NamesForType returns a defensive copy of the onboard roster for
// peerType.
func (o *Onboard) NamesForType(peerType string) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := o.byType[peerType]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// AllNames flattens every onboard peer across all types.
func (o *Onboard) AllNames() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []string
	for _, names := range o.byType {
		out = append(out, names...)
	}
	return out
}

// TypeOf returns the peer-type name is registered under, if any.
func (o *Onboard) TypeOf(name string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for peerType, names := range o.byType {
		for _, n := range names {
			if n == name {
				return peerType, true
			}
		}
	}
	return "", false
}

// Snapshot returns a defensive copy of the full peer-type -> names view,
// backing Proxy.Peers().
func (o *Onboard) Snapshot() map[string][]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string][]string, len(o.byType))
	for peerType, names := range o.byType {
		cp := make([]string, len(names))
		copy(cp, names)
		out[peerType] = cp
	}
	return out
}

// Addresses returns a defensive copy of the name -> address map
// restricted to the given names, used by RejoinController to compute
// the "Restarted" set.
func (o *Onboard) Addresses(names []string) map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = o.sockets[n]
	}
	return out
}
