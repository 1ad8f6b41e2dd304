package core

import (
	"time"

	"github.com/keshava/maro/pkg/proxy/driver"
	"github.com/keshava/maro/pkg/proxy/helper"
	"github.com/keshava/maro/pkg/proxy/types"
)

// SessionRouter implements spec.md §4.2: send/scatter/broadcast in
// fire-and-forget and wait-for-reply variants, correlated by
// session-id, backed by the out-of-order MessageCache.
type SessionRouter struct {
	selfName string
	drv      driver.Driver
	log      types.Logger
	onboard  *Onboard
	cache    *MessageCache

	enableRejoin         bool
	rejoinCache          *RejoinCache // nil when message-cache-for-rejoin is disabled
	maxWaitTimeForRejoin time.Duration
	minimalPeers         map[string]int
	degraded             *DegradedFlag
}

// NewSessionRouter builds a SessionRouter. rejoinCache may be nil when
// rejoin is disabled or the message cache for rejoin is turned off; with
// rejoin enabled and no rejoinCache, the peer-existence gate falls back
// to a bounded poll-wait.
func NewSessionRouter(selfName string, drv driver.Driver, log types.Logger, onboard *Onboard, enableRejoin bool, rejoinCache *RejoinCache, maxWaitTimeForRejoin time.Duration, minimalPeers map[string]int, degraded *DegradedFlag) *SessionRouter {
	return &SessionRouter{
		selfName:             selfName,
		drv:                  drv,
		log:                  log,
		onboard:              onboard,
		cache:                NewMessageCache(),
		enableRejoin:         enableRejoin,
		rejoinCache:          rejoinCache,
		maxWaitTimeForRejoin: maxWaitTimeForRejoin,
		minimalPeers:         minimalPeers,
		degraded:             degraded,
	}
}

// fillSessionID mutates a defensive copy of m so it always carries a
// session-id, auto-generating one if absent (spec.md §4.2 preamble).
func fillSessionID(m types.Message) types.Message {
	if m.SessionID == "" {
		m.SessionID = helper.GenerateUID()
	}
	return m
}

// requireOnboard is the explicit peer-existence gate called at the top
// of every send-class method, replacing the original's decorator
// (spec.md §9 "Decorator-based peer checking").
//
// Returns (enqueued, error): enqueued is true when the message was
// absorbed into the RejoinCache rather than sent immediately, in which
// case the caller should return early with just the session-id.
func (r *SessionRouter) requireOnboard(destination string, pending types.Message) (enqueued bool, err error) {
	if r.degraded.IsSet() {
		return false, types.ErrPeersMiss
	}

	if destination == types.Broadcast {
		return false, nil
	}

	if peerType, ok := r.onboard.TypeOf(destination); ok {
		if min, hasMin := r.minimalPeers[peerType]; hasMin && r.onboard.CountForType(peerType) < min {
			return false, types.ErrPeersMiss
		}
	}

	if r.onboard.Contains(destination) {
		return false, nil
	}

	if !r.enableRejoin {
		return false, types.ErrPeersMiss
	}

	if r.rejoinCache != nil {
		r.rejoinCache.Push(destination, pending)
		return true, nil
	}

	deadline := time.Now().Add(r.maxWaitTimeForRejoin)
	for time.Now().Before(deadline) {
		if r.onboard.Contains(destination) {
			return false, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false, types.ErrPeersMiss
}

// Isend fire-and-forgets message, auto-filling its session-id.
func (r *SessionRouter) Isend(message types.Message) ([]string, error) {
	message = fillSessionID(message)
	enqueued, err := r.requireOnboard(message.Destination, message)
	if err != nil {
		return nil, err
	}
	if enqueued {
		return []string{message.SessionID}, nil
	}

	ids, err := r.drv.Send(message)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{message.SessionID}, nil
	}
	return ids, nil
}

// Send unicasts message and waits for the reply sharing its session-id.
// When the peer gate parks message in the RejoinCache instead, Send
// returns no replies and does not wait.
//
// spec.md §9 Open Question (c): if the driver reports an empty
// session-id list, Send falls back to ReceiveByID([message.SessionID]);
// a peer that replies with a different session-id will hang this call
// forever. This mirrors the original implementation's behavior and is
// not changed here.
func (r *SessionRouter) Send(message types.Message) ([]types.Message, error) {
	message = fillSessionID(message)
	enqueued, err := r.requireOnboard(message.Destination, message)
	if err != nil {
		return nil, err
	}
	if enqueued {
		return nil, nil
	}

	ids, err := r.drv.Send(message)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids = []string{message.SessionID}
	}
	return r.ReceiveByID(ids)
}

// Iscatter fans tag/type out to every (destination, payload) pair,
// returning the flattened list of session-ids.
func (r *SessionRouter) Iscatter(tag types.Tag, sessionType types.SessionType, pairs []DestinationPayload, sessionID string) ([]string, error) {
	var out []string
	for _, pair := range pairs {
		msg := types.Message{
			Tag:          tag,
			Source:       r.selfName,
			Destination:  pair.Destination,
			SessionID:    sessionID,
			SessionType:  sessionType,
			SessionStage: types.Request,
			Payload:      pair.Payload,
		}
		ids, err := r.Isend(msg)
		if err != nil {
			return out, err
		}
		out = append(out, ids...)
	}
	return out, nil
}

// Scatter is Iscatter followed by a wait for one reply per id.
func (r *SessionRouter) Scatter(tag types.Tag, sessionType types.SessionType, pairs []DestinationPayload, sessionID string) ([]types.Message, error) {
	ids, err := r.Iscatter(tag, sessionType, pairs, sessionID)
	if err != nil {
		return nil, err
	}
	return r.ReceiveByID(ids)
}

// DestinationPayload is one (dest, payload) pair supplied to
// Scatter/Iscatter.
type DestinationPayload struct {
	Destination string
	Payload     []byte
}

// Ibroadcast sends message to the wildcard destination and returns one
// session-id per currently-onboard peer, so the caller knows how many
// replies to expect.
func (r *SessionRouter) Ibroadcast(tag types.Tag, sessionType types.SessionType, sessionID string, payload []byte) ([]string, error) {
	msg := fillSessionID(types.Message{
		Tag:          tag,
		Source:       r.selfName,
		Destination:  types.Broadcast,
		SessionID:    sessionID,
		SessionType:  sessionType,
		SessionStage: types.Request,
		Payload:      payload,
	})

	if r.enableRejoin {
		if _, err := r.requireOnboard(types.Broadcast, msg); err != nil {
			return nil, err
		}
	}

	if err := r.drv.Broadcast(msg); err != nil {
		return nil, err
	}

	count := len(r.onboard.AllNames())
	ids := make([]string, count)
	for i := range ids {
		ids[i] = msg.SessionID
	}
	return ids, nil
}

// Broadcast is Ibroadcast followed by a wait for that many replies
// sharing the session-id.
func (r *SessionRouter) Broadcast(tag types.Tag, sessionType types.SessionType, sessionID string, payload []byte) ([]types.Message, error) {
	ids, err := r.Ibroadcast(tag, sessionType, sessionID, payload)
	if err != nil {
		return nil, err
	}
	return r.ReceiveByID(ids)
}

// Reply builds a response to orig: destination = orig.Source,
// session-id = orig.SessionID, stage = Receive if ack (or a
// Notification session) else Complete, then Isend's it.
func (r *SessionRouter) Reply(orig types.Message, tag *types.Tag, payload []byte, ack bool) ([]string, error) {
	stage := types.Complete
	if ack || orig.SessionType == types.Notification {
		stage = types.Receive
	}
	t := orig.Tag
	if tag != nil {
		t = *tag
	}
	reply := types.Message{
		Tag:          t,
		Source:       r.selfName,
		Destination:  orig.Source,
		SessionID:    orig.SessionID,
		SessionType:  orig.SessionType,
		SessionStage: stage,
		Payload:      payload,
	}
	return r.Isend(reply)
}

// Forward keeps orig's session-id and stage but retargets destination,
// optionally overriding tag/payload.
func (r *SessionRouter) Forward(orig types.Message, destination string, tag *types.Tag, payload []byte) ([]string, error) {
	t := orig.Tag
	if tag != nil {
		t = *tag
	}
	p := orig.Payload
	if payload != nil {
		p = payload
	}
	fwd := types.Message{
		Tag:          t,
		Source:       r.selfName,
		Destination:  destination,
		SessionID:    orig.SessionID,
		SessionType:  orig.SessionType,
		SessionStage: orig.SessionStage,
		Payload:      p,
	}
	return r.Isend(fwd)
}

// Receive delegates to the driver; continuous controls whether the
// returned channel is meant to be read until closed or just once.
func (r *SessionRouter) Receive(continuous bool) <-chan types.Message {
	return r.drv.Receive(continuous)
}

// ReceiveByID waits for exactly the given session-ids, implementing
// spec.md §4.2's algorithm: drain the MessageCache first, then consume
// from the driver for whatever ids remain, caching any non-matching
// arrivals under their own session-id (I5, P2, P3).
func (r *SessionRouter) ReceiveByID(ids []string) ([]types.Message, error) {
	received, _ := r.cache.Drain(ids)

	// ids may repeat (Broadcast and a shared-session Scatter expect one
	// reply per peer under the same session-id), so count each one.
	remaining := make(map[string]int, len(ids))
	for _, id := range ids {
		remaining[id]++
	}
	outstanding := len(ids)
	for _, msg := range received {
		if remaining[msg.SessionID] > 0 {
			remaining[msg.SessionID]--
			outstanding--
		}
	}
	if outstanding == 0 {
		return received, nil
	}

	stream := r.drv.Receive(true)
	for outstanding > 0 {
		msg, ok := <-stream
		if !ok {
			return received, types.ErrInformationIncomplete
		}
		if remaining[msg.SessionID] > 0 {
			received = append(received, msg)
			remaining[msg.SessionID]--
			outstanding--
		} else {
			r.cache.Put(msg)
		}
	}
	return received, nil
}
