package core

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/keshava/maro/pkg/proxy/definition"
	"github.com/keshava/maro/pkg/proxy/driver"
	"github.com/keshava/maro/pkg/proxy/types"
)

// twoNodeRouters wires two SessionRouters back to back over loopback
// drivers, each aware of the other by name, mirroring the teacher's
// CreateCluster helper shape.
func twoNodeRouters(t *testing.T) (a, b *SessionRouter, driverA, driverB driver.Driver) {
	t.Helper()
	log := definition.NewNoopLogger()

	driverA = driver.NewLoopbackDriver("node-a")
	driverB = driver.NewLoopbackDriver("node-b")

	onboardA := NewOnboard()
	onboardB := NewOnboard()

	onboardA.Add("peer", "node-b", driverB.Address())
	onboardB.Add("peer", "node-a", driverA.Address())

	if err := driverA.Connect(map[string]string{"node-b": driverB.Address()}); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	if err := driverB.Connect(map[string]string{"node-a": driverA.Address()}); err != nil {
		t.Fatalf("connect b->a: %v", err)
	}

	a = NewSessionRouter("node-a", driverA, log, onboardA, false, nil, time.Second, nil, NewDegradedFlag())
	b = NewSessionRouter("node-b", driverB, log, onboardB, false, nil, time.Second, nil, NewDegradedFlag())
	return a, b, driverA, driverB
}

func TestSessionRouterSendReceivesMatchingReply(t *testing.T) {
	defer goleak.VerifyNone(t)
	a, b, driverA, driverB := twoNodeRouters(t)
	defer driverA.Close()
	defer driverB.Close()

	tag := types.TagFromString("greet")
	done := make(chan struct{})
	go func() {
		defer close(done)
		msg := <-b.Receive(false)
		if _, err := b.Reply(msg, nil, []byte("pong"), false); err != nil {
			t.Errorf("reply failed: %v", err)
		}
	}()

	replies, err := a.Send(types.Message{
		Tag:         tag,
		Source:      "node-a",
		Destination: "node-b",
		SessionType: types.Task,
		Payload:     []byte("ping"),
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	<-done

	if len(replies) != 1 || string(replies[0].Payload) != "pong" {
		t.Fatalf("unexpected replies: %+v", replies)
	}
	if replies[0].SessionStage != types.Complete {
		t.Fatalf("expected Complete stage for Task reply, got %v", replies[0].SessionStage)
	}
}

func TestSessionRouterOutOfOrderArrivalIsCached(t *testing.T) {
	defer goleak.VerifyNone(t)
	a, b, driverA, driverB := twoNodeRouters(t)
	defer driverA.Close()
	defer driverB.Close()

	// b replies before a ever calls ReceiveByID: the message should sit
	// in a's MessageCache until asked for (spec.md O2/P3).
	go func() {
		msg := <-b.Receive(false)
		_, _ = b.Reply(msg, nil, []byte("late"), false)
	}()

	ids, err := a.Isend(types.Message{
		Source:      "node-a",
		Destination: "node-b",
		SessionType: types.Task,
		Payload:     []byte("hello"),
	})
	if err != nil {
		t.Fatalf("isend failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	received, err := a.ReceiveByID(ids)
	if err != nil {
		t.Fatalf("receive by id failed: %v", err)
	}
	if len(received) != 1 || string(received[0].Payload) != "late" {
		t.Fatalf("expected cached late reply, got %+v", received)
	}
}

func TestRequireOnboardRejectsAbsentPeerWithoutRejoin(t *testing.T) {
	log := definition.NewNoopLogger()
	d := driver.NewLoopbackDriver("solo")
	defer d.Close()
	onboard := NewOnboard()
	router := NewSessionRouter("solo", d, log, onboard, false, nil, time.Second, nil, NewDegradedFlag())

	_, err := router.Isend(types.Message{Destination: "ghost", Payload: []byte("x")})
	if err != types.ErrPeersMiss {
		t.Fatalf("expected ErrPeersMiss, got %v", err)
	}
}

func TestRequireOnboardEnqueuesIntoRejoinCacheWhenEnabled(t *testing.T) {
	log := definition.NewNoopLogger()
	d := driver.NewLoopbackDriver("solo")
	defer d.Close()
	onboard := NewOnboard()
	rejoinCache := NewRejoinCache(8)
	router := NewSessionRouter("solo", d, log, onboard, true, rejoinCache, time.Second, nil, NewDegradedFlag())

	ids, err := router.Isend(types.Message{Destination: "ghost", Payload: []byte("x")})
	if err != nil {
		t.Fatalf("expected no error when rejoin enabled, got %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected one session-id even though message was enqueued, got %v", ids)
	}
	if rejoinCache.Len() != 1 {
		t.Fatalf("expected message parked in RejoinCache, got len %d", rejoinCache.Len())
	}
}

func TestRequireOnboardHonorsDegradedFlag(t *testing.T) {
	log := definition.NewNoopLogger()
	d := driver.NewLoopbackDriver("solo")
	defer d.Close()
	onboard := NewOnboard()
	onboard.Add("peer", "node-b", "addr")
	degraded := NewDegradedFlag()
	degraded.Set(true)
	router := NewSessionRouter("solo", d, log, onboard, false, nil, time.Second, nil, degraded)

	_, err := router.Isend(types.Message{Destination: "node-b", Payload: []byte("x")})
	if err != types.ErrPeersMiss {
		t.Fatalf("expected ErrPeersMiss while degraded, got %v", err)
	}
}

func TestForwardPreservesSessionIDAndStage(t *testing.T) {
	a, b, driverA, driverB := twoNodeRouters(t)
	defer driverA.Close()
	defer driverB.Close()

	orig := types.Message{
		Source:       "upstream",
		Destination:  "node-a",
		SessionID:    "sid-123",
		SessionType:  types.Notification,
		SessionStage: types.Receive,
		Payload:      []byte("payload"),
	}

	done := make(chan types.Message, 1)
	go func() { done <- <-b.Receive(false) }()

	if _, err := a.Forward(orig, "node-b", nil, nil); err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	fwd := <-done
	if fwd.SessionID != orig.SessionID {
		t.Fatalf("expected session-id preserved, got %q want %q", fwd.SessionID, orig.SessionID)
	}
	if fwd.SessionStage != orig.SessionStage {
		t.Fatalf("expected stage preserved, got %v want %v", fwd.SessionStage, orig.SessionStage)
	}
}
