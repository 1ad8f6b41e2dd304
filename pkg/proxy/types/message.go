package types

import (
	"encoding/json"
	"fmt"
)

// SessionType classifies the exchange a SessionMessage belongs to.
type SessionType int

const (
	// Task is a request that expects a final reply (and, optionally, an
	// intermediate acknowledgement).
	Task SessionType = iota
	// Notification is a one-way or ack-only exchange.
	Notification
)

func (s SessionType) String() string {
	switch s {
	case Task:
		return "TASK"
	case Notification:
		return "NOTIFICATION"
	default:
		return "UNKNOWN"
	}
}

// SessionStage is the lifecycle marker carried on a session message.
type SessionStage int

const (
	// Request is the first message of a session.
	Request SessionStage = iota
	// Receive acknowledges a request without completing the session.
	Receive
	// Complete closes a Task session.
	Complete
)

func (s SessionStage) String() string {
	switch s {
	case Request:
		return "REQUEST"
	case Receive:
		return "RECEIVE"
	case Complete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Broadcast is the wildcard destination recognized by SessionRouter and
// the transport driver.
const Broadcast = "*"

// Tag carries a free-form label or enumerant, always normalized to its
// string form at construction. Accept either a plain string or a
// fmt.Stringer (symbolic enumerant); internally only the string survives.
type Tag struct {
	value string
}

// TagFromString builds a Tag from a plain string.
func TagFromString(s string) Tag {
	return Tag{value: s}
}

// TagFromStringer builds a Tag from any symbolic enumerant implementing
// fmt.Stringer.
func TagFromStringer(s fmt.Stringer) Tag {
	return Tag{value: s.String()}
}

// String returns the normalized tag value.
func (t Tag) String() string {
	return t.value
}

// MarshalJSON encodes a Tag as its plain string value, so it survives
// the JSON wire encoding the relt driver sends Messages over.
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.value)
}

// UnmarshalJSON decodes a Tag from its plain string value.
func (t *Tag) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &t.value)
}

// Message is the immutable record exchanged between proxies. Immutable
// in practice: every SessionRouter operation builds a fresh Message value
// rather than mutating one in place.
type Message struct {
	Tag          Tag
	Source       string
	Destination  string
	SessionID    string
	SessionType  SessionType
	SessionStage SessionStage
	Payload      []byte
}

// SessionMessage is an alias kept for parity with the vocabulary used in
// spec.md; a Message already carries full session metadata.
type SessionMessage = Message
