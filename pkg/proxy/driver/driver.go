// Package driver declares the pluggable transport contract of spec.md
// §6 and two concrete implementations: a relt-backed reliable driver
// (the "ZeroMQ-style" driver spec.md names) and an in-process loopback
// driver used for tests and single-binary demos.
package driver

import (
	"fmt"

	"github.com/keshava/maro/pkg/proxy/types"
)

// Driver is the transport contract from spec.md §6. Drivers are free to
// split one logical send into multiple wire operations, hence Send's
// list-of-session-ids return.
type Driver interface {
	// Address is the local receiving address, published into the
	// registry at join time.
	Address() string

	// Connect opens connections to the given name->address peers.
	Connect(peers map[string]string) error

	// Disconnect closes connections to the given name->address peers.
	Disconnect(peers map[string]string) error

	// Send unicasts message to message.Destination. Returns the
	// session-ids the driver reports, or an empty slice if it has none
	// to report (the caller falls back to [message.SessionID]).
	Send(message types.Message) ([]string, error)

	// Broadcast fans message out to every connected peer.
	Broadcast(message types.Message) error

	// Receive yields a channel of incoming messages. If continuous is
	// false, the caller is expected to read at most one value before
	// abandoning the channel; the driver itself does not enforce this.
	Receive(continuous bool) <-chan types.Message

	// Close terminates the transport for sending and receiving.
	Close() error
}

// Type names the driver variant requested in Configuration.DriverType.
type Type string

const (
	// TypeRelt is the reliable group-transport driver over
	// github.com/jabolina/relt.
	TypeRelt Type = "relt"
	// TypeLoopback is the in-process driver used by tests and demos.
	TypeLoopback Type = "loopback"
)

// New constructs the Driver named by driverType, raising
// types.ErrDriverTypeUnsupported for anything else.
func New(driverType string, componentName string, logger types.Logger, params map[string]interface{}) (Driver, error) {
	switch Type(driverType) {
	case TypeRelt:
		return NewReltDriver(componentName, logger)
	case TypeLoopback:
		return NewLoopbackDriver(componentName), nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrDriverTypeUnsupported, driverType)
	}
}
