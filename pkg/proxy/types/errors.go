package types

import "errors"

// Domain-level error taxonomy. Construction errors are always fatal and
// surfaced to the caller of New; steady-state errors are surfaced to the
// caller of the offending operation.
var (
	// ErrRegistryUnreachable is returned when the initial registry
	// connection fails at construction.
	ErrRegistryUnreachable = errors.New("maro: registry unreachable")

	// ErrDriverTypeUnsupported is returned for an unknown driver.Type.
	ErrDriverTypeUnsupported = errors.New("maro: driver type unsupported")

	// ErrPeersMiss is returned by a send-class operation targeting an
	// absent peer with rejoin disabled, or when the onboard count for a
	// peer type has dropped below its minimal_peers threshold.
	ErrPeersMiss = errors.New("maro: peers miss")

	// ErrInformationIncomplete is returned when Rendezvous exhausts its
	// retries, or when address resolution returns missing/undecodable
	// data.
	ErrInformationIncomplete = errors.New("maro: information incomplete")

	// ErrDriverSendFailure is returned when the driver reports a
	// transient send error; the caller may retry.
	ErrDriverSendFailure = errors.New("maro: driver send failure")
)
