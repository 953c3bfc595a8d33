package session

import "errors"

var (
	// ErrNotConnected is returned by send when the session is in any
	// state other than connected.
	ErrNotConnected = errors.New("session not connected")

	// ErrConnectInFlight is returned when a connect attempt for the same
	// tenant is already being processed.
	ErrConnectInFlight = errors.New("connect already in progress")

	// ErrAlreadyConnected is returned by connect on a connected session.
	ErrAlreadyConnected = errors.New("session already connected")

	// ErrPairingTimeout is returned when the far end issues no pairing
	// challenge within the bounded window.
	ErrPairingTimeout = errors.New("timed out waiting for pairing challenge")

	// ErrSessionUnknown is returned for tenants with no session worker.
	ErrSessionUnknown = errors.New("no session for tenant")
)
