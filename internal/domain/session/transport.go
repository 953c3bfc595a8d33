package session

import "context"

// EventType discriminates transport events.
type EventType string

const (
	EventPairing EventType = "pairing"
	EventOpened  EventType = "opened"
	EventClosed  EventType = "closed"
	EventMessage EventType = "message"
)

// Event is one occurrence on an open transport connection.
type Event struct {
	Type EventType

	// Pairing
	PairingCode string

	// Closed
	CloseReason string
	CloseCode   ErrorCode

	// Message
	Sender string
	Text   string
	Group  bool
}

// Conn is one live connection to the messaging network for one tenant.
// The events channel is closed when the connection dies.
type Conn interface {
	Events() <-chan Event
	Send(ctx context.Context, recipient, text string) error
	Close() error
}

// Transport opens authenticated connections to the external messaging
// network. The core depends only on this contract, never on the wire
// protocol behind it.
type Transport interface {
	Open(ctx context.Context, tenantSID string) (Conn, error)
}

// CredentialStore tracks the opaque credential blob the transport keeps
// per tenant. The core only inspects presence and clears it on terminal
// failures; the blob itself belongs to the transport provider.
type CredentialStore interface {
	Exists(tenantSID string) bool
	Clear(tenantSID string) error
}
