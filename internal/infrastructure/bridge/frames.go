// Package bridge is the websocket adapter to the messaging-network
// bridge service. It translates wire frames into transport events and
// keeps per-tenant credential markers on disk.
package bridge

import (
	"time"

	"github.com/replygate/replygate/internal/domain/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	sendTimeout = 15 * time.Second
)

// Frame is the unified websocket message envelope shared with the
// bridge service.
type Frame struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// pairing
	Code string `json:"code,omitempty"`

	// closed and send_result failures
	ErrorCode string `json:"error_code,omitempty"`
	Reason    string `json:"reason,omitempty"`

	// message
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text,omitempty"`
	Group  bool   `json:"group,omitempty"`

	// send
	Recipient string `json:"recipient,omitempty"`

	// send_result
	OK bool `json:"ok,omitempty"`
}

// Frame type constants.
const (
	// bridge -> core
	FrameTypePairing    = "pairing"
	FrameTypeOpened     = "opened"
	FrameTypeClosed     = "closed"
	FrameTypeMessage    = "message"
	FrameTypeSendResult = "send_result"

	// core -> bridge
	FrameTypeSend = "send"
)

func frameToEvent(f *Frame) (session.Event, bool) {
	switch f.Type {
	case FrameTypePairing:
		return session.Event{Type: session.EventPairing, PairingCode: f.Code}, true
	case FrameTypeOpened:
		return session.Event{Type: session.EventOpened}, true
	case FrameTypeClosed:
		return session.Event{
			Type:        session.EventClosed,
			CloseReason: f.Reason,
			CloseCode:   session.ErrorCode(f.ErrorCode),
		}, true
	case FrameTypeMessage:
		return session.Event{
			Type:   session.EventMessage,
			Sender: f.Sender,
			Text:   f.Text,
			Group:  f.Group,
		}, true
	default:
		return session.Event{}, false
	}
}
