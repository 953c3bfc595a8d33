package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/shared/logger"
)

type sendResult struct {
	ok        bool
	errorCode string
	reason    string
}

// wsConn is one live bridge connection for one tenant. All websocket
// writes happen in writePump to avoid concurrent writes.
type wsConn struct {
	tenantSID string
	conn      *websocket.Conn
	send      chan *Frame
	events    chan session.Event
	done      chan struct{}
	logger    logger.Interface

	mu      sync.Mutex
	pending map[string]chan sendResult
	closed  bool

	onOpened func()
}

func newWSConn(tenantSID string, conn *websocket.Conn, log logger.Interface, onOpened func()) *wsConn {
	c := &wsConn{
		tenantSID: tenantSID,
		conn:      conn,
		send:      make(chan *Frame, 64),
		events:    make(chan session.Event, 64),
		done:      make(chan struct{}),
		logger:    log,
		pending:   make(map[string]chan sendResult),
		onOpened:  onOpened,
	}
	go c.writePump()
	go c.readPump()
	return c
}

func (c *wsConn) Events() <-chan session.Event {
	return c.events
}

func (c *wsConn) Send(ctx context.Context, recipient, text string) error {
	id := uuid.NewString()
	result := make(chan sendResult, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return session.NewTransportError(session.CodeNetwork, "connection closed")
	}
	c.pending[id] = result
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	frame := &Frame{
		Type:      FrameTypeSend,
		ID:        id,
		Recipient: recipient,
		Text:      text,
	}

	select {
	case c.send <- frame:
	case <-c.done:
		return session.NewTransportError(session.CodeNetwork, "connection closed")
	case <-ctx.Done():
		return session.NewTransportError(session.CodeTimeout, "send canceled")
	}

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case res := <-result:
		if res.ok {
			return nil
		}
		code := session.ErrorCode(res.errorCode)
		if code == "" {
			code = session.CodeUnknown
		}
		return session.NewTransportError(code, res.reason)
	case <-timer.C:
		return session.NewTransportError(session.CodeTimeout, "no delivery acknowledgment from bridge")
	case <-c.done:
		return session.NewTransportError(session.CodeNetwork, "connection closed while sending")
	case <-ctx.Done():
		return session.NewTransportError(session.CodeTimeout, "send canceled")
	}
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.conn.Close()
}

func (c *wsConn) readPump() {
	defer func() {
		c.Close()
		close(c.events)
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Warnw("skipping malformed bridge frame",
				"tenant_sid", c.tenantSID, "error", err)
			continue
		}

		if frame.Type == FrameTypeSendResult {
			c.resolvePending(&frame)
			continue
		}

		event, ok := frameToEvent(&frame)
		if !ok {
			continue
		}
		if event.Type == session.EventOpened && c.onOpened != nil {
			c.onOpened()
		}

		select {
		case c.events <- event:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) resolvePending(frame *Frame) {
	c.mu.Lock()
	result, ok := c.pending[frame.ID]
	c.mu.Unlock()
	if !ok {
		return
	}
	result <- sendResult{ok: frame.OK, errorCode: frame.ErrorCode, reason: frame.Reason}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Warnw("bridge write failed",
					"tenant_sid", c.tenantSID, "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

var _ session.Conn = (*wsConn)(nil)
