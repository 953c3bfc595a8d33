package bridge

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/shared/config"
	"github.com/replygate/replygate/internal/shared/logger"
)

// WSTransport opens authenticated websocket connections to the bridge
// service, one per tenant session.
type WSTransport struct {
	baseURL string
	token   string
	creds   *FileCredentialStore
	logger  logger.Interface
}

func NewWSTransport(cfg *config.BridgeConfig, creds *FileCredentialStore) *WSTransport {
	return &WSTransport{
		baseURL: cfg.URL,
		token:   cfg.Token,
		creds:   creds,
		logger:  logger.NewLogger().Named("bridge"),
	}
}

func (t *WSTransport) Open(ctx context.Context, tenantSID string) (session.Conn, error) {
	wsURL, err := t.buildSessionURL(tenantSID)
	if err != nil {
		return nil, fmt.Errorf("build websocket url: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, session.NewTransportError(session.CodeNetwork,
				fmt.Sprintf("bridge dial failed with status %d", resp.StatusCode))
		}
		if ctx.Err() != nil {
			return nil, session.NewTransportError(session.CodeTimeout, "bridge dial timed out")
		}
		return nil, session.NewTransportError(session.CodeNetwork, err.Error())
	}

	t.logger.Debugw("bridge connection opened", "tenant_sid", tenantSID)

	// The opened frame means the far end accepted stored credentials or
	// completed pairing, so mark them present.
	onOpened := func() {
		if err := t.creds.Touch(tenantSID); err != nil {
			t.logger.Warnw("failed to record credential marker",
				"tenant_sid", tenantSID, "error", err)
		}
	}

	return newWSConn(tenantSID, conn, t.logger, onOpened), nil
}

func (t *WSTransport) buildSessionURL(tenantSID string) (string, error) {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		u.Scheme = "wss"
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/session/" + tenantSID

	q := u.Query()
	q.Set("token", t.token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

var _ session.Transport = (*WSTransport)(nil)
