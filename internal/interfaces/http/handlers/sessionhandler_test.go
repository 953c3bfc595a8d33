package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/interfaces/http/handlers/testutil"
	"github.com/replygate/replygate/internal/shared/logger"
)

func newTestSessionHandler() *SessionHandler {
	return &SessionHandler{logger: logger.NewLogger()}
}

func TestSessionHandler_DeliveryFailureReturnsClassifiedMessage(t *testing.T) {
	handler := newTestSessionHandler()

	cause := session.NewTransportError(session.CodeRateLimited, "429 from far end")
	c, w := testutil.NewTestContext(http.MethodPost, "/api/sessions/abc123/messages", nil)

	handler.respondSessionError(c, &session.DeliveryError{
		Classification: session.Classify(cause),
		Cause:          cause,
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "rate-limiting")
	assert.NotContains(t, resp.Error.Message, "429", "raw transport detail stays out of the response")
}

func TestSessionHandler_NotConnectedReturnsConflict(t *testing.T) {
	handler := newTestSessionHandler()

	c, w := testutil.NewTestContext(http.MethodPost, "/api/sessions/abc123/messages", nil)
	handler.respondSessionError(c, session.ErrNotConnected)

	assert.Equal(t, http.StatusConflict, w.Code)
}
