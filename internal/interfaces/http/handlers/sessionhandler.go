package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	sessionapp "github.com/replygate/replygate/internal/application/session"
	tenantapp "github.com/replygate/replygate/internal/application/tenant"
	"github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/infrastructure/cache"
	"github.com/replygate/replygate/internal/shared/errors"
	"github.com/replygate/replygate/internal/shared/logger"
	"github.com/replygate/replygate/internal/shared/utils"
)

type SessionHandler struct {
	sessions *sessionapp.Manager
	tenants  *tenantapp.Service
	pairing  *cache.PairingStore
	logger   logger.Interface
}

func NewSessionHandler(
	sessions *sessionapp.Manager,
	tenants *tenantapp.Service,
	pairing *cache.PairingStore,
) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		tenants:  tenants,
		pairing:  pairing,
		logger:   logger.NewLogger(),
	}
}

type SendMessageRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

type ConnectResponse struct {
	Connected   bool   `json:"connected"`
	PairingCode string `json:"pairing_code,omitempty"`
}

type SessionStatusResponse struct {
	TenantSID          string     `json:"tenant_sid"`
	State              string     `json:"state"`
	LastConnectedAt    *time.Time `json:"last_connected_at,omitempty"`
	LastDisconnectedAt *time.Time `json:"last_disconnected_at,omitempty"`
	DisconnectReason   string     `json:"disconnect_reason,omitempty"`
	LastOutboundAt     *time.Time `json:"last_outbound_at,omitempty"`
	LastInboundAt      *time.Time `json:"last_inbound_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type SessionHealthResponse struct {
	Health string `json:"health"`
}

// Connect handles POST /api/sessions/:sid/connect. When the bridge issues a
// pairing challenge the code is returned and cached so the tenant can fetch
// it again before it expires.
func (h *SessionHandler) Connect(c *gin.Context) {
	tn, ok := h.resolveTenant(c)
	if !ok {
		return
	}

	result, err := h.sessions.Connect(c.Request.Context(), tn.ID())
	if err != nil {
		h.respondSessionError(c, err)
		return
	}

	if result.PairingCode != "" {
		if err := h.pairing.Put(c.Request.Context(), tn.SID(), result.PairingCode); err != nil {
			h.logger.Warnw("failed to cache pairing code", "sid", tn.SID(), "error", err)
		}
	}

	utils.OKResponse(c, ConnectResponse{
		Connected:   result.Connected,
		PairingCode: result.PairingCode,
	})
}

// PairingCode handles GET /api/sessions/:sid/pairing-code.
func (h *SessionHandler) PairingCode(c *gin.Context) {
	tn, ok := h.resolveTenant(c)
	if !ok {
		return
	}

	code, err := h.pairing.Get(c.Request.Context(), tn.SID())
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("no active pairing challenge"))
		return
	}
	utils.OKResponse(c, gin.H{"pairing_code": code})
}

// Disconnect handles POST /api/sessions/:sid/disconnect.
func (h *SessionHandler) Disconnect(c *gin.Context) {
	tn, ok := h.resolveTenant(c)
	if !ok {
		return
	}

	if err := h.sessions.Disconnect(c.Request.Context(), tn.ID()); err != nil {
		h.respondSessionError(c, err)
		return
	}
	utils.OKResponse(c, gin.H{"disconnected": true})
}

// Status handles GET /api/sessions/:sid/status.
func (h *SessionHandler) Status(c *gin.Context) {
	tn, ok := h.resolveTenant(c)
	if !ok {
		return
	}

	status, err := h.sessions.Status(c.Request.Context(), tn.ID())
	if err != nil {
		h.respondSessionError(c, err)
		return
	}

	utils.OKResponse(c, SessionStatusResponse{
		TenantSID:          status.TenantSID,
		State:              string(status.State),
		LastConnectedAt:    status.LastConnectedAt,
		LastDisconnectedAt: status.LastDisconnectedAt,
		DisconnectReason:   status.DisconnectReason,
		LastOutboundAt:     status.LastOutboundAt,
		LastInboundAt:      status.LastInboundAt,
		UpdatedAt:          status.UpdatedAt,
	})
}

// Health handles GET /api/sessions/:sid/health.
func (h *SessionHandler) Health(c *gin.Context) {
	tn, ok := h.resolveTenant(c)
	if !ok {
		return
	}

	health := h.sessions.Health(c.Request.Context(), tn.ID())
	utils.OKResponse(c, SessionHealthResponse{Health: string(health)})
}

// SendMessage handles POST /api/sessions/:sid/messages. Outbound messages
// sent through this endpoint do not pass the inbound pipeline and do not
// consume quota.
func (h *SessionHandler) SendMessage(c *gin.Context) {
	tn, ok := h.resolveTenant(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid send message request", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request format", err.Error()))
		return
	}

	if err := h.sessions.Send(c.Request.Context(), tn.ID(), req.Recipient, req.Text); err != nil {
		h.respondSessionError(c, err)
		return
	}
	utils.OKResponse(c, gin.H{"sent": true})
}

func (h *SessionHandler) resolveTenant(c *gin.Context) (*tenant.Tenant, bool) {
	tn, err := h.tenants.GetBySID(c.Request.Context(), c.Param("sid"))
	if err != nil {
		if stderrors.Is(err, tenant.ErrTenantNotFound) {
			utils.ErrorResponseWithError(c, errors.NewNotFoundError("tenant not found"))
		} else {
			h.logger.Errorw("tenant lookup failed", "error", err)
			utils.ErrorResponse(c, http.StatusInternalServerError, "tenant lookup failed")
		}
		return nil, false
	}
	return tn, true
}

func (h *SessionHandler) respondSessionError(c *gin.Context, err error) {
	var deliveryErr *session.DeliveryError
	switch {
	case stderrors.As(err, &deliveryErr):
		h.logger.Warnw("outbound delivery failed",
			"category", deliveryErr.Classification.Category, "cause", deliveryErr.Cause)
		utils.ErrorResponseWithError(c, errors.NewUnavailableError(deliveryErr.Classification.UserMessage))
	case stderrors.Is(err, session.ErrAlreadyConnected):
		utils.ErrorResponseWithError(c, errors.NewConflictError("session already connected"))
	case stderrors.Is(err, session.ErrNotConnected):
		utils.ErrorResponseWithError(c, errors.NewConflictError("session not connected"))
	case stderrors.Is(err, session.ErrSessionUnknown):
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("no session for tenant"))
	case stderrors.Is(err, session.ErrPairingTimeout):
		utils.ErrorResponseWithError(c, errors.NewUnavailableError("timed out waiting for pairing challenge"))
	default:
		h.logger.Errorw("session operation failed", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "session operation failed")
	}
}
