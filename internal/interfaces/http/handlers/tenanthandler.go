package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	tenantapp "github.com/replygate/replygate/internal/application/tenant"
	"github.com/replygate/replygate/internal/domain/responder"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/shared/errors"
	"github.com/replygate/replygate/internal/shared/logger"
	"github.com/replygate/replygate/internal/shared/utils"
)

type TenantHandler struct {
	tenants *tenantapp.Service
	logger  logger.Interface
}

func NewTenantHandler(tenants *tenantapp.Service) *TenantHandler {
	return &TenantHandler{
		tenants: tenants,
		logger:  logger.NewLogger(),
	}
}

type CreateTenantRequest struct {
	Name     string `json:"name" binding:"required"`
	Identity string `json:"identity" binding:"required,identity"`
	Timezone string `json:"timezone"`
}

type ResponderEntryInput struct {
	Keywords []string `json:"keywords" binding:"required,min=1"`
	Reply    string   `json:"reply" binding:"required"`
	Category string   `json:"category"`
}

type UpdateResponderRequest struct {
	Entries []ResponderEntryInput `json:"entries" binding:"required"`
}

type UpdateHoursRequest struct {
	StartHour  int    `json:"start_hour" binding:"min=0,max=23"`
	EndHour    int    `json:"end_hour" binding:"min=0,max=24"`
	Timezone   string `json:"timezone" binding:"required"`
	ClosedDays []int  `json:"closed_days" binding:"dive,min=0,max=6"`
}

type UpdateFallbackRequest struct {
	Message string `json:"message" binding:"required"`
}

type SetOperatorsRequest struct {
	Operators []string `json:"operators" binding:"required"`
}

type AddIdentityRequest struct {
	Identity string `json:"identity" binding:"required,identity"`
}

type ActivateSubscriptionRequest struct {
	Tier         string    `json:"tier" binding:"required,oneof=trial starter professional enterprise"`
	PeriodEndsAt time.Time `json:"period_ends_at" binding:"required"`
}

type OperatingHoursResponse struct {
	StartHour  int    `json:"start_hour"`
	EndHour    int    `json:"end_hour"`
	Timezone   string `json:"timezone"`
	ClosedDays []int  `json:"closed_days,omitempty"`
}

type TenantResponse struct {
	SID             string                 `json:"sid"`
	Name            string                 `json:"name"`
	Identities      []string               `json:"identities"`
	Tier            string                 `json:"tier"`
	Subscription    string                 `json:"subscription"`
	TrialEndsAt     *time.Time             `json:"trial_ends_at,omitempty"`
	PeriodEndsAt    *time.Time             `json:"period_ends_at,omitempty"`
	Hours           OperatingHoursResponse `json:"hours"`
	FallbackMessage string                 `json:"fallback_message,omitempty"`
	Entries         []responder.Entry      `json:"entries"`
	Operators       []string               `json:"operators,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func toTenantResponse(t *tenant.Tenant) TenantResponse {
	hours := t.Hours()
	closed := make([]int, 0, len(hours.ClosedDays))
	for _, d := range hours.ClosedDays {
		closed = append(closed, int(d))
	}
	return TenantResponse{
		SID:          t.SID(),
		Name:         t.Name(),
		Identities:   t.Identities(),
		Tier:         string(t.Tier()),
		Subscription: string(t.Subscription()),
		TrialEndsAt:  t.TrialEndsAt(),
		PeriodEndsAt: t.PeriodEndsAt(),
		Hours: OperatingHoursResponse{
			StartHour:  hours.StartHour,
			EndHour:    hours.EndHour,
			Timezone:   hours.Timezone,
			ClosedDays: closed,
		},
		FallbackMessage: t.FallbackMessage(),
		Entries:         t.Entries(),
		Operators:       t.Operators(),
		CreatedAt:       t.CreatedAt(),
		UpdatedAt:       t.UpdatedAt(),
	}
}

// CreateTenant handles POST /api/tenants.
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid create tenant request", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request format", err.Error()))
		return
	}

	tn, err := h.tenants.Create(c.Request.Context(), tenantapp.CreateTenantRequest{
		Name:     req.Name,
		Identity: req.Identity,
		Timezone: req.Timezone,
	})
	if err != nil {
		h.respondTenantError(c, err)
		return
	}

	utils.CreatedResponse(c, toTenantResponse(tn))
}

// GetTenant handles GET /api/tenants/:sid.
func (h *TenantHandler) GetTenant(c *gin.Context) {
	tn, err := h.tenants.GetBySID(c.Request.Context(), c.Param("sid"))
	if err != nil {
		h.respondTenantError(c, err)
		return
	}
	utils.OKResponse(c, toTenantResponse(tn))
}

// UpdateResponder handles PUT /api/tenants/:sid/responder.
func (h *TenantHandler) UpdateResponder(c *gin.Context) {
	var req UpdateResponderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid responder update request", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request format", err.Error()))
		return
	}

	entries := make([]responder.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, responder.Entry{
			Keywords: e.Keywords,
			Reply:    e.Reply,
			Category: e.Category,
		})
	}

	tn, err := h.tenants.UpdateResponderEntries(c.Request.Context(), c.Param("sid"), entries)
	if err != nil {
		h.respondTenantError(c, err)
		return
	}
	utils.OKResponse(c, toTenantResponse(tn))
}

// UpdateHours handles PUT /api/tenants/:sid/hours.
func (h *TenantHandler) UpdateHours(c *gin.Context) {
	var req UpdateHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid hours update request", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request format", err.Error()))
		return
	}

	closed := make([]time.Weekday, 0, len(req.ClosedDays))
	for _, d := range req.ClosedDays {
		closed = append(closed, time.Weekday(d))
	}

	tn, err := h.tenants.UpdateHours(c.Request.Context(), c.Param("sid"), tenant.OperatingHours{
		StartHour:  req.StartHour,
		EndHour:    req.EndHour,
		Timezone:   req.Timezone,
		ClosedDays: closed,
	})
	if err != nil {
		h.respondTenantError(c, err)
		return
	}
	utils.OKResponse(c, toTenantResponse(tn))
}

// UpdateFallback handles PUT /api/tenants/:sid/fallback.
func (h *TenantHandler) UpdateFallback(c *gin.Context) {
	var req UpdateFallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid fallback update request", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request format", err.Error()))
		return
	}

	tn, err := h.tenants.UpdateFallbackMessage(c.Request.Context(), c.Param("sid"), req.Message)
	if err != nil {
		h.respondTenantError(c, err)
		return
	}
	utils.OKResponse(c, toTenantResponse(tn))
}

// SetOperators handles PUT /api/tenants/:sid/operators.
func (h *TenantHandler) SetOperators(c *gin.Context) {
	var req SetOperatorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid operators update request", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request format", err.Error()))
		return
	}

	tn, err := h.tenants.SetOperators(c.Request.Context(), c.Param("sid"), req.Operators)
	if err != nil {
		h.respondTenantError(c, err)
		return
	}
	utils.OKResponse(c, toTenantResponse(tn))
}

// AddIdentity handles POST /api/tenants/:sid/identities.
func (h *TenantHandler) AddIdentity(c *gin.Context) {
	var req AddIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid add identity request", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request format", err.Error()))
		return
	}

	tn, err := h.tenants.AddIdentity(c.Request.Context(), c.Param("sid"), req.Identity)
	if err != nil {
		h.respondTenantError(c, err)
		return
	}
	utils.OKResponse(c, toTenantResponse(tn))
}

// ActivateSubscription handles PUT /api/tenants/:sid/subscription. This is
// the hook a billing service calls after a successful payment.
func (h *TenantHandler) ActivateSubscription(c *gin.Context) {
	var req ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid subscription activation request", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request format", err.Error()))
		return
	}

	tier, err := tenant.NewTier(req.Tier)
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError(err.Error()))
		return
	}

	tn, err := h.tenants.ActivateSubscription(c.Request.Context(), c.Param("sid"), tier, req.PeriodEndsAt)
	if err != nil {
		h.respondTenantError(c, err)
		return
	}

	h.logger.Infow("subscription activated", "sid", tn.SID(), "tier", req.Tier)
	utils.OKResponse(c, toTenantResponse(tn))
}

// CancelSubscription handles DELETE /api/tenants/:sid/subscription.
func (h *TenantHandler) CancelSubscription(c *gin.Context) {
	tn, err := h.tenants.CancelSubscription(c.Request.Context(), c.Param("sid"))
	if err != nil {
		h.respondTenantError(c, err)
		return
	}

	h.logger.Infow("subscription cancelled", "sid", tn.SID())
	utils.OKResponse(c, toTenantResponse(tn))
}

func (h *TenantHandler) respondTenantError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, tenant.ErrTenantNotFound):
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("tenant not found"))
	case stderrors.Is(err, tenant.ErrIdentityTaken):
		utils.ErrorResponseWithError(c, errors.NewConflictError("network identity already registered"))
	case stderrors.Is(err, tenant.ErrNoIdentity):
		utils.ErrorResponseWithError(c, errors.NewValidationError(err.Error()))
	default:
		h.logger.Errorw("tenant operation failed", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "tenant operation failed")
	}
}
