package http

import (
	"github.com/gin-gonic/gin"

	"github.com/replygate/replygate/internal/infrastructure/config"
	"github.com/replygate/replygate/internal/infrastructure/ratelimit"
	"github.com/replygate/replygate/internal/interfaces/http/handlers"
	"github.com/replygate/replygate/internal/interfaces/http/middleware"
	"github.com/replygate/replygate/internal/shared/logger"
	"github.com/replygate/replygate/internal/shared/utils"
)

// Router wires the HTTP surface: tenant administration and session control.
type Router struct {
	engine         *gin.Engine
	tenantHandler  *handlers.TenantHandler
	sessionHandler *handlers.SessionHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    ratelimit.RateLimiter
	logger         logger.Interface
}

func NewRouter(
	tenantHandler *handlers.TenantHandler,
	sessionHandler *handlers.SessionHandler,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter ratelimit.RateLimiter,
) *Router {
	return &Router{
		engine:         gin.New(),
		tenantHandler:  tenantHandler,
		sessionHandler: sessionHandler,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		logger:         logger.NewLogger(),
	}
}

// SetupRoutes registers middleware and all route groups.
func (r *Router) SetupRoutes(cfg *config.Config) {
	gin.SetMode(cfg.Server.Mode)

	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.engine.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, gin.H{"status": "ok"})
	})

	r.setupTenantRoutes()
	r.setupSessionRoutes(cfg)
}

func (r *Router) setupTenantRoutes() {
	tenants := r.engine.Group("/api/tenants")
	tenants.Use(r.authMiddleware.RequireAuth())
	{
		tenants.POST("", r.authMiddleware.RequireAdmin(), r.tenantHandler.CreateTenant)

		scoped := tenants.Group("/:sid")
		scoped.Use(r.authMiddleware.RequireTenantAccess())
		{
			scoped.GET("", r.tenantHandler.GetTenant)
			scoped.PUT("/responder", r.tenantHandler.UpdateResponder)
			scoped.PUT("/hours", r.tenantHandler.UpdateHours)
			scoped.PUT("/fallback", r.tenantHandler.UpdateFallback)
			scoped.PUT("/operators", r.tenantHandler.SetOperators)
			scoped.POST("/identities", r.tenantHandler.AddIdentity)

			// Subscription transitions come from the billing service,
			// not from tenants themselves.
			scoped.PUT("/subscription", r.authMiddleware.RequireAdmin(), r.tenantHandler.ActivateSubscription)
			scoped.DELETE("/subscription", r.authMiddleware.RequireAdmin(), r.tenantHandler.CancelSubscription)
		}
	}
}

func (r *Router) setupSessionRoutes(cfg *config.Config) {
	connectLimit := middleware.ConnectLimit(r.rateLimiter, ratelimit.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.ConnectPerMinute,
		RequestsPerHour:   cfg.RateLimit.ConnectPerHour,
	}, r.logger)

	sessions := r.engine.Group("/api/sessions/:sid")
	sessions.Use(r.authMiddleware.RequireAuth())
	sessions.Use(r.authMiddleware.RequireTenantAccess())
	{
		sessions.POST("/connect", connectLimit, r.sessionHandler.Connect)
		sessions.GET("/pairing-code", r.sessionHandler.PairingCode)
		sessions.POST("/disconnect", r.sessionHandler.Disconnect)
		sessions.GET("/status", r.sessionHandler.Status)
		sessions.GET("/health", r.sessionHandler.Health)
		sessions.POST("/messages", r.sessionHandler.SendMessage)
	}
}

// GetEngine exposes the underlying gin engine for the HTTP server.
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
