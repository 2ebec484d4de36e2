package handler

import (
	"errors"
	"net/http"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/service"
	"rideshare/pkg/auth"
	"rideshare/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler exposes the ride and participant services over HTTP.
type Handler struct {
	rides  *service.RideService
	people *service.ParticipantService
	jwt    *auth.JWTManager
	ws     http.Handler
	log    logger.Logger

	devTokens bool
}

// Option customizes a Handler.
type Option func(*Handler)

// WithDevTokens mounts POST /auth/token. Off by default.
func WithDevTokens(enabled bool) Option {
	return func(h *Handler) { h.devTokens = enabled }
}

// New builds the handler. ws may be nil when websocket delivery is off.
func New(rides *service.RideService, people *service.ParticipantService, jwt *auth.JWTManager, ws http.Handler, log logger.Logger, opts ...Option) *Handler {
	h := &Handler{rides: rides, people: people, jwt: jwt, ws: ws, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	if h.devTokens {
		r.POST("/auth/token", h.IssueToken)
	}
	if h.ws != nil {
		r.GET("/ws", gin.WrapH(h.ws))
	}

	api := r.Group("/", h.jwt.RequireAuth())

	riders := api.Group("/riders")
	riders.POST("", auth.RequireRole(auth.RoleRider), h.RegisterRider)
	riders.GET("/:id", h.GetRider)
	riders.GET("/:id/history", auth.RequireRole(auth.RoleRider), h.RiderHistory)

	drivers := api.Group("/drivers")
	drivers.POST("", auth.RequireRole(auth.RoleDriver), h.RegisterDriver)
	drivers.GET("", h.ListDrivers)
	drivers.GET("/:id", h.GetDriver)
	drivers.PUT("/:id/availability", auth.RequireRole(auth.RoleDriver), h.SetAvailability)
	drivers.GET("/:id/availability", h.GetAvailability)
	drivers.GET("/:id/rides", auth.RequireRole(auth.RoleDriver), h.DriverRides)
	drivers.GET("/:id/requestable", auth.RequireRole(auth.RoleDriver), h.RequestableFor)

	requests := api.Group("/requests")
	requests.POST("", auth.RequireRole(auth.RoleRider), h.RequestRide)
	requests.GET("/open", auth.RequireRole(auth.RoleDriver), h.ListOpenRequests)
	requests.GET("/:id", h.GetRequest)
	requests.POST("/:id/match", auth.RequireRole(auth.RoleRider), h.MatchRide)
	requests.POST("/:id/cancel", auth.RequireRole(auth.RoleRider), h.CancelRequest)

	rides := api.Group("/rides")
	rides.GET("/active", auth.RequireRole(auth.RoleAdmin), h.ListActiveRides)
	rides.GET("/:id", h.GetRide)
	rides.GET("/:id/payments", h.RidePayments)
	rides.POST("/:id/accept", auth.RequireRole(auth.RoleDriver), h.AcceptRide)
	rides.POST("/:id/start", auth.RequireRole(auth.RoleDriver), h.StartRide)
	rides.POST("/:id/complete", auth.RequireRole(auth.RoleDriver), h.CompleteRide)

	api.GET("/fares/preview", h.PreviewFare)
	api.GET("/admin/overview", auth.RequireRole(auth.RoleAdmin), h.AdminOverview)

	wallets := api.Group("/wallets")
	wallets.POST("/:id/top-up", h.TopUpWallet)
	wallets.GET("/:id", h.GetWallet)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type tokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// IssueToken is a development token issuer. It never mints admin tokens.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		badRequest(c, err)
		return
	}
	if role == auth.RoleAdmin {
		h.log.WithFields(logger.LogFields{"user_id": req.UserID}).Warn("issue_token_rejected", "admin tokens are not issued over HTTP")
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "admin tokens are not issued over HTTP"})
		return
	}

	token, err := h.jwt.GenerateToken(req.UserID, role)
	if err != nil {
		h.log.Error("generate_token_failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"user_id": req.UserID,
		"role":    role,
	})
}

// actingAs returns the user an operation runs for. Admins may act for
// anyone; everyone else only for themselves. An empty requested id means
// the caller.
func actingAs(c *gin.Context, requested string) (string, bool) {
	claims, ok := auth.GetClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "not authenticated"})
		return "", false
	}
	if requested == "" {
		return claims.UserID, true
	}
	if claims.Role != auth.RoleAdmin && requested != claims.UserID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "cannot act for another user"})
		return "", false
	}
	return requested, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
}

// writeError maps the error taxonomy to status codes.
func (h *Handler) writeError(c *gin.Context, action string, err error) {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		status, kind = http.StatusConflict, "invalid_state_transition"
	case errors.Is(err, domain.ErrResourceBusy):
		status, kind = http.StatusLocked, "resource_busy"
	case errors.Is(err, domain.ErrConcurrentModification):
		status, kind = http.StatusConflict, "concurrent_modification"
	case errors.Is(err, domain.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrNoDriverAvailable):
		status, kind = http.StatusConflict, "no_driver_available"
	}

	if status == http.StatusInternalServerError {
		h.log.WithFields(logger.LogFields{"path": c.FullPath()}).Error(action, err)
		c.JSON(status, gin.H{"error": kind, "message": "internal error"})
		return
	}
	if domain.IsRetryable(err) {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, gin.H{"error": kind, "message": err.Error()})
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domain.NewValidationError("requested_at", "must be RFC3339")
	}
	return t, nil
}
