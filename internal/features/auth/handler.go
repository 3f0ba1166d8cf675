package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
	"github.com/mo-amir99/course-enrollment-server/pkg/config"
	"github.com/mo-amir99/course-enrollment-server/pkg/metrics"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
)

// Mailer sends account emails. It may be nil.
type Mailer interface {
	Enabled() bool
	SendWelcome(to, name string) error
}

// Handler processes authentication HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	cfg    *config.Config
	mailer Mailer
}

// NewHandler constructs an auth handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, cfg *config.Config, mailer Mailer) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		cfg:    cfg,
		mailer: mailer,
	}
}

// Register creates a new user account.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid registration payload", err)
		return
	}

	created, err := Register(h.db.WithContext(c.Request.Context()), req)
	if err != nil {
		h.respondError(c, err, "Registration failed")
		return
	}

	metrics.RecordUserRegistered()
	h.logger.Info("user registered",
		slog.String("user_id", created.ID.String()),
		slog.String("username", created.Username),
	)

	if h.mailer != nil && h.mailer.Enabled() {
		go func(to, name string) {
			if err := h.mailer.SendWelcome(to, name); err != nil {
				h.logger.Error("failed to send welcome email",
					slog.String("email", to),
					slog.String("error", err.Error()))
			}
		}(created.Email, created.Name)
	}

	response.Created(c, created, "User registered successfully")
}

// Login authenticates a user and returns a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid login payload", err)
		return
	}

	authResp, err := Login(h.db.WithContext(c.Request.Context()), req, h.tokenConfig())
	if err != nil {
		h.respondError(c, err, "Login failed")
		return
	}

	response.OK(c, authResp, "Login successful")
}

func (h *Handler) tokenConfig() TokenConfig {
	return TokenConfig{
		JWTSecret: h.cfg.JWTSecret,
		Expiry:    h.cfg.JWTExpiry,
	}
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	if status, message, ok := errorResponse(err); ok {
		response.Error(c, status, message, nil)
		return
	}
	if appErr, ok := apperrors.As(err); ok {
		response.Error(c, appErr.StatusCode(), appErr.Message(), appErr.Fields())
		return
	}
	response.Internal(h.logger, c, fallback, err)
}
