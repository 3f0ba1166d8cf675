package user

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
)

// Handler processes self-service user requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a user handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Update changes the profile of the user named by :identifier. Callers may
// edit themselves; admins may edit anyone. Role cannot be changed here.
func (h *Handler) Update(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.Role = nil

	db := h.db.WithContext(c.Request.Context())

	target, err := Resolve(db, c.Param("identifier"))
	if err != nil {
		h.respondError(c, err, "Failed to load user")
		return
	}

	decision := authz.Authorize(requester.Subject(), authz.UserUpdate, target.Resource())
	updated, err := Update(db, target, req, decision)
	if err != nil {
		h.respondError(c, err, "Failed to update user")
		return
	}

	response.OK(c, updated, "User updated successfully")
}

// Delete removes the caller's own account (admins may remove anyone).
func (h *Handler) Delete(c *gin.Context) {
	h.delete(c, authz.UserDelete)
}

// AdminDelete removes any account. Mounted behind the admin gate.
func (h *Handler) AdminDelete(c *gin.Context) {
	h.delete(c, authz.UserDeleteAny)
}

func (h *Handler) delete(c *gin.Context, action authz.Action) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	db := h.db.WithContext(c.Request.Context())

	target, err := Resolve(db, c.Param("identifier"))
	if err != nil {
		h.respondError(c, err, "Failed to load user")
		return
	}

	decision := authz.Authorize(requester.Subject(), action, target.Resource())
	summary, err := Delete(db, target, decision)
	if err != nil {
		h.respondError(c, err, "Failed to delete user")
		return
	}

	h.logger.Info("user deleted",
		slog.String("user_id", summary.ID.String()),
		slog.String("deleted_by", requester.ID.String()),
		slog.String("action", string(action)),
	)
	response.OK(c, summary, "User deleted successfully")
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	if status, message, ok := ErrorResponse(err); ok {
		response.Error(c, status, message, nil)
		return
	}
	if appErr, ok := apperrors.As(err); ok {
		response.Error(c, appErr.StatusCode(), appErr.Message(), appErr.Fields())
		return
	}
	response.Internal(h.logger, c, fallback, err)
}
