package admin

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
	"github.com/mo-amir99/course-enrollment-server/pkg/pagination"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
)

// Handler serves the admin surface.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	logDir string
	now    func() time.Time
}

// NewHandler constructs an admin handler. logDir is where the server writes
// its log files and may be empty.
func NewHandler(db *gorm.DB, logger *slog.Logger, logDir string) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		logDir: logDir,
		now:    time.Now,
	}
}

// GetDashboardStats returns platform totals and ratios.
// GET /admin/dashboard/stats
func (h *Handler) GetDashboardStats(c *gin.Context) {
	stats, err := Dashboard(c.Request.Context(), h.db)
	if err != nil {
		response.Internal(h.logger, c, "Failed to retrieve dashboard data", err)
		return
	}

	response.NoStore(c)
	response.OK(c, stats, "")
}

// GetEnrollmentStats returns enrollments grouped by day and by course.
// GET /admin/stats/enrollments?timeRange=week|month|quarter|year
func (h *Handler) GetEnrollmentStats(c *gin.Context) {
	timeRange := ParseTimeRange(c.Query("timeRange"))

	stats, err := Enrollments(h.db.WithContext(c.Request.Context()), timeRange, h.now())
	if err != nil {
		response.Internal(h.logger, c, "Failed to retrieve enrollment statistics", err)
		return
	}

	response.OK(c, stats, "")
}

// GetCourseEnrollments lists the students of a course.
// GET /admin/courses/:courseId/enrollments
func (h *Handler) GetCourseEnrollments(c *gin.Context) {
	courseID, ok := parseID(c, "courseId", course.ErrCourseNotFound)
	if !ok {
		return
	}

	list, err := CourseEnrollments(h.db.WithContext(c.Request.Context()), courseID)
	if err != nil {
		h.respondError(c, err, "Failed to load course enrollments")
		return
	}

	response.OK(c, list, "")
}

// GetUserEnrollments pages users with their enrollments and spend.
// GET /admin/user-enrollments?page=&limit=&search=
func (h *Handler) GetUserEnrollments(c *gin.Context) {
	params := pagination.ExtractWithLimit(c, userEnrollmentsPageSize)

	page, err := ListUserEnrollments(h.db.WithContext(c.Request.Context()), user.ListFilters{Search: c.Query("search")}, params)
	if err != nil {
		response.Internal(h.logger, c, "Failed to load user enrollments", err)
		return
	}

	response.OK(c, page, "")
}

// ListUsers pages users with enrollment counters.
// GET /admin/users?page=&limit=&search=
func (h *Handler) ListUsers(c *gin.Context) {
	params := pagination.Extract(c)

	users, total, err := ListUsers(h.db.WithContext(c.Request.Context()), user.ListFilters{Search: c.Query("search")}, params)
	if err != nil {
		response.Internal(h.logger, c, "Failed to load users", err)
		return
	}

	response.Success(c, http.StatusOK, users, "", pagination.MetadataFrom(total, params))
}

// CreateUser adds an account with any role.
// POST /admin/users
func (h *Handler) CreateUser(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req user.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	decision := authz.Authorize(requester.Subject(), authz.AdminAccess, authz.Resource{})
	created, err := CreateUser(h.db.WithContext(c.Request.Context()), req, decision)
	if err != nil {
		h.respondError(c, err, "Failed to create user")
		return
	}

	h.logger.Info("user created by admin",
		slog.String("user_id", created.ID.String()),
		slog.String("role", string(created.Role)),
		slog.String("created_by", requester.ID.String()),
	)
	response.Created(c, created, "User created successfully")
}

// UpdateUser edits an account. Role may change; password may not.
// PUT /admin/users/:userId
func (h *Handler) UpdateUser(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	id, ok := parseID(c, "userId", user.ErrUserNotFound)
	if !ok {
		return
	}

	var req user.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	decision := authz.Authorize(requester.Subject(), authz.AdminAccess, authz.Resource{})
	updated, err := UpdateUser(h.db.WithContext(c.Request.Context()), id, req, decision)
	if err != nil {
		h.respondError(c, err, "Failed to update user")
		return
	}

	response.OK(c, updated, "User updated successfully")
}

// DeleteUser removes an account. Enrollments are kept.
// DELETE /admin/users/:userId
func (h *Handler) DeleteUser(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	id, ok := parseID(c, "userId", user.ErrUserNotFound)
	if !ok {
		return
	}

	decision := authz.Authorize(requester.Subject(), authz.UserDeleteAny, authz.Resource{OwnerID: id})
	summary, err := DeleteUser(h.db.WithContext(c.Request.Context()), id, decision)
	if err != nil {
		h.respondError(c, err, "Failed to delete user")
		return
	}

	h.logger.Info("user deleted by admin",
		slog.String("user_id", summary.ID.String()),
		slog.String("deleted_by", requester.ID.String()),
	)
	response.OK(c, summary, "User deleted successfully")
}

// GetSystemStats returns memory, CPU and disk statistics.
// GET /admin/system-stats
func (h *Handler) GetSystemStats(c *gin.Context) {
	response.OK(c, System(), "")
}

// GetSystemLogs returns the last lines of info.log or error.log.
// GET /admin/logs?type=info|error&lines=100
func (h *Handler) GetSystemLogs(c *gin.Context) {
	lines, _ := strconv.Atoi(c.DefaultQuery("lines", strconv.Itoa(defaultLogLines)))
	logType, lines := NormalizeLogRequest(c.DefaultQuery("type", "info"), lines)

	tail, err := TailLog(h.logDir, logType, lines)
	if err != nil {
		h.respondError(c, err, "Failed to read log file")
		return
	}

	response.OK(c, tail, "")
}

// parseID reads a uuid path parameter. Malformed ids answer with notFound.
func parseID(c *gin.Context, param string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		status, message, _ := ErrorResponse(notFound)
		response.Error(c, status, message, nil)
		return uuid.Nil, false
	}
	return id, true
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
