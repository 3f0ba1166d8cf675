package course

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
	"github.com/mo-amir99/course-enrollment-server/pkg/metrics"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
)

type progressRequest struct {
	Progress *float64 `json:"progress"`
}

// MyCourses lists the caller's enrolled courses with their progress.
func (h *Handler) MyCourses(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	courses, err := MyCourses(h.db.WithContext(c.Request.Context()), requester.ID)
	if err != nil {
		response.Internal(h.logger, c, "Failed to load your courses", err)
		return
	}

	response.NoStore(c)
	response.OK(c, courses, "")
}

// Enroll registers the caller in a published course.
func (h *Handler) Enroll(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	courseID, ok := parseID(c, "courseId", ErrCourseNotFound)
	if !ok {
		return
	}

	enrollment, err := Enroll(h.db.WithContext(c.Request.Context()), requester.ID, courseID)
	if err != nil {
		h.respondError(c, err, "Failed to enroll in course")
		return
	}

	metrics.RecordEnrollmentCreated()
	h.events.Publish(EventEnrollmentCreated, gin.H{
		"enrollmentId": enrollment.ID,
		"userId":       requester.ID,
		"username":     requester.Username,
		"courseId":     courseID,
	})

	h.logger.Info("user enrolled",
		slog.String("user_id", requester.ID.String()),
		slog.String("course_id", courseID.String()),
	)
	response.OK(c, enrollment, "Enrolled in course successfully")
}

// UpdateProgress records progress on one of the caller's enrollments.
func (h *Handler) UpdateProgress(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	enrollmentID, ok := parseID(c, "enrollmentId", ErrEnrollmentNotFound)
	if !ok {
		return
	}

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Progress == nil {
		h.respondError(c, ErrInvalidProgress, "Invalid progress payload")
		return
	}

	enrollment, completed, err := UpdateProgress(h.db.WithContext(c.Request.Context()), enrollmentID, requester.ID, *req.Progress)
	if err != nil {
		h.respondError(c, err, "Failed to update progress")
		return
	}

	if completed {
		recordCompletion(enrollment, h.events)
	}

	response.OK(c, enrollment, "Progress updated successfully")
}

func recordCompletion(enrollment Enrollment, events Publisher) {
	metrics.RecordEnrollmentCompleted()
	events.Publish(EventEnrollmentCompleted, gin.H{
		"enrollmentId": enrollment.ID,
		"userId":       enrollment.UserID,
		"courseId":     enrollment.CourseID,
	})
}
