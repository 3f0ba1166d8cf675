package course

import (
	"errors"
	"net/http"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
)

var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrCourseNotAvailable  = errors.New("course is not available")
	ErrAlreadyEnrolled     = errors.New("already enrolled in this course")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrInvalidProgress     = errors.New("progress must be a number")
	ErrImageUploadDisabled = errors.New("image uploads are not configured")
)

// ErrorResponse maps course errors to an HTTP status and client message.
func ErrorResponse(err error) (int, string, bool) {
	switch {
	case errors.Is(err, ErrCourseNotFound):
		return http.StatusNotFound, "Course not found.", true
	case errors.Is(err, ErrCourseNotAvailable):
		return http.StatusBadRequest, "This course is not available.", true
	case errors.Is(err, ErrAlreadyEnrolled):
		return http.StatusBadRequest, "You are already enrolled in this course.", true
	case errors.Is(err, ErrEnrollmentNotFound):
		return http.StatusNotFound, "Enrollment not found.", true
	case errors.Is(err, ErrInvalidProgress):
		return http.StatusBadRequest, "'progress' must be a number.", true
	case errors.Is(err, ErrImageUploadDisabled):
		return http.StatusServiceUnavailable, "Image uploads are not configured.", true
	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, "You do not have permission to modify this course.", true
	}
	return 0, "", false
}
