package admin

import (
	"errors"
	"net/http"

	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
)

var ErrLogNotFound = errors.New("log file not found")

// ErrorResponse maps admin errors to an HTTP status and client message.
// Course and user errors are delegated to their features.
func ErrorResponse(err error) (int, string, bool) {
	if errors.Is(err, ErrLogNotFound) {
		return http.StatusNotFound, "Log file not found.", true
	}
	if status, message, ok := course.ErrorResponse(err); ok {
		return status, message, true
	}
	return user.ErrorResponse(err)
}
