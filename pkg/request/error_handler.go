package request

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
)

// Handler renders errors that handlers attached with c.Error and did not
// answer themselves.
func Handler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := errors.Join(errorsFromContext(c.Errors)...)
		if err == nil {
			return
		}

		if appErr, ok := apperrors.As(err); ok {
			if appErr.StatusCode() >= http.StatusInternalServerError {
				response.ErrorWithLog(logger, c, appErr.StatusCode(), appErr.Message(), err)
				return
			}
			detail := interface{}(nil)
			if fields := appErr.Fields(); len(fields) > 0 {
				detail = fields
			}
			response.Error(c, appErr.StatusCode(), appErr.Message(), detail)
			return
		}

		status, message := classify(err)
		if status >= http.StatusInternalServerError {
			response.ErrorWithLog(logger, c, status, message, err)
			return
		}
		response.Error(c, status, message, nil)
	}
}

func errorsFromContext(errs []*gin.Error) []error {
	list := make([]error, 0, len(errs))
	for _, item := range errs {
		if item != nil && item.Err != nil {
			list = append(list, item.Err)
		}
	}
	return list
}

func classify(err error) (int, string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, "Resource not found"
	}

	if strings.Contains(err.Error(), "invalid input syntax for type uuid") {
		return http.StatusBadRequest, "Invalid ID format"
	}

	return http.StatusInternalServerError, "Internal server error"
}
