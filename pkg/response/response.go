package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      interface{} `json:"error,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// Success writes a success response with optional message and data.
func Success(c *gin.Context, status int, data interface{}, message string, pagination interface{}) {
	c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}

// OK is shorthand for a 200 success.
func OK(c *gin.Context, data interface{}, message string) {
	Success(c, http.StatusOK, data, message, nil)
}

// Created is a convenience helper for POST 201 responses.
func Created(c *gin.Context, data interface{}, message string) {
	Success(c, http.StatusCreated, data, message, nil)
}

// Error writes an error response. Errors are rendered as their message;
// other detail values (such as field maps) are passed through.
func Error(c *gin.Context, status int, message string, detail interface{}) {
	switch d := detail.(type) {
	case error:
		detail = d.Error()
	case map[string]string:
		if len(d) == 0 {
			detail = nil
		}
	}
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   detail,
	})
}

// ErrorWithLog logs err and writes an error response. The raw error text is
// echoed only outside release mode.
func ErrorWithLog(logger *slog.Logger, c *gin.Context, status int, message string, err error) {
	if logger != nil && err != nil {
		logger.ErrorContext(c.Request.Context(), message,
			slog.Int("status", status),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
	}

	if err == nil || gin.Mode() == gin.ReleaseMode {
		Error(c, status, message, nil)
		return
	}
	Error(c, status, message, err)
}

// Internal is ErrorWithLog with a 500 status.
func Internal(logger *slog.Logger, c *gin.Context, message string, err error) {
	if err == nil {
		err = errors.New(message)
	}
	ErrorWithLog(logger, c, http.StatusInternalServerError, message, err)
}
