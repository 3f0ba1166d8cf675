package auth

import (
	"errors"
	"net/http"

	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
)

var ErrMissingCredentials = errors.New("identifier and password are required")

func errorResponse(err error) (int, string, bool) {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return http.StatusBadRequest, "Email or username and password are required.", true
	case errors.Is(err, user.ErrUserNotFound):
		return http.StatusBadRequest, "User not found.", true
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials.", true
	}
	return user.ErrorResponse(err)
}
