package user

import (
	"errors"
	"net/http"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
)

// ErrorResponse maps user errors to an HTTP status and client message.
func ErrorResponse(err error) (int, string, bool) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound, "User not found.", true
	case errors.Is(err, ErrEmailTaken):
		return http.StatusBadRequest, "Email is already registered.", true
	case errors.Is(err, ErrUsernameTaken):
		return http.StatusBadRequest, "Username is already taken.", true
	case errors.Is(err, ErrInvalidRole):
		return http.StatusBadRequest, "Role must be one of user, admin, profesor.", true
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials.", true
	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, "You are not allowed to modify this user.", true
	}
	return 0, "", false
}
