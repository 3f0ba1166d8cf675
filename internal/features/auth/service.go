package auth

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/internal/utils/jwt"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

// RegisterInput is the public registration payload.
type RegisterInput struct {
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput accepts an email or a username as identifier.
type LoginInput struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// TokenConfig controls token issuance.
type TokenConfig struct {
	JWTSecret string
	Expiry    time.Duration
}

// Register creates a regular user account. Self-registration never grants
// a staff role.
func Register(db *gorm.DB, input RegisterInput) (user.User, error) {
	return user.Create(db, user.CreateInput{
		Name:     input.Name,
		Lastname: input.Lastname,
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Role:     types.RoleUser,
	})
}

// Login verifies credentials and issues an access token.
func Login(db *gorm.DB, input LoginInput, cfg TokenConfig) (AuthResponse, error) {
	identifier := firstNonEmpty(input.Identifier, input.Email, input.Username)
	if identifier == "" || input.Password == "" {
		return AuthResponse{}, ErrMissingCredentials
	}

	found, err := user.FindByLogin(db, identifier)
	if err != nil {
		return AuthResponse{}, err
	}

	if !found.ComparePassword(input.Password) {
		return AuthResponse{}, user.ErrInvalidCredentials
	}

	token, err := jwt.GenerateAccessToken(jwt.Subject{
		ID:    found.ID,
		Role:  string(found.Role),
		Email: found.Email,
	}, cfg.JWTSecret, cfg.Expiry)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{Token: token, User: found}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
