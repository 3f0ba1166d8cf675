package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/utils/jwt"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

const (
	contextUserKey   = "user"
	contextUserIDKey = "userId"
)

// User is the authenticated caller as loaded by the middleware.
type User struct {
	ID       uuid.UUID  `gorm:"column:id;primaryKey"`
	Name     string     `gorm:"column:name"`
	Lastname string     `gorm:"column:lastname"`
	Username string     `gorm:"column:username"`
	Email    string     `gorm:"column:email"`
	Role     types.Role `gorm:"column:role"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// Subject converts the user into a policy subject.
func (u *User) Subject() authz.Subject {
	return authz.Subject{ID: u.ID, Role: u.Role}
}

// AuthMiddleware verifies bearer tokens and gates routes by policy.
type AuthMiddleware struct {
	db        *gorm.DB
	jwtSecret string
	logger    *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(db *gorm.DB, jwtSecret string, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		db:        db,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Authenticate validates the bearer token and loads the user into context.
// The user is re-read on every request.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.ensureAuthenticated(c); !ok {
			return
		}
		c.Next()
	}
}

// Authorize denies with 403 unless the policy allows the caller action on
// an unowned resource. Ownership checks happen in the use-case.
func (m *AuthMiddleware) Authorize(action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		usr, ok := GetUserFromContext(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "User not authenticated", nil)
			return
		}

		decision := authz.Authorize(usr.Subject(), action, authz.Resource{})
		if !decision.Allowed {
			m.logger.Debug("access denied",
				slog.String("user_id", usr.ID.String()),
				slog.String("action", string(action)),
				slog.String("reason", decision.Reason),
			)
			response.Error(c, http.StatusForbidden, "Access denied: Insufficient permissions.", nil)
			return
		}

		c.Next()
	}
}

// Require returns the authentication handler followed by a policy gate.
func (m *AuthMiddleware) Require(action authz.Action) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Authenticate(),
		m.Authorize(action),
	}
}

// GetUserFromContext retrieves the authenticated user from the Gin context.
func GetUserFromContext(c *gin.Context) (*User, bool) {
	userVal, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}

	usr, ok := userVal.(*User)
	return usr, ok && usr != nil
}

// SetUser stores usr as the authenticated caller. Exposed for handler tests.
func SetUser(c *gin.Context, usr *User) {
	c.Set(contextUserKey, usr)
	c.Set(contextUserIDKey, usr.ID)
}

func (m *AuthMiddleware) ensureAuthenticated(c *gin.Context) (*User, bool) {
	if usr, ok := GetUserFromContext(c); ok {
		return usr, true
	}

	authHeader := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		response.Error(c, http.StatusUnauthorized, "No token provided", nil)
		return nil, false
	}

	claims, err := jwt.VerifyToken(token, m.jwtSecret)
	if err != nil {
		message := "Invalid token"
		if errors.Is(err, jwt.ErrExpiredToken) {
			message = "Token expired"
		}
		response.Error(c, http.StatusUnauthorized, message, nil)
		return nil, false
	}

	var usr User
	if err := m.db.WithContext(c.Request.Context()).First(&usr, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusUnauthorized, "User not found", nil)
			return nil, false
		}
		response.ErrorWithLog(m.logger, c, http.StatusInternalServerError, "Failed to load user", err)
		return nil, false
	}

	SetUser(c, &usr)
	return &usr, true
}
