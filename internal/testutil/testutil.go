// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/bootstrap"
	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
	"github.com/mo-amir99/course-enrollment-server/internal/utils/jwt"
	"github.com/mo-amir99/course-enrollment-server/pkg/config"
	"github.com/mo-amir99/course-enrollment-server/pkg/database"
	"github.com/mo-amir99/course-enrollment-server/pkg/logger"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

// JWTSecret signs every token issued by Token.
const JWTSecret = "test-secret"

// DefaultPassword is the plain password of fixture users.
const DefaultPassword = "secret123"

func init() {
	gin.SetMode(gin.TestMode)
}

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()),
	}

	db, err := database.Open(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))

	t.Cleanup(func() {
		_ = database.Close(db, logger.Discard())
	})
	return db
}

// NewAuth builds the auth middleware against db with JWTSecret.
func NewAuth(db *gorm.DB) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(db, JWTSecret, logger.Discard())
}

// UserOption customises a fixture user.
type UserOption func(*user.CreateInput)

// WithRole sets the fixture user's role.
func WithRole(role types.Role) UserOption {
	return func(in *user.CreateInput) { in.Role = role }
}

// WithPassword sets the fixture user's plain password.
func WithPassword(password string) UserOption {
	return func(in *user.CreateInput) { in.Password = password }
}

// WithUsername sets the fixture user's username. The email follows it.
func WithUsername(username string) UserOption {
	return func(in *user.CreateInput) {
		in.Username = username
		in.Email = username + "@example.com"
	}
}

// CreateUser inserts a user with a unique username and email.
func CreateUser(t *testing.T, db *gorm.DB, opts ...UserOption) user.User {
	t.Helper()

	suffix := strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	input := user.CreateInput{
		Name:     "Test",
		Lastname: "User",
		Username: "user_" + suffix,
		Email:    "user_" + suffix + "@example.com",
		Password: DefaultPassword,
		Role:     types.RoleUser,
	}
	for _, opt := range opts {
		opt(&input)
	}

	created, err := user.Create(db, input)
	require.NoError(t, err)
	return created
}

// CourseOption customises a fixture course.
type CourseOption func(*course.Course)

// Published marks the fixture course as published.
func Published() CourseOption {
	return func(c *course.Course) { c.IsPublished = true }
}

// WithPrice sets the fixture course's price.
func WithPrice(price float64) CourseOption {
	return func(c *course.Course) { c.Price = types.NewMoney(price) }
}

// WithTitle sets the fixture course's title.
func WithTitle(title string) CourseOption {
	return func(c *course.Course) { c.Title = title }
}

// WithCategory sets the fixture course's category.
func WithCategory(category types.CourseCategory) CourseOption {
	return func(c *course.Course) { c.Category = category }
}

// CreateCourse inserts a course owned by creatorID.
func CreateCourse(t *testing.T, db *gorm.DB, creatorID uuid.UUID, opts ...CourseOption) course.Course {
	t.Helper()

	c := course.Course{
		Title:       "Go Fundamentals",
		Description: "Learn Go from scratch",
		Category:    types.CategoryProgrammingFundamentals,
		Level:       types.LevelBeginner,
		Duration:    "10 hours",
		CreatedBy:   creatorID,
	}
	for _, opt := range opts {
		opt(&c)
	}

	require.NoError(t, db.Create(&c).Error)
	return c
}

// AddLesson attaches a lesson to courseID.
func AddLesson(t *testing.T, db *gorm.DB, courseID uuid.UUID, title string, order int) course.Lesson {
	t.Helper()

	lesson := course.Lesson{CourseID: courseID, Title: title, Order: order}
	require.NoError(t, db.Create(&lesson).Error)
	return lesson
}

// Enroll inserts an enrollment directly, bypassing the publish check.
// enrolledAt defaults to now.
func Enroll(t *testing.T, db *gorm.DB, userID, courseID uuid.UUID, enrolledAt ...time.Time) course.Enrollment {
	t.Helper()

	at := time.Now().UTC()
	if len(enrolledAt) > 0 {
		at = enrolledAt[0].UTC()
	}

	e := course.Enrollment{UserID: userID, CourseID: courseID, EnrolledAt: at, LastAccessed: at}
	require.NoError(t, db.Create(&e).Error)
	return e
}

// Token issues a bearer token for u.
func Token(t *testing.T, u user.User) string {
	t.Helper()

	token, err := jwt.GenerateAccessToken(jwt.Subject{ID: u.ID, Role: string(u.Role), Email: u.Email}, JWTSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// Envelope is the decoded response body.
type Envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      json.RawMessage `json:"error"`
	Pagination json.RawMessage `json:"pagination"`
}

// DoJSON sends a JSON request through handler. body may be nil and token empty.
func DoJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// Decode parses the envelope of rec and, when dst is non-nil, its data.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) Envelope {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst), string(env.Data))
	}
	return env
}
