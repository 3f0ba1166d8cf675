package course_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/testutil"
	"github.com/mo-amir99/course-enrollment-server/pkg/imagehost"
	"github.com/mo-amir99/course-enrollment-server/pkg/logger"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

type fakeImages struct {
	mu      sync.Mutex
	uploads []string
	deleted []string
}

func (f *fakeImages) Enabled() bool { return true }

func (f *fakeImages) Upload(_ context.Context, data []byte, filename, folder string) (*imagehost.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := folder + "/" + filename
	f.uploads = append(f.uploads, id)
	return &imagehost.UploadResult{URL: "https://cdn.example.com/" + id, PublicID: id, Size: int64(len(data))}, nil
}

func (f *fakeImages) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

type recordedEvent struct {
	name    string
	payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{name: event, payload: payload})
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

func newRouter(db *gorm.DB, images course.ImageStore, events course.Publisher) *gin.Engine {
	router := gin.New()
	handler := course.NewHandler(db, logger.Discard(), images, events)
	course.RegisterRoutes(router.Group("/courses"), handler, testutil.NewAuth(db))
	return router
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, image []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "cover.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCreateCoursePermissions(t *testing.T) {
	db := testutil.NewDB(t)
	router := newRouter(db, nil, nil)

	student := testutil.CreateUser(t, db)
	profesor := testutil.CreateUser(t, db, testutil.WithRole(types.RoleProfesor))

	body := gin.H{
		"title":       "Kubernetes in Practice",
		"description": "Deploying services",
		"category":    "devops",
		"level":       "intermediate",
		"price":       19.5,
		"duration":    "8 hours",
		"lessons":     []gin.H{{"title": "Pods", "order": 1}},
	}

	rec := testutil.DoJSON(t, router, http.MethodPost, "/courses/create", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodPost, "/courses/create", body, testutil.Token(t, student))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodPost, "/courses/create", body, testutil.Token(t, profesor))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created course.Course
	env := testutil.Decode(t, rec, &created)
	assert.Equal(t, "Course created successfully", env.Message)
	assert.Equal(t, profesor.ID, created.CreatedBy)
	assert.Len(t, created.Lessons, 1)
	assert.False(t, created.IsPublished)

	bad := gin.H{"title": "x", "category": "devops"}
	rec = testutil.DoJSON(t, router, http.MethodPost, "/courses/create", bad, testutil.Token(t, profesor))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCourseMultipart(t *testing.T) {
	db := testutil.NewDB(t)
	images := &fakeImages{}
	router := newRouter(db, images, nil)
	admin := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))

	fields := map[string]string{
		"title":       "Design Systems",
		"description": "Tokens and components",
		"category":    "ui-ux-design",
		"level":       "beginner",
		"price":       "12.00",
		"duration":    "3 hours",
		"isPublished": "true",
		"lessons":     `[{"title":"Tokens","order":1}]`,
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, http.MethodPost, "/courses/create", testutil.Token(t, admin), fields, pngBytes(t)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created course.Course
	testutil.Decode(t, rec, &created)
	assert.True(t, created.IsPublished)
	assert.Equal(t, "https://cdn.example.com/courses/cover.png", created.Image)
	assert.Equal(t, "courses/cover.png", created.ImagePublicID)
	assert.Len(t, created.Lessons, 1)
	assert.Equal(t, []string{"courses/cover.png"}, images.uploads)

	t.Run("rejects non images", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, http.MethodPost, "/courses/create", testutil.Token(t, admin), fields, []byte("plain text, not an image")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("uploads disabled", func(t *testing.T) {
		disabled := newRouter(db, nil, nil)
		rec := httptest.NewRecorder()
		disabled.ServeHTTP(rec, multipartRequest(t, http.MethodPost, "/courses/create", testutil.Token(t, admin), fields, pngBytes(t)))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("invalid course removes uploaded image", func(t *testing.T) {
		invalid := map[string]string{"title": "No", "category": "ui-ux-design"}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, http.MethodPost, "/courses/create", testutil.Token(t, admin), invalid, pngBytes(t)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"courses/cover.png"}, images.deleted)
	})
}

func TestUpdateCourseOwnership(t *testing.T) {
	db := testutil.NewDB(t)
	router := newRouter(db, nil, nil)

	admin := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	owner := testutil.CreateUser(t, db, testutil.WithRole(types.RoleProfesor))
	stranger := testutil.CreateUser(t, db, testutil.WithRole(types.RoleProfesor))
	c := testutil.CreateCourse(t, db, owner.ID)
	path := "/courses/update/" + c.ID.String()

	rec := testutil.DoJSON(t, router, http.MethodPut, path, gin.H{"title": "Stolen"}, testutil.Token(t, stranger))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodPut, path, gin.H{"title": "Owner edit"}, testutil.Token(t, owner))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = testutil.DoJSON(t, router, http.MethodPut, path, gin.H{"isPublished": true}, testutil.Token(t, admin))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated course.Course
	testutil.Decode(t, rec, &updated)
	assert.Equal(t, "Owner edit", updated.Title)
	assert.True(t, updated.IsPublished)

	rec = testutil.DoJSON(t, router, http.MethodPut, "/courses/update/not-a-uuid", gin.H{"title": "x"}, testutil.Token(t, admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCourseReplacesImage(t *testing.T) {
	db := testutil.NewDB(t)
	images := &fakeImages{}
	router := newRouter(db, images, nil)

	admin := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	c := testutil.CreateCourse(t, db, admin.ID)
	require.NoError(t, db.Model(&course.Course{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"image":           "https://cdn.example.com/courses/old.png",
		"image_public_id": "courses/old.png",
	}).Error)
	path := "/courses/update/" + c.ID.String()
	token := testutil.Token(t, admin)

	t.Run("rejected update keeps the current image", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, http.MethodPut, path, token, map[string]string{"title": "No"}, pngBytes(t)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"courses/cover.png"}, images.deleted)

		stored, err := course.Get(db, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "courses/old.png", stored.ImagePublicID)
	})

	t.Run("accepted update removes the previous image", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, http.MethodPut, path, token, map[string]string{"title": "New cover"}, pngBytes(t)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"courses/cover.png", "courses/old.png"}, images.deleted)

		var updated course.Course
		testutil.Decode(t, rec, &updated)
		assert.Equal(t, "courses/cover.png", updated.ImagePublicID)
		assert.Equal(t, "New cover", updated.Title)
	})
}

func TestDeleteCourseHandler(t *testing.T) {
	db := testutil.NewDB(t)
	images := &fakeImages{}
	events := &fakePublisher{}
	router := newRouter(db, images, events)

	admin := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	profesor := testutil.CreateUser(t, db, testutil.WithRole(types.RoleProfesor))
	c := testutil.CreateCourse(t, db, profesor.ID, testutil.Published())
	require.NoError(t, db.Model(&c).Update("image_public_id", "courses/old.png").Error)
	for i := 0; i < 2; i++ {
		testutil.Enroll(t, db, testutil.CreateUser(t, db).ID, c.ID)
	}

	path := "/courses/" + c.ID.String()
	rec := testutil.DoJSON(t, router, http.MethodDelete, path, nil, testutil.Token(t, profesor))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodDelete, path, nil, testutil.Token(t, admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result course.DeleteResult
	testutil.Decode(t, rec, &result)
	assert.EqualValues(t, 2, result.EnrollmentsRemoved)
	assert.Equal(t, []string{"courses/old.png"}, images.deleted)
	assert.Equal(t, []string{course.EventCourseDeleted}, events.names())

	rec = testutil.DoJSON(t, router, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnrollmentFlow(t *testing.T) {
	db := testutil.NewDB(t)
	events := &fakePublisher{}
	router := newRouter(db, nil, events)

	admin := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	student := testutil.CreateUser(t, db)
	token := testutil.Token(t, student)
	c := testutil.CreateCourse(t, db, admin.ID, testutil.Published())
	draft := testutil.CreateCourse(t, db, admin.ID)

	rec := testutil.DoJSON(t, router, http.MethodPost, "/courses/enroll/"+c.ID.String(), nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodPost, "/courses/enroll/"+draft.ID.String(), nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodPost, "/courses/enroll/"+c.ID.String(), nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var enrollment course.Enrollment
	testutil.Decode(t, rec, &enrollment)
	assert.Equal(t, 0, enrollment.Progress)

	rec = testutil.DoJSON(t, router, http.MethodPost, "/courses/enroll/"+c.ID.String(), nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	progressPath := "/courses/progress/" + enrollment.ID.String()

	rec = testutil.DoJSON(t, router, http.MethodPut, progressPath, gin.H{"progress": "lots"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodPut, progressPath, gin.H{}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodPut, progressPath, gin.H{"progress": 140}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &enrollment)
	assert.Equal(t, 100, enrollment.Progress)
	assert.True(t, enrollment.Completed)

	other := testutil.Token(t, testutil.CreateUser(t, db))
	rec = testutil.DoJSON(t, router, http.MethodPut, progressPath, gin.H{"progress": 10}, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/courses/my-courses", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []map[string]json.RawMessage
	testutil.Decode(t, rec, &mine)
	require.Len(t, mine, 1)
	assert.JSONEq(t, `100`, string(mine[0]["progress"]))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	assert.Equal(t, []string{course.EventEnrollmentCreated, course.EventEnrollmentCompleted}, events.names())
}

func TestCatalogRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	router := newRouter(db, nil, nil)

	admin := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	profesor := testutil.CreateUser(t, db, testutil.WithRole(types.RoleProfesor))
	testutil.CreateCourse(t, db, admin.ID, testutil.Published())
	testutil.CreateCourse(t, db, admin.ID)

	rec := testutil.DoJSON(t, router, http.MethodGet, "/courses/getcourses", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []course.Course
	testutil.Decode(t, rec, &listed)
	assert.Len(t, listed, 1)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/courses/admin/all-courses", nil, testutil.Token(t, profesor))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/courses/admin/all-courses", nil, testutil.Token(t, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &listed)
	assert.Len(t, listed, 2)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/courses/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
