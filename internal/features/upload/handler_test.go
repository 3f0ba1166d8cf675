package upload_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/upload"
	"github.com/mo-amir99/course-enrollment-server/internal/testutil"
	"github.com/mo-amir99/course-enrollment-server/pkg/imagehost"
	"github.com/mo-amir99/course-enrollment-server/pkg/logger"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

type fakeStore struct {
	enabled   bool
	failWith  error
	uploaded  []string
	deleted   []string
	lastBytes int
}

func (f *fakeStore) Enabled() bool { return f.enabled }

func (f *fakeStore) Upload(_ context.Context, data []byte, filename, folder string) (*imagehost.UploadResult, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.uploaded = append(f.uploaded, folder+"/"+filename)
	f.lastBytes = len(data)
	return &imagehost.UploadResult{
		URL:      "https://cdn.example.com/" + folder + "/" + filename,
		PublicID: folder + "/" + filename,
		Format:   "png",
		Size:     int64(len(data)),
		Width:    3,
		Height:   2,
	}, nil
}

func (f *fakeStore) Delete(_ context.Context, publicID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.deleted = append(f.deleted, publicID)
	return nil
}

func setup(t *testing.T, store upload.ImageStore) (*gin.Engine, *gorm.DB, string) {
	t.Helper()
	db := testutil.NewDB(t)
	router := gin.New()
	upload.RegisterRoutes(router.Group("/upload"), upload.NewHandler(store, logger.Discard()), testutil.NewAuth(db))
	admin := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	return router, db, testutil.Token(t, admin)
}

func imageRequest(t *testing.T, token string, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if data != nil {
		part, err := w.CreateFormFile(field, "banner.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 2))))
	return buf.Bytes()
}

func TestUploadImage(t *testing.T) {
	store := &fakeStore{enabled: true}
	router, db, token := setup(t, store)

	tests := []struct {
		name   string
		field  string
		data   []byte
		status int
	}{
		{name: "no file", field: "image", data: nil, status: http.StatusBadRequest},
		{name: "wrong field", field: "file", data: tinyPNG(t), status: http.StatusBadRequest},
		{name: "not an image", field: "image", data: []byte("%PDF-1.4 fake document"), status: http.StatusBadRequest},
		{name: "too large", field: "image", data: append(tinyPNG(t), make([]byte, imagehost.MaxImageSize)...), status: http.StatusBadRequest},
		{name: "png", field: "image", data: tinyPNG(t), status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, imageRequest(t, token, tt.field, tt.data))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	require.Equal(t, []string{"courses/banner.png"}, store.uploaded)

	student := testutil.Token(t, testutil.CreateUser(t, db))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, imageRequest(t, student, "image", tinyPNG(t)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadImageResponse(t *testing.T) {
	router, _, token := setup(t, &fakeStore{enabled: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, imageRequest(t, token, "image", tinyPNG(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]interface{}
	testutil.Decode(t, rec, &result)
	assert.Equal(t, "https://cdn.example.com/courses/banner.png", result["imageUrl"])
	assert.Equal(t, "courses/banner.png", result["publicId"])
	assert.EqualValues(t, 3, result["width"])
}

func TestUploadDisabledAndFailing(t *testing.T) {
	router, _, token := setup(t, &fakeStore{enabled: false})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, imageRequest(t, token, "image", tinyPNG(t)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	router, _, token = setup(t, &fakeStore{enabled: true, failWith: errors.New("storage returned 500")})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, imageRequest(t, token, "image", tinyPNG(t)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestDeleteImage(t *testing.T) {
	store := &fakeStore{enabled: true}
	router, _, token := setup(t, store)

	rec := testutil.DoJSON(t, router, http.MethodDelete, "/upload/image", gin.H{}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodDelete, "/upload/image", gin.H{"publicId": "  "}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodDelete, "/upload/image", gin.H{"publicId": "courses/a.png"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"courses/a.png"}, store.deleted)
}
