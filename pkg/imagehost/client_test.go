package imagehost

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/course-enrollment-server/pkg/config"
)

type recordedRequest struct {
	method      string
	path        string
	accessKey   string
	contentType string
	body        []byte
}

func newStorageServer(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			accessKey:   r.Header.Get("AccessKey"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testConfig(baseURL string) config.ImageHostConfig {
	return config.ImageHostConfig{
		StorageZone: "zone",
		APIKey:      "secret",
		BaseURL:     baseURL,
		CDNURL:      "cdn.example.com",
		Folder:      "courses",
		Timeout:     5 * time.Second,
	}
}

func TestUploadPutsImageAndReportsMetadata(t *testing.T) {
	srv, requests := newStorageServer(t, http.StatusCreated)
	client := New(testConfig(srv.URL))

	data := testPNG(t, 4, 3)
	result, err := client.Upload(context.Background(), data, "cover.png", "")
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.True(t, strings.HasPrefix(req.path, "/zone/courses/"))
	assert.True(t, strings.HasSuffix(req.path, ".png"))
	assert.Equal(t, "secret", req.accessKey)
	assert.Equal(t, "image/png", req.contentType)
	assert.Equal(t, data, req.body)

	assert.Equal(t, "png", result.Format)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.Equal(t, 4, result.Width)
	assert.Equal(t, 3, result.Height)
	assert.True(t, strings.HasPrefix(result.PublicID, "courses/"))
	assert.Equal(t, "https://cdn.example.com/"+result.PublicID, result.URL)
}

func TestUploadUsesExplicitFolder(t *testing.T) {
	srv, requests := newStorageServer(t, http.StatusOK)
	client := New(testConfig(srv.URL))

	result, err := client.Upload(context.Background(), testPNG(t, 1, 1), "a.png", "avatars")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.PublicID, "avatars/"))
	assert.True(t, strings.HasPrefix((*requests)[0].path, "/zone/avatars/"))
}

func TestUploadSurfacesHostErrors(t *testing.T) {
	srv, _ := newStorageServer(t, http.StatusUnauthorized)
	client := New(testConfig(srv.URL))

	_, err := client.Upload(context.Background(), testPNG(t, 1, 1), "a.png", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}

func TestUndecodableImageHasZeroDimensions(t *testing.T) {
	srv, _ := newStorageServer(t, http.StatusCreated)
	client := New(testConfig(srv.URL))

	result, err := client.Upload(context.Background(), []byte("plain text payload"), "notes.txt", "")
	require.NoError(t, err)
	assert.Zero(t, result.Width)
	assert.Zero(t, result.Height)
}

func TestDelete(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNotFound} {
		srv, requests := newStorageServer(t, status)
		client := New(testConfig(srv.URL))

		require.NoError(t, client.Delete(context.Background(), "courses/abc.png"))
		assert.Equal(t, http.MethodDelete, (*requests)[0].method)
		assert.Equal(t, "/zone/courses/abc.png", (*requests)[0].path)
	}

	srv, _ := newStorageServer(t, http.StatusInternalServerError)
	assert.Error(t, New(testConfig(srv.URL)).Delete(context.Background(), "courses/abc.png"))
}

func TestNotConfigured(t *testing.T) {
	client := New(config.ImageHostConfig{})

	_, err := client.Upload(context.Background(), []byte("x"), "x.png", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, client.Delete(context.Background(), "x"), ErrNotConfigured)
	assert.False(t, client.Enabled())
}
