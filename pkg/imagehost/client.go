package imagehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/mo-amir99/course-enrollment-server/pkg/config"
)

// ErrNotConfigured is returned by every call when no storage zone is set.
var ErrNotConfigured = errors.New("image host is not configured")

const userAgent = "Course-Enrollment-Server/1.0.0"

// UploadResult describes an uploaded image.
type UploadResult struct {
	URL      string `json:"imageUrl"`
	PublicID string `json:"publicId"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Client talks to the storage zone that backs course images.
type Client struct {
	cfg  config.ImageHostConfig
	http *resty.Client
}

// New creates a client from cfg. A client built from an empty config is
// valid but returns ErrNotConfigured from every call.
func New(cfg config.ImageHostConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("AccessKey", cfg.APIKey).
		SetHeader("User-Agent", userAgent)

	return &Client{cfg: cfg, http: httpClient}
}

// Enabled reports whether the client can reach a storage zone.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled()
}

// Upload stores data under folder with a random object name and returns its
// public location. folder falls back to the configured default.
func (c *Client) Upload(ctx context.Context, data []byte, filename, folder string) (*UploadResult, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}

	if folder == "" {
		folder = c.cfg.Folder
	}

	mtype := mimetype.Detect(data)
	ext := mtype.Extension()
	if ext == "" {
		ext = strings.ToLower(path.Ext(filename))
	}

	publicID := path.Join(strings.Trim(folder, "/"), uuid.NewString()+ext)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", mtype.String()).
		SetBody(data).
		Put(c.objectPath(publicID))
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, fmt.Errorf("image host error: status=%d, body=%s", resp.StatusCode(), resp.String())
	}

	result := &UploadResult{
		URL:      c.PublicURL(publicID),
		PublicID: publicID,
		Format:   strings.TrimPrefix(ext, "."),
		Size:     int64(len(data)),
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		result.Width = cfg.Width
		result.Height = cfg.Height
	}

	return result, nil
}

// Delete removes the object identified by publicID. A missing object is not
// an error.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	publicID = strings.Trim(publicID, "/")
	if publicID == "" {
		return errors.New("public id is required")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Delete(c.objectPath(publicID))
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return fmt.Errorf("image host error: status=%d, body=%s", resp.StatusCode(), resp.String())
}

// PublicURL builds the CDN URL for publicID. Without a CDN host the storage
// URL is returned.
func (c *Client) PublicURL(publicID string) string {
	if c.cfg.CDNURL == "" {
		return strings.TrimRight(c.cfg.BaseURL, "/") + c.objectPath(publicID)
	}

	base := strings.TrimRight(c.cfg.CDNURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base + "/" + publicID
}

func (c *Client) objectPath(publicID string) string {
	return "/" + c.cfg.StorageZone + "/" + publicID
}
