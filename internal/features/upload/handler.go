package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-enrollment-server/pkg/imagehost"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
)

const imageFolder = "courses"

// ImageStore uploads and removes hosted images.
type ImageStore interface {
	Enabled() bool
	Upload(ctx context.Context, data []byte, filename, folder string) (*imagehost.UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// Handler processes standalone image uploads.
type Handler struct {
	images ImageStore
	logger *slog.Logger
}

// NewHandler constructs an upload handler.
func NewHandler(images ImageStore, logger *slog.Logger) *Handler {
	return &Handler{images: images, logger: logger}
}

type deleteRequest struct {
	PublicID string `json:"publicId"`
}

// UploadImage stores the multipart "image" file and returns its location.
func (h *Handler) UploadImage(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "No image file provided.", nil)
		return
	}
	if fileHeader.Size > imagehost.MaxImageSize {
		h.respondError(c, imagehost.ErrImageTooLarge, "Failed to upload image")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Internal(h.logger, c, "Failed to read image", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imagehost.MaxImageSize+1))
	if err != nil {
		response.Internal(h.logger, c, "Failed to read image", err)
		return
	}
	if err := imagehost.Validate(data); err != nil {
		h.respondError(c, err, "Failed to upload image")
		return
	}

	result, err := h.images.Upload(c.Request.Context(), data, fileHeader.Filename, imageFolder)
	if err != nil {
		h.respondError(c, err, "Failed to upload image")
		return
	}

	h.logger.Info("image uploaded",
		slog.String("public_id", result.PublicID),
		slog.Int64("size", result.Size),
	)
	response.OK(c, result, "Image uploaded successfully")
}

// DeleteImage removes a hosted image by public id.
func (h *Handler) DeleteImage(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PublicID) == "" {
		response.Error(c, http.StatusBadRequest, "'publicId' is required.", nil)
		return
	}

	if err := h.images.Delete(c.Request.Context(), strings.TrimSpace(req.PublicID)); err != nil {
		h.respondError(c, err, "Failed to delete image")
		return
	}

	response.OK(c, nil, "Image deleted successfully")
}

func (h *Handler) enabled(c *gin.Context) bool {
	if h.images == nil || !h.images.Enabled() {
		response.Error(c, http.StatusServiceUnavailable, "Image uploads are not configured.", nil)
		return false
	}
	return true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, imagehost.ErrImageTooLarge):
		response.Error(c, http.StatusBadRequest, "Image must be 5MB or smaller.", nil)
	case errors.Is(err, imagehost.ErrUnsupportedType):
		response.Error(c, http.StatusBadRequest, "Only JPEG, PNG, GIF and WebP images are allowed.", nil)
	case errors.Is(err, imagehost.ErrNotConfigured):
		response.Error(c, http.StatusServiceUnavailable, "Image uploads are not configured.", nil)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusBadGateway, fallback, err)
	}
}
