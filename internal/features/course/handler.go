package course

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
	"github.com/mo-amir99/course-enrollment-server/pkg/imagehost"
	"github.com/mo-amir99/course-enrollment-server/pkg/request"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
)

const imageFolder = "courses"

// ImageStore uploads and removes course cover images.
type ImageStore interface {
	Enabled() bool
	Upload(ctx context.Context, data []byte, filename, folder string) (*imagehost.UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// Handler processes course HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	images ImageStore
	events Publisher
}

// NewHandler constructs a course handler instance. A nil publisher drops events.
func NewHandler(db *gorm.DB, logger *slog.Logger, images ImageStore, events Publisher) *Handler {
	if events == nil {
		events = NopPublisher{}
	}
	return &Handler{
		db:     db,
		logger: logger,
		images: images,
		events: events,
	}
}

// List returns the published catalog.
func (h *Handler) List(c *gin.Context) {
	courses, err := List(h.db.WithContext(c.Request.Context()), ListFilters{
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Search:   c.Query("search"),
	})
	if err != nil {
		response.Internal(h.logger, c, "Failed to load courses", err)
		return
	}

	response.Cacheable(c, 60)
	response.OK(c, courses, "")
}

// ListAll returns every course for administrators.
func (h *Handler) ListAll(c *gin.Context) {
	courses, err := ListAll(h.db.WithContext(c.Request.Context()))
	if err != nil {
		response.Internal(h.logger, c, "Failed to load courses", err)
		return
	}

	response.NoStore(c)
	response.OK(c, courses, "")
}

// GetByID returns a single course with lessons and creator.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "courseId", ErrCourseNotFound)
	if !ok {
		return
	}

	course, err := Get(h.db.WithContext(c.Request.Context()), id)
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return
	}

	response.OK(c, course, "")
}

// Create inserts a course from a JSON or multipart body.
func (h *Handler) Create(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	decision := authz.Authorize(requester.Subject(), authz.CourseCreate, authz.Resource{})
	if !decision.Allowed {
		h.respondError(c, decision.Err(), "Failed to create course")
		return
	}

	var input CreateInput
	if err := bindCourseBody(c, &input); err != nil {
		h.respondError(c, err, "Invalid course payload")
		return
	}

	uploaded, err := h.uploadFormImage(c)
	if err != nil {
		h.respondError(c, err, "Failed to upload image")
		return
	}
	if uploaded != nil {
		input.Image = uploaded.URL
		input.ImagePublicID = uploaded.PublicID
	}

	course, err := Create(h.db.WithContext(c.Request.Context()), requester.ID, input, decision)
	if err != nil {
		if uploaded != nil {
			h.deleteImage(c.Request.Context(), uploaded.PublicID)
		}
		h.respondError(c, err, "Failed to create course")
		return
	}

	h.logger.Info("course created",
		slog.String("course_id", course.ID.String()),
		slog.String("created_by", requester.ID.String()),
	)
	response.Created(c, course, "Course created successfully")
}

// Update modifies a course. Admins may edit any course, others only their own.
func (h *Handler) Update(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	id, ok := parseID(c, "courseId", ErrCourseNotFound)
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())

	existing, err := Get(db, id)
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return
	}

	decision := authz.Authorize(requester.Subject(), authz.CourseUpdate, existing.Resource())
	if !decision.Allowed {
		h.respondError(c, decision.Err(), "Failed to update course")
		return
	}

	var input UpdateInput
	if err := bindCourseBody(c, &input); err != nil {
		h.respondError(c, err, "Invalid course payload")
		return
	}

	uploaded, err := h.uploadFormImage(c)
	if err != nil {
		h.respondError(c, err, "Failed to upload image")
		return
	}
	if uploaded != nil {
		input.Image = &uploaded.URL
		input.ImagePublicID = &uploaded.PublicID
	}

	course, err := Update(db, existing, input, decision)
	if err != nil {
		if uploaded != nil {
			h.deleteImage(c.Request.Context(), uploaded.PublicID)
		}
		h.respondError(c, err, "Failed to update course")
		return
	}

	// The previous image goes only once the course points at its replacement.
	if input.ImagePublicID != nil && *input.ImagePublicID != "" &&
		existing.ImagePublicID != "" && existing.ImagePublicID != *input.ImagePublicID {
		h.deleteImage(c.Request.Context(), existing.ImagePublicID)
	}

	response.OK(c, course, "Course updated successfully")
}

// Delete removes a course and every enrollment referencing it.
func (h *Handler) Delete(c *gin.Context) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	id, ok := parseID(c, "courseId", ErrCourseNotFound)
	if !ok {
		return
	}

	decision := authz.Authorize(requester.Subject(), authz.CourseDelete, authz.Resource{})
	result, err := Delete(h.db.WithContext(c.Request.Context()), id, decision)
	if err != nil {
		h.respondError(c, err, "Failed to delete course")
		return
	}

	if result.Course.ImagePublicID != "" {
		h.deleteImage(c.Request.Context(), result.Course.ImagePublicID)
	}

	h.events.Publish(EventCourseDeleted, gin.H{
		"courseId":           result.Course.ID,
		"title":              result.Course.Title,
		"enrollmentsRemoved": result.EnrollmentsRemoved,
	})

	h.logger.Info("course deleted",
		slog.String("course_id", result.Course.ID.String()),
		slog.Int64("enrollments_removed", result.EnrollmentsRemoved),
		slog.String("deleted_by", requester.ID.String()),
	)
	response.OK(c, result, "Course and all its enrollments were deleted")
}

// uploadFormImage uploads the optional multipart "image" field. It returns
// nil when the request carries no image.
func (h *Handler) uploadFormImage(c *gin.Context) (*imagehost.UploadResult, error) {
	if !request.IsMultipart(c) {
		return nil, nil
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperrors.Validation("Invalid image upload")
	}
	if fileHeader.Size > imagehost.MaxImageSize {
		return nil, imagehost.ErrImageTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imagehost.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	if err := imagehost.Validate(data); err != nil {
		return nil, err
	}

	if h.images == nil || !h.images.Enabled() {
		return nil, ErrImageUploadDisabled
	}

	return h.images.Upload(c.Request.Context(), data, fileHeader.Filename, imageFolder)
}

func (h *Handler) deleteImage(ctx context.Context, publicID string) {
	if h.images == nil || !h.images.Enabled() {
		return
	}
	if err := h.images.Delete(ctx, publicID); err != nil {
		h.logger.Warn("failed to delete course image",
			slog.String("public_id", publicID),
			slog.String("error", err.Error()),
		)
	}
}

// bindCourseBody decodes a JSON body, or the text fields of a multipart
// form, into dst.
func bindCourseBody(c *gin.Context, dst interface{}) error {
	if !request.IsMultipart(c) {
		if err := c.ShouldBindJSON(dst); err != nil {
			return apperrors.New("Invalid request body", http.StatusBadRequest, apperrors.ErrValidation, err)
		}
		return nil
	}

	payload := map[string]interface{}{}
	for _, key := range []string{"title", "description", "category", "level", "duration", "image", "imagePublicId"} {
		if value := request.FormString(c, key); value != nil {
			payload[key] = *value
		}
	}
	if price := request.FormString(c, "price"); price != nil && *price != "" {
		payload["price"] = *price
	}
	if published := request.FormBool(c, "isPublished"); published != nil {
		payload["isPublished"] = *published
	}
	if lessons := request.FormString(c, "lessons"); lessons != nil && *lessons != "" {
		if !json.Valid([]byte(*lessons)) {
			return apperrors.Validation("'lessons' must be a JSON array")
		}
		payload["lessons"] = json.RawMessage(*lessons)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.New("Invalid course payload", http.StatusBadRequest, apperrors.ErrValidation, err)
	}
	return nil
}

// parseID reads a uuid path parameter. Malformed ids answer with notFound.
func parseID(c *gin.Context, param string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		status, message, _ := ErrorResponse(notFound)
		response.Error(c, status, message, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	if status, message, ok := ErrorResponse(err); ok {
		response.Error(c, status, message, nil)
		return
	}

	switch {
	case errors.Is(err, imagehost.ErrImageTooLarge):
		response.Error(c, http.StatusBadRequest, "Image must be 5MB or smaller.", nil)
		return
	case errors.Is(err, imagehost.ErrUnsupportedType):
		response.Error(c, http.StatusBadRequest, "Only JPEG, PNG, GIF and WebP images are allowed.", nil)
		return
	}

	if appErr, ok := apperrors.As(err); ok {
		response.Error(c, appErr.StatusCode(), appErr.Message(), appErr.Fields())
		return
	}
	response.Internal(h.logger, c, fallback, err)
}
