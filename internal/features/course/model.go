package course

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
	"github.com/mo-amir99/course-enrollment-server/pkg/validation"
)

// Course is a catalog entry owned by the user who created it.
type Course struct {
	types.BaseModel

	Title         string               `gorm:"type:varchar(200);not null" json:"title"`
	Description   string               `gorm:"type:text;not null" json:"description"`
	Category      types.CourseCategory `gorm:"type:varchar(50);not null;index" json:"category"`
	Level         types.CourseLevel    `gorm:"type:varchar(20);not null;index" json:"level"`
	Price         types.Money          `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
	Duration      string               `gorm:"type:varchar(100);not null" json:"duration"`
	Image         string               `gorm:"type:text;not null;default:''" json:"image"`
	ImagePublicID string               `gorm:"type:varchar(255);not null;default:'';column:image_public_id" json:"imagePublicId"`
	IsPublished   bool                 `gorm:"not null;default:false;column:is_published;index" json:"isPublished"`
	CreatedBy     uuid.UUID            `gorm:"type:uuid;not null;index;column:created_by" json:"createdBy"`

	Creator *user.User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Lessons []Lesson   `gorm:"foreignKey:CourseID" json:"lessons"`
}

// TableName overrides the default table name.
func (Course) TableName() string { return "courses" }

// Resource returns the course as a policy resource owned by its creator.
func (c Course) Resource() authz.Resource {
	return authz.Resource{OwnerID: c.CreatedBy}
}

// Lesson is one ordered unit of a course.
type Lesson struct {
	types.BaseModel

	CourseID    uuid.UUID                           `gorm:"type:uuid;not null;index" json:"courseId"`
	Title       string                              `gorm:"type:varchar(200);not null" json:"title"`
	Description string                              `gorm:"type:text;not null;default:''" json:"description"`
	VideoURL    string                              `gorm:"type:text;not null;default:'';column:video_url" json:"videoUrl"`
	Duration    string                              `gorm:"type:varchar(100);not null;default:''" json:"duration"`
	Order       int                                 `gorm:"not null;default:0;column:order" json:"order"`
	Resources   datatypes.JSONSlice[LessonResource] `json:"resources"`
}

// TableName overrides the default table name.
func (Lesson) TableName() string { return "course_lessons" }

// LessonResource is a supporting link attached to a lesson.
type LessonResource struct {
	Title string             `json:"title" validate:"max=200"`
	URL   string             `json:"url" validate:"max=2048"`
	Type  types.ResourceType `json:"type" validate:"omitempty,oneof=pdf doc code link other"`
}

// LessonInput is the client shape of a lesson.
type LessonInput struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description"`
	VideoURL    string           `json:"videoUrl"`
	Duration    string           `json:"duration" validate:"max=100"`
	Order       int              `json:"order" validate:"gte=0"`
	Resources   []LessonResource `json:"resources" validate:"dive"`
}

// ListFilters narrows the public catalog.
type ListFilters struct {
	Category string
	Level    string
	Search   string
}

// CreateInput carries data for creating a new course.
type CreateInput struct {
	Title         string               `json:"title" validate:"required,min=3,max=200"`
	Description   string               `json:"description" validate:"required"`
	Category      types.CourseCategory `json:"category" validate:"required,oneof=web-development mobile-development data-science artificial-intelligence cybersecurity cloud-computing devops programming-fundamentals database ui-ux-design game-development blockchain"`
	Level         types.CourseLevel    `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Price         types.Money          `json:"price"`
	Duration      string               `json:"duration" validate:"required,max=100"`
	Image         string               `json:"image"`
	ImagePublicID string               `json:"imagePublicId"`
	IsPublished   bool                 `json:"isPublished"`
	Lessons       []LessonInput        `json:"lessons" validate:"dive"`
}

// UpdateInput captures mutable course fields. Nil fields are left alone and
// a non-nil Lessons replaces every lesson of the course.
type UpdateInput struct {
	Title         *string               `json:"title" validate:"omitempty,min=3,max=200"`
	Description   *string               `json:"description" validate:"omitempty,min=1"`
	Category      *types.CourseCategory `json:"category" validate:"omitempty,oneof=web-development mobile-development data-science artificial-intelligence cybersecurity cloud-computing devops programming-fundamentals database ui-ux-design game-development blockchain"`
	Level         *types.CourseLevel    `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price         *types.Money          `json:"price"`
	Duration      *string               `json:"duration" validate:"omitempty,min=1,max=100"`
	Image         *string               `json:"image"`
	ImagePublicID *string               `json:"imagePublicId"`
	IsPublished   *bool                 `json:"isPublished"`
	Lessons       *[]LessonInput        `json:"lessons" validate:"omitempty,dive"`
}

// DeleteResult reports what a course delete removed.
type DeleteResult struct {
	Course             Course `json:"course"`
	EnrollmentsRemoved int64  `json:"enrollmentsRemoved"`
}

func orderLessons(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}})
}

// List returns published courses, newest first, with their creator.
func List(db *gorm.DB, filters ListFilters) ([]Course, error) {
	query := db.Model(&Course{}).Where("is_published = ?", true)

	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Level != "" {
		query = query.Where("level = ?", filters.Level)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		keyword := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
	}

	courses := make([]Course, 0)
	err := query.
		Preload("Creator").
		Preload("Lessons", orderLessons).
		Order("created_at DESC").
		Find(&courses).Error

	return courses, err
}

// ListAll returns every course regardless of publish state.
func ListAll(db *gorm.DB) ([]Course, error) {
	courses := make([]Course, 0)
	err := db.Model(&Course{}).
		Preload("Creator").
		Order("created_at DESC").
		Find(&courses).Error
	return courses, err
}

// Get retrieves a course with its lessons and creator.
func Get(db *gorm.DB, id uuid.UUID) (Course, error) {
	var course Course
	err := db.
		Preload("Creator").
		Preload("Lessons", orderLessons).
		First(&course, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return course, ErrCourseNotFound
		}
		return course, err
	}
	return course, nil
}

// Create validates input and inserts the course with its lessons.
func Create(db *gorm.DB, creatorID uuid.UUID, input CreateInput, decision authz.Decision) (Course, error) {
	if err := decision.Err(); err != nil {
		return Course{}, err
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Duration = strings.TrimSpace(input.Duration)

	if err := validation.Struct(input); err != nil {
		return Course{}, err
	}
	if input.Price.IsNegative() {
		return Course{}, errNegativePrice()
	}

	course := Course{
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		Level:         input.Level,
		Price:         input.Price,
		Duration:      input.Duration,
		Image:         input.Image,
		ImagePublicID: input.ImagePublicID,
		IsPublished:   input.IsPublished,
		CreatedBy:     creatorID,
	}

	if err := db.Omit(clause.Associations).Create(&course).Error; err != nil {
		return Course{}, fmt.Errorf("create course: %w", err)
	}

	if err := replaceLessons(db, course.ID, input.Lessons); err != nil {
		return Course{}, err
	}

	return Get(db, course.ID)
}

// Update applies input to course. decision must allow the caller to update
// this course.
func Update(db *gorm.DB, course Course, input UpdateInput, decision authz.Decision) (Course, error) {
	if err := decision.Err(); err != nil {
		return course, err
	}

	trim := func(value *string) {
		if value != nil {
			*value = strings.TrimSpace(*value)
		}
	}
	trim(input.Title)
	trim(input.Description)
	trim(input.Duration)

	if err := validation.Struct(input); err != nil {
		return course, err
	}
	if input.Price != nil && input.Price.IsNegative() {
		return course, errNegativePrice()
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.Level != nil {
		updates["level"] = *input.Level
	}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if input.Duration != nil {
		updates["duration"] = *input.Duration
	}
	if input.Image != nil {
		updates["image"] = *input.Image
	}
	if input.ImagePublicID != nil {
		updates["image_public_id"] = *input.ImagePublicID
	}
	if input.IsPublished != nil {
		updates["is_published"] = *input.IsPublished
	}

	if len(updates) > 0 {
		if err := db.Model(&Course{}).Where("id = ?", course.ID).Updates(updates).Error; err != nil {
			return course, fmt.Errorf("update course: %w", err)
		}
	}

	if input.Lessons != nil {
		if err := db.Where("course_id = ?", course.ID).Delete(&Lesson{}).Error; err != nil {
			return course, fmt.Errorf("clear lessons: %w", err)
		}
		if err := replaceLessons(db, course.ID, *input.Lessons); err != nil {
			return course, err
		}
	}

	return Get(db, course.ID)
}

// Delete removes the course's enrollments, its lessons and then the course.
// The statements are independent; a failure part way leaves earlier deletes
// in place.
func Delete(db *gorm.DB, id uuid.UUID, decision authz.Decision) (DeleteResult, error) {
	if err := decision.Err(); err != nil {
		return DeleteResult{}, err
	}

	var course Course
	if err := db.First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DeleteResult{}, ErrCourseNotFound
		}
		return DeleteResult{}, err
	}

	removed, err := DeleteEnrollmentsForCourse(db, id)
	if err != nil {
		return DeleteResult{}, err
	}

	if err := db.Where("course_id = ?", id).Delete(&Lesson{}).Error; err != nil {
		return DeleteResult{}, fmt.Errorf("delete lessons: %w", err)
	}

	result := db.Delete(&Course{}, "id = ?", id)
	if result.Error != nil {
		return DeleteResult{}, fmt.Errorf("delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return DeleteResult{}, ErrCourseNotFound
	}

	return DeleteResult{Course: course, EnrollmentsRemoved: removed}, nil
}

// Count returns the number of courses, or only published ones when
// publishedOnly is set.
func Count(db *gorm.DB, publishedOnly bool) (int64, error) {
	query := db.Model(&Course{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	var total int64
	err := query.Count(&total).Error
	return total, err
}

// CountWithLessons returns the number of courses that have at least one lesson.
func CountWithLessons(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Model(&Lesson{}).Distinct("course_id").Count(&total).Error
	return total, err
}

func replaceLessons(db *gorm.DB, courseID uuid.UUID, inputs []LessonInput) error {
	if len(inputs) == 0 {
		return nil
	}

	lessons := make([]Lesson, 0, len(inputs))
	for _, in := range inputs {
		resources := make([]LessonResource, 0, len(in.Resources))
		for _, res := range in.Resources {
			if res.Type == "" {
				res.Type = types.ResourceTypeOther
			}
			resources = append(resources, res)
		}
		lessons = append(lessons, Lesson{
			CourseID:    courseID,
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			VideoURL:    in.VideoURL,
			Duration:    in.Duration,
			Order:       in.Order,
			Resources:   datatypes.NewJSONSlice(resources),
		})
	}

	if err := db.Create(&lessons).Error; err != nil {
		return fmt.Errorf("create lessons: %w", err)
	}
	return nil
}

func errNegativePrice() error {
	return apperrors.Validation("price cannot be negative").
		WithFields(map[string]string{"price": "must be greater than or equal to 0"})
}
