package course

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

// Enrollment links a user to a course and tracks their progress.
type Enrollment struct {
	types.BaseModel

	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course" json:"userId"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course;index" json:"courseId"`
	Progress     int       `gorm:"not null;default:0" json:"progress"`
	Completed    bool      `gorm:"not null;default:false" json:"completed"`
	EnrolledAt   time.Time `gorm:"not null;index" json:"enrolledAt"`
	LastAccessed time.Time `gorm:"not null" json:"lastAccessed"`

	User   *user.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course *Course    `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// TableName overrides the default table name.
func (Enrollment) TableName() string { return "enrollments" }

// MyCourse is a course flattened with the caller's enrollment state.
type MyCourse struct {
	Course

	Progress     int       `json:"progress"`
	Completed    bool      `json:"completed"`
	EnrollmentID uuid.UUID `json:"enrollmentId"`
	EnrolledAt   time.Time `json:"enrolledAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// ClampProgress bounds progress to [0, 100] and rounds to a whole percent.
func ClampProgress(progress float64) int {
	if math.IsNaN(progress) {
		return 0
	}
	return int(math.Round(math.Min(100, math.Max(0, progress))))
}

// Enroll creates an enrollment for userID in a published course.
func Enroll(db *gorm.DB, userID, courseID uuid.UUID) (Enrollment, error) {
	var course Course
	if err := db.First(&course, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Enrollment{}, ErrCourseNotFound
		}
		return Enrollment{}, err
	}

	if !course.IsPublished {
		return Enrollment{}, ErrCourseNotAvailable
	}

	var existing int64
	if err := db.Model(&Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&existing).Error; err != nil {
		return Enrollment{}, fmt.Errorf("check enrollment: %w", err)
	}
	if existing > 0 {
		return Enrollment{}, ErrAlreadyEnrolled
	}

	now := time.Now().UTC()
	enrollment := Enrollment{
		UserID:       userID,
		CourseID:     courseID,
		Progress:     0,
		EnrolledAt:   now,
		LastAccessed: now,
	}

	if err := db.Create(&enrollment).Error; err != nil {
		if isDuplicate(err) {
			return Enrollment{}, ErrAlreadyEnrolled
		}
		return Enrollment{}, fmt.Errorf("create enrollment: %w", err)
	}

	return GetEnrollment(db, enrollment.ID)
}

// GetEnrollment loads an enrollment with its course and the course creator.
func GetEnrollment(db *gorm.DB, id uuid.UUID) (Enrollment, error) {
	var enrollment Enrollment
	err := db.Preload("Course.Creator").First(&enrollment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return enrollment, ErrEnrollmentNotFound
		}
		return enrollment, err
	}
	return enrollment, nil
}

// UpdateProgress sets the progress of the caller's enrollment. An enrollment
// owned by someone else is reported as not found. completed reports whether
// this update moved the enrollment to completed.
func UpdateProgress(db *gorm.DB, enrollmentID, userID uuid.UUID, progress float64) (updated Enrollment, completed bool, err error) {
	var enrollment Enrollment
	err = db.First(&enrollment, "id = ? AND user_id = ?", enrollmentID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return enrollment, false, ErrEnrollmentNotFound
		}
		return enrollment, false, err
	}

	clamped := ClampProgress(progress)
	updates := map[string]interface{}{
		"progress":      clamped,
		"completed":     clamped == 100,
		"last_accessed": time.Now().UTC(),
	}

	if err := db.Model(&Enrollment{}).Where("id = ?", enrollment.ID).Updates(updates).Error; err != nil {
		return enrollment, false, fmt.Errorf("update progress: %w", err)
	}

	updated, err = GetEnrollment(db, enrollment.ID)
	return updated, err == nil && updated.Completed && !enrollment.Completed, err
}

// MyCourses lists the caller's enrolled courses, most recently touched first.
// Enrollments whose course no longer exists are skipped.
func MyCourses(db *gorm.DB, userID uuid.UUID) ([]MyCourse, error) {
	var enrollments []Enrollment
	err := db.
		Preload("Course.Creator").
		Preload("Course.Lessons", orderLessons).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	courses := make([]MyCourse, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Course == nil {
			continue
		}
		courses = append(courses, MyCourse{
			Course:       *e.Course,
			Progress:     e.Progress,
			Completed:    e.Completed,
			EnrollmentID: e.ID,
			EnrolledAt:   e.EnrolledAt,
			LastAccessed: e.LastAccessed,
		})
	}
	return courses, nil
}

// DeleteEnrollmentsForCourse removes every enrollment of courseID.
func DeleteEnrollmentsForCourse(db *gorm.DB, courseID uuid.UUID) (int64, error) {
	result := db.Where("course_id = ?", courseID).Delete(&Enrollment{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete enrollments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountEnrollments returns the number of enrollments.
func CountEnrollments(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Model(&Enrollment{}).Count(&total).Error
	return total, err
}

// CountOrphanedEnrollments counts enrollments whose user no longer exists.
func CountOrphanedEnrollments(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Model(&Enrollment{}).
		Where("user_id NOT IN (?)", db.Model(&user.User{}).Select("id")).
		Count(&total).Error
	return total, err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
