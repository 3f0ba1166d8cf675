package admin

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/pkg/pagination"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

// Enrollee is an enrollment of a course together with its student.
type Enrollee struct {
	EnrollmentID uuid.UUID  `json:"enrollmentId"`
	Progress     int        `json:"progress"`
	Completed    bool       `json:"completed"`
	EnrolledAt   time.Time  `json:"enrolledAt"`
	LastAccessed time.Time  `json:"lastAccessed"`
	User         *user.User `json:"user"`
}

// CourseEnrollmentList lists the students of one course.
type CourseEnrollmentList struct {
	CourseID    uuid.UUID  `json:"courseId"`
	CourseTitle string     `json:"courseTitle"`
	Total       int        `json:"total"`
	Enrollments []Enrollee `json:"enrollments"`
}

// CourseEnrollments returns the enrollments of courseID, newest first.
// Enrollments of deleted users are listed with a nil user.
func CourseEnrollments(db *gorm.DB, courseID uuid.UUID) (CourseEnrollmentList, error) {
	var c course.Course
	if err := db.Select("id", "title").First(&c, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CourseEnrollmentList{}, course.ErrCourseNotFound
		}
		return CourseEnrollmentList{}, err
	}

	var rows []course.Enrollment
	err := db.
		Preload("User").
		Where("course_id = ?", courseID).
		Order("enrolled_at DESC").
		Find(&rows).Error
	if err != nil {
		return CourseEnrollmentList{}, err
	}

	list := CourseEnrollmentList{
		CourseID:    c.ID,
		CourseTitle: c.Title,
		Total:       len(rows),
		Enrollments: make([]Enrollee, 0, len(rows)),
	}
	for _, e := range rows {
		list.Enrollments = append(list.Enrollments, Enrollee{
			EnrollmentID: e.ID,
			Progress:     e.Progress,
			Completed:    e.Completed,
			EnrolledAt:   e.EnrolledAt,
			LastAccessed: e.LastAccessed,
			User:         e.User,
		})
	}
	return list, nil
}

// EnrolledCourse is one enrollment flattened with its course.
type EnrolledCourse struct {
	CourseID        uuid.UUID            `json:"courseId"`
	CourseTitle     string               `json:"courseTitle"`
	CourseCategory  types.CourseCategory `json:"courseCategory"`
	CourseLevel     types.CourseLevel    `json:"courseLevel"`
	CoursePrice     types.Money          `json:"coursePrice"`
	CoursePublished bool                 `json:"coursePublished"`
	Progress        int                  `json:"progress"`
	Completed       bool                 `json:"completed"`
	EnrolledAt      time.Time            `json:"enrolledAt"`
	LastAccessed    time.Time            `json:"lastAccessed"`
}

// UserEnrollments is a user with every course they enrolled in.
type UserEnrollments struct {
	user.User

	EnrolledCourses  []EnrolledCourse `json:"enrolledCourses"`
	TotalPaid        types.Money      `json:"totalPaid"`
	TotalEnrollments int              `json:"totalEnrollments"`
	LastEnrollment   *time.Time       `json:"lastEnrollment"`
}

const userEnrollmentsPageSize = 50

// UserEnrollmentsPage is one page of users with their enrollments.
type UserEnrollmentsPage struct {
	Users            []UserEnrollments   `json:"users"`
	TotalUsers       int64               `json:"totalUsers"`
	TotalEnrollments int64               `json:"totalEnrollments"`
	TotalRevenue     types.Money         `json:"totalRevenue"`
	Pagination       pagination.Metadata `json:"pagination"`
}

// ListUserEnrollments pages users and joins all their enrollments in memory.
// TotalPaid sums the prices of the enrolled courses; no payment is checked.
// TotalEnrollments counts every enrollment while TotalRevenue covers the page.
func ListUserEnrollments(db *gorm.DB, filters user.ListFilters, params pagination.Params) (UserEnrollmentsPage, error) {
	users, total, err := user.List(db, filters, params)
	if err != nil {
		return UserEnrollmentsPage{}, err
	}

	byUser, err := enrollmentsByUser(db, users)
	if err != nil {
		return UserEnrollmentsPage{}, err
	}

	enrollments, err := course.CountEnrollments(db)
	if err != nil {
		return UserEnrollmentsPage{}, err
	}

	page := UserEnrollmentsPage{
		Users:            make([]UserEnrollments, 0, len(users)),
		TotalUsers:       total,
		TotalEnrollments: enrollments,
		Pagination:       pagination.MetadataFrom(total, params),
	}

	for _, u := range users {
		entry := UserEnrollments{User: u, EnrolledCourses: make([]EnrolledCourse, 0)}
		for _, e := range byUser[u.ID] {
			if e.Course == nil {
				continue
			}
			entry.EnrolledCourses = append(entry.EnrolledCourses, EnrolledCourse{
				CourseID:        e.CourseID,
				CourseTitle:     e.Course.Title,
				CourseCategory:  e.Course.Category,
				CourseLevel:     e.Course.Level,
				CoursePrice:     e.Course.Price,
				CoursePublished: e.Course.IsPublished,
				Progress:        e.Progress,
				Completed:       e.Completed,
				EnrolledAt:      e.EnrolledAt,
				LastAccessed:    e.LastAccessed,
			})
			entry.TotalPaid = entry.TotalPaid.Add(e.Course.Price)
			if entry.LastEnrollment == nil || e.EnrolledAt.After(*entry.LastEnrollment) {
				at := e.EnrolledAt
				entry.LastEnrollment = &at
			}
		}
		entry.TotalEnrollments = len(entry.EnrolledCourses)

		page.TotalRevenue = page.TotalRevenue.Add(entry.TotalPaid)
		page.Users = append(page.Users, entry)
	}

	return page, nil
}

// enrollmentsByUser loads the enrollments of users in one query.
func enrollmentsByUser(db *gorm.DB, users []user.User) (map[uuid.UUID][]course.Enrollment, error) {
	grouped := make(map[uuid.UUID][]course.Enrollment, len(users))
	if len(users) == 0 {
		return grouped, nil
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var rows []course.Enrollment
	err := db.
		Preload("Course").
		Where("user_id IN ?", ids).
		Order("enrolled_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, e := range rows {
		grouped[e.UserID] = append(grouped[e.UserID], e)
	}
	return grouped, nil
}
