package admin

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/pkg/pagination"
)

// ManagedUser is a user with enrollment counters.
type ManagedUser struct {
	user.User

	EnrollmentsCount int64 `json:"enrollmentsCount"`
	CompletedCourses int64 `json:"completedCourses"`
}

type enrollmentCounter struct {
	UserID    uuid.UUID
	Total     int64
	Completed int64
}

// ListUsers pages users and attaches their enrollment counters.
func ListUsers(db *gorm.DB, filters user.ListFilters, params pagination.Params) ([]ManagedUser, int64, error) {
	users, total, err := user.List(db, filters, params)
	if err != nil {
		return nil, 0, err
	}

	managed := make([]ManagedUser, 0, len(users))
	if len(users) == 0 {
		return managed, total, nil
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var counters []enrollmentCounter
	err = db.Model(&course.Enrollment{}).
		Select("user_id, COUNT(*) AS total, SUM(CASE WHEN completed THEN 1 ELSE 0 END) AS completed").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&counters).Error
	if err != nil {
		return nil, 0, err
	}

	byUser := make(map[uuid.UUID]enrollmentCounter, len(counters))
	for _, c := range counters {
		byUser[c.UserID] = c
	}

	for _, u := range users {
		c := byUser[u.ID]
		managed = append(managed, ManagedUser{User: u, EnrollmentsCount: c.Total, CompletedCourses: c.Completed})
	}
	return managed, total, nil
}

// CreateUser registers an account on behalf of an administrator. Unlike
// self-registration the role may be chosen.
func CreateUser(db *gorm.DB, input user.CreateInput, decision authz.Decision) (user.User, error) {
	if err := decision.Err(); err != nil {
		return user.User{}, err
	}
	return user.Create(db, input)
}

// UpdateUser applies input to the user with id. Passwords are never
// changed here.
func UpdateUser(db *gorm.DB, id uuid.UUID, input user.UpdateInput, decision authz.Decision) (user.User, error) {
	target, err := user.Get(db, id)
	if err != nil {
		return user.User{}, err
	}
	return user.Update(db, target, input, decision)
}

// DeleteUser hard-deletes the user with id. Their enrollments stay.
func DeleteUser(db *gorm.DB, id uuid.UUID, decision authz.Decision) (user.DeletedSummary, error) {
	target, err := user.Get(db, id)
	if err != nil {
		return user.DeletedSummary{}, err
	}
	return user.Delete(db, target, decision)
}
