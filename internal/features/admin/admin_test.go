package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/admin"
	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/internal/testutil"
	"github.com/mo-amir99/course-enrollment-server/pkg/logger"
	"github.com/mo-amir99/course-enrollment-server/pkg/pagination"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

func newRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	admin.RegisterRoutes(router.Group("/admin"), admin.NewHandler(db, logger.Discard(), ""), testutil.NewAuth(db))
	return router
}

func TestDashboardEmpty(t *testing.T) {
	db := testutil.NewDB(t)

	stats, err := admin.Dashboard(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCourses)
	assert.Zero(t, stats.EnrollmentRate)
	assert.Zero(t, stats.AvgEnrollmentsPerCourse)
	assert.Zero(t, stats.PublicationRate)
	assert.Empty(t, stats.RecentEnrollments)
}

func TestDashboardRatios(t *testing.T) {
	db := testutil.NewDB(t)
	staff := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	students := []user.User{testutil.CreateUser(t, db), testutil.CreateUser(t, db)}

	published := testutil.CreateCourse(t, db, staff.ID, testutil.Published())
	testutil.CreateCourse(t, db, staff.ID)
	testutil.CreateCourse(t, db, staff.ID)
	testutil.AddLesson(t, db, published.ID, "Intro", 1)

	for _, s := range students {
		testutil.Enroll(t, db, s.ID, published.ID)
	}

	stats, err := admin.Dashboard(context.Background(), db)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalCourses)
	assert.EqualValues(t, 3, stats.TotalUsers)
	assert.EqualValues(t, 2, stats.TotalEnrollments)
	assert.EqualValues(t, 1, stats.PublishedCourses)
	assert.EqualValues(t, 2, stats.PendingCourses)
	assert.EqualValues(t, 1, stats.CoursesWithLessons)
	assert.Equal(t, 0.67, stats.EnrollmentRate)
	assert.Equal(t, 0.67, stats.AvgEnrollmentsPerCourse)
	assert.Equal(t, float64(33), stats.PublicationRate)
	require.Len(t, stats.RecentEnrollments, 2)
	assert.NotNil(t, stats.RecentEnrollments[0].User)
	assert.NotNil(t, stats.RecentEnrollments[0].Course)
}

func TestEnrollmentStatsWindow(t *testing.T) {
	db := testutil.NewDB(t)
	staff := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	student := testutil.CreateUser(t, db)
	other := testutil.CreateUser(t, db)

	cheap := testutil.CreateCourse(t, db, staff.ID, testutil.Published(), testutil.WithPrice(10))
	pricey := testutil.CreateCourse(t, db, staff.ID, testutil.Published(), testutil.WithPrice(40))

	now := time.Now().UTC()
	testutil.Enroll(t, db, student.ID, cheap.ID, now.Add(-2*time.Hour))
	testutil.Enroll(t, db, other.ID, cheap.ID, now.AddDate(0, 0, -3))
	testutil.Enroll(t, db, student.ID, pricey.ID, now.AddDate(0, 0, -20))

	week, err := admin.Enrollments(db, admin.RangeWeek, now)
	require.NoError(t, err)
	assert.Equal(t, 2, week.Summary.TotalEnrollments)
	assert.Equal(t, 2, week.Summary.UniqueUsers)
	assert.Equal(t, "20", week.Summary.TotalRevenue.String())
	require.Len(t, week.EnrollmentsByCourse, 1)
	assert.Equal(t, cheap.ID, week.EnrollmentsByCourse[0].CourseID)
	require.Len(t, week.EnrollmentsByDay, 2)
	assert.Less(t, week.EnrollmentsByDay[0].Date, week.EnrollmentsByDay[1].Date)

	month, err := admin.Enrollments(db, admin.RangeMonth, now)
	require.NoError(t, err)
	assert.Equal(t, 3, month.Summary.TotalEnrollments)
	assert.Equal(t, "60", month.Summary.TotalRevenue.String())
	assert.Equal(t, "30", month.Summary.AverageRevenuePerUser.String())
	require.Len(t, month.EnrollmentsByCourse, 2)
	assert.Equal(t, cheap.ID, month.EnrollmentsByCourse[0].CourseID)
}

func TestListUserEnrollments(t *testing.T) {
	db := testutil.NewDB(t)
	staff := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin), testutil.WithUsername("staff"))
	buyer := testutil.CreateUser(t, db, testutil.WithUsername("buyer"))

	a := testutil.CreateCourse(t, db, staff.ID, testutil.Published(), testutil.WithPrice(50))
	b := testutil.CreateCourse(t, db, staff.ID, testutil.Published(), testutil.WithPrice(25.5))
	testutil.Enroll(t, db, buyer.ID, a.ID, time.Now().Add(-time.Hour))
	latest := testutil.Enroll(t, db, buyer.ID, b.ID)

	page, err := admin.ListUserEnrollments(db, user.ListFilters{}, pagination.Parse("1", "10"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalUsers)
	assert.EqualValues(t, 2, page.TotalEnrollments)
	assert.Equal(t, "75.5", page.TotalRevenue.String())

	var found *admin.UserEnrollments
	for i := range page.Users {
		if page.Users[i].ID == buyer.ID {
			found = &page.Users[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, 2, found.TotalEnrollments)
	assert.Equal(t, "75.5", found.TotalPaid.String())
	require.NotNil(t, found.LastEnrollment)
	assert.WithinDuration(t, latest.EnrolledAt, *found.LastEnrollment, time.Second)

	filtered, err := admin.ListUserEnrollments(db, user.ListFilters{Search: "STAFF"}, pagination.Parse("1", "10"))
	require.NoError(t, err)
	require.Len(t, filtered.Users, 1)
	assert.Empty(t, filtered.Users[0].EnrolledCourses)
	assert.Equal(t, 1, filtered.Pagination.TotalPages)
	assert.EqualValues(t, 2, filtered.TotalEnrollments)
	assert.Equal(t, "0", filtered.TotalRevenue.String())
}

func TestUserEnrollmentsDefaultPageSize(t *testing.T) {
	db := testutil.NewDB(t)
	router := newRouter(db)
	staff := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))

	rec := testutil.DoJSON(t, router, http.MethodGet, "/admin/user-enrollments", nil, testutil.Token(t, staff))
	require.Equal(t, http.StatusOK, rec.Code)

	var page admin.UserEnrollmentsPage
	testutil.Decode(t, rec, &page)
	assert.Equal(t, 50, page.Pagination.PageSize)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/admin/user-enrollments?limit=5", nil, testutil.Token(t, staff))
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &page)
	assert.Equal(t, 5, page.Pagination.PageSize)
}

func TestCourseEnrollments(t *testing.T) {
	db := testutil.NewDB(t)
	router := newRouter(db)
	staff := testutil.CreateUser(t, db, testutil.WithRole(types.RoleProfesor))
	student := testutil.CreateUser(t, db)
	c := testutil.CreateCourse(t, db, staff.ID, testutil.Published(), testutil.WithTitle("Observability"))
	testutil.Enroll(t, db, student.ID, c.ID)

	token := testutil.Token(t, staff)

	rec := testutil.DoJSON(t, router, http.MethodGet, "/admin/courses/"+c.ID.String()+"/enrollments", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list admin.CourseEnrollmentList
	testutil.Decode(t, rec, &list)
	assert.Equal(t, "Observability", list.CourseTitle)
	require.Len(t, list.Enrollments, 1)
	require.NotNil(t, list.Enrollments[0].User)
	assert.Equal(t, student.Email, list.Enrollments[0].User.Email)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/admin/courses/00000000-0000-0000-0000-000000000001/enrollments", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminGate(t *testing.T) {
	db := testutil.NewDB(t)
	router := newRouter(db)
	student := testutil.CreateUser(t, db)

	rec := testutil.DoJSON(t, router, http.MethodGet, "/admin/dashboard/stats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/admin/dashboard/stats", nil, testutil.Token(t, student))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserManagement(t *testing.T) {
	db := testutil.NewDB(t)
	router := newRouter(db)
	staff := testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin))
	token := testutil.Token(t, staff)

	body := gin.H{"name": "Pat", "username": "pat", "email": "pat@example.com", "password": "secret123", "role": "profesor"}
	rec := testutil.DoJSON(t, router, http.MethodPost, "/admin/users", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created user.User
	testutil.Decode(t, rec, &created)
	assert.Equal(t, types.RoleProfesor, created.Role)

	rec = testutil.DoJSON(t, router, http.MethodPost, "/admin/users", body, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c := testutil.CreateCourse(t, db, staff.ID, testutil.Published())
	e := testutil.Enroll(t, db, created.ID, c.ID)
	_, _, err := course.UpdateProgress(db, e.ID, created.ID, 100)
	require.NoError(t, err)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/admin/users?search=PAT", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []admin.ManagedUser
	env := testutil.Decode(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.EqualValues(t, 1, listed[0].EnrollmentsCount)
	assert.EqualValues(t, 1, listed[0].CompletedCourses)

	var meta pagination.Metadata
	require.NoError(t, json.Unmarshal(env.Pagination, &meta))
	assert.EqualValues(t, 1, meta.TotalItems)

	path := "/admin/users/" + created.ID.String()
	rec = testutil.DoJSON(t, router, http.MethodPut, path, gin.H{"role": "user", "password": "hijacked", "name": "Patricia"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated user.User
	testutil.Decode(t, rec, &updated)
	assert.Equal(t, types.RoleUser, updated.Role)
	assert.Equal(t, "Patricia", updated.Name)

	stored, err := user.Get(db, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.ComparePassword("secret123"))

	rec = testutil.DoJSON(t, router, http.MethodPut, path, gin.H{"role": "owner"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodDelete, path, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	total, err := course.CountEnrollments(db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSystemEndpoints(t *testing.T) {
	db := testutil.NewDB(t)
	router := newRouter(db)
	token := testutil.Token(t, testutil.CreateUser(t, db, testutil.WithRole(types.RoleAdmin)))

	rec := testutil.DoJSON(t, router, http.MethodGet, "/admin/system-stats", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats admin.SystemStats
	testutil.Decode(t, rec, &stats)
	assert.Positive(t, stats.NumCPU)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/admin/logs", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
