package admin

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

const (
	recentEnrollmentsLimit = 5
	topCoursesLimit        = 10
	dayLayout              = "2006-01-02"
)

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalCourses            int64               `json:"totalCourses"`
	TotalUsers              int64               `json:"totalUsers"`
	TotalEnrollments        int64               `json:"totalEnrollments"`
	PublishedCourses        int64               `json:"publishedCourses"`
	PendingCourses          int64               `json:"pendingCourses"`
	CoursesWithLessons      int64               `json:"coursesWithLessons"`
	EnrollmentRate          float64             `json:"enrollmentRate"`
	AvgEnrollmentsPerCourse float64             `json:"avgEnrollmentsPerCourse"`
	PublicationRate         float64             `json:"publicationRate"`
	RecentEnrollments       []course.Enrollment `json:"recentEnrollments"`
}

// Dashboard runs the five counts concurrently and derives the ratios.
func Dashboard(ctx context.Context, db *gorm.DB) (DashboardStats, error) {
	var stats DashboardStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalCourses, err = course.Count(db.WithContext(gctx), false)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalUsers, err = user.Count(db.WithContext(gctx))
		return err
	})
	g.Go(func() (err error) {
		stats.TotalEnrollments, err = course.CountEnrollments(db.WithContext(gctx))
		return err
	})
	g.Go(func() (err error) {
		stats.PublishedCourses, err = course.Count(db.WithContext(gctx), true)
		return err
	})
	g.Go(func() (err error) {
		stats.CoursesWithLessons, err = course.CountWithLessons(db.WithContext(gctx))
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}

	stats.PendingCourses = stats.TotalCourses - stats.PublishedCourses
	stats.EnrollmentRate = ratio(stats.TotalEnrollments, stats.TotalUsers, 2)
	stats.AvgEnrollmentsPerCourse = ratio(stats.TotalEnrollments, stats.TotalCourses, 2)
	stats.PublicationRate = round(ratio(stats.PublishedCourses, stats.TotalCourses, -1)*100, 0)

	stats.RecentEnrollments = make([]course.Enrollment, 0, recentEnrollmentsLimit)
	err := db.WithContext(ctx).
		Preload("User").
		Preload("Course").
		Order("enrolled_at DESC").
		Limit(recentEnrollmentsLimit).
		Find(&stats.RecentEnrollments).Error
	if err != nil {
		return DashboardStats{}, err
	}

	return stats, nil
}

// TimeRange selects the window of the enrollment statistics.
type TimeRange string

const (
	RangeWeek    TimeRange = "week"
	RangeMonth   TimeRange = "month"
	RangeQuarter TimeRange = "quarter"
	RangeYear    TimeRange = "year"
)

// ParseTimeRange falls back to month for unknown values.
func ParseTimeRange(raw string) TimeRange {
	switch r := TimeRange(raw); r {
	case RangeWeek, RangeMonth, RangeQuarter, RangeYear:
		return r
	}
	return RangeMonth
}

// Since returns the lower bound of r relative to now.
func (r TimeRange) Since(now time.Time) time.Time {
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeQuarter:
		return now.AddDate(0, -3, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	}
	return now.AddDate(0, -1, 0)
}

// DayCount is the number of enrollments on one day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CourseCount is the number of enrollments of one course.
type CourseCount struct {
	CourseID uuid.UUID `json:"courseId"`
	Title    string    `json:"title"`
	Count    int       `json:"count"`
}

// DailyStat is the per-day summary with revenue.
type DailyStat struct {
	Date        string      `json:"date"`
	Enrollments int         `json:"enrollments"`
	Revenue     types.Money `json:"revenue"`
}

// EnrollmentSummary aggregates the window.
type EnrollmentSummary struct {
	TotalEnrollments      int         `json:"totalEnrollments"`
	UniqueUsers           int         `json:"uniqueUsers"`
	TotalRevenue          types.Money `json:"totalRevenue"`
	AverageRevenuePerUser types.Money `json:"averageRevenuePerUser"`
	DailyStats            []DailyStat `json:"dailyStats"`
}

// EnrollmentStats is the enrollment report for a time range.
type EnrollmentStats struct {
	TimeRange           TimeRange         `json:"timeRange"`
	Since               time.Time         `json:"since"`
	EnrollmentsByDay    []DayCount        `json:"enrollmentsByDay"`
	EnrollmentsByCourse []CourseCount     `json:"enrollmentsByCourse"`
	Summary             EnrollmentSummary `json:"summary"`
}

// Enrollments builds the enrollment report for r ending at now.
func Enrollments(db *gorm.DB, r TimeRange, now time.Time) (EnrollmentStats, error) {
	since := r.Since(now).UTC()

	var rows []course.Enrollment
	err := db.
		Preload("Course").
		Where("enrolled_at >= ?", since).
		Order("enrolled_at ASC").
		Find(&rows).Error
	if err != nil {
		return EnrollmentStats{}, err
	}

	return EnrollmentStats{
		TimeRange:           r,
		Since:               since,
		EnrollmentsByDay:    byDay(rows),
		EnrollmentsByCourse: byCourse(rows, topCoursesLimit),
		Summary:             summarize(rows),
	}, nil
}

func byDay(rows []course.Enrollment) []DayCount {
	counts := map[string]int{}
	for _, e := range rows {
		counts[e.EnrolledAt.UTC().Format(dayLayout)]++
	}

	days := make([]DayCount, 0, len(counts))
	for date, n := range counts {
		days = append(days, DayCount{Date: date, Count: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

func byCourse(rows []course.Enrollment, limit int) []CourseCount {
	index := map[uuid.UUID]int{}
	courses := make([]CourseCount, 0)
	for _, e := range rows {
		i, ok := index[e.CourseID]
		if !ok {
			title := ""
			if e.Course != nil {
				title = e.Course.Title
			}
			i = len(courses)
			index[e.CourseID] = i
			courses = append(courses, CourseCount{CourseID: e.CourseID, Title: title})
		}
		courses[i].Count++
	}

	sort.SliceStable(courses, func(i, j int) bool { return courses[i].Count > courses[j].Count })
	if len(courses) > limit {
		courses = courses[:limit]
	}
	return courses
}

func summarize(rows []course.Enrollment) EnrollmentSummary {
	summary := EnrollmentSummary{TotalEnrollments: len(rows), DailyStats: make([]DailyStat, 0)}

	users := map[uuid.UUID]struct{}{}
	daily := map[string]*DailyStat{}
	for _, e := range rows {
		users[e.UserID] = struct{}{}

		var price types.Money
		if e.Course != nil {
			price = e.Course.Price
		}
		summary.TotalRevenue = summary.TotalRevenue.Add(price)

		date := e.EnrolledAt.UTC().Format(dayLayout)
		stat, ok := daily[date]
		if !ok {
			stat = &DailyStat{Date: date}
			daily[date] = stat
		}
		stat.Enrollments++
		stat.Revenue = stat.Revenue.Add(price)
	}

	summary.UniqueUsers = len(users)
	summary.AverageRevenuePerUser = summary.TotalRevenue.Div(int64(len(users)))

	for _, stat := range daily {
		summary.DailyStats = append(summary.DailyStats, *stat)
	}
	sort.Slice(summary.DailyStats, func(i, j int) bool {
		return summary.DailyStats[i].Date < summary.DailyStats[j].Date
	})
	return summary
}

// ratio divides n by d rounded to places decimals. A negative places skips
// rounding. Zero denominators yield zero.
func ratio(n, d int64, places int) float64 {
	if d == 0 {
		return 0
	}
	v := float64(n) / float64(d)
	if places < 0 {
		return v
	}
	return round(v, places)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
