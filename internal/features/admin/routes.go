package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
)

// RegisterRoutes mounts the admin surface. Every route requires a staff role.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.AuthMiddleware) {
	router.Use(auth.Require(authz.AdminAccess)...)

	router.GET("/dashboard/stats", handler.GetDashboardStats)
	router.GET("/stats/enrollments", handler.GetEnrollmentStats)
	router.GET("/courses/:courseId/enrollments", handler.GetCourseEnrollments)
	router.GET("/user-enrollments", handler.GetUserEnrollments)

	router.GET("/users", handler.ListUsers)
	router.POST("/users", handler.CreateUser)
	router.PUT("/users/:userId", handler.UpdateUser)
	router.DELETE("/users/:userId", handler.DeleteUser)

	router.GET("/system-stats", handler.GetSystemStats)
	router.GET("/logs", handler.GetSystemLogs)
}
