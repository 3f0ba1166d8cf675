package course

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
)

// RegisterRoutes attaches course and enrollment endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.AuthMiddleware) {
	router.GET("/getcourses", handler.List)
	router.GET("/my-courses", auth.Authenticate(), handler.MyCourses)
	router.GET("/admin/all-courses", append(auth.Require(authz.CourseListAll), handler.ListAll)...)
	router.GET("/:courseId", handler.GetByID)

	router.POST("/enroll/:courseId", auth.Authenticate(), handler.Enroll)
	router.PUT("/progress/:enrollmentId", auth.Authenticate(), handler.UpdateProgress)

	router.POST("/create", append(auth.Require(authz.CourseCreate), handler.Create)...)
	router.PUT("/update/:courseId", append(auth.Require(authz.AdminAccess), handler.Update)...)
	router.DELETE("/:courseId", append(auth.Require(authz.CourseDelete), handler.Delete)...)
}
