package user

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
)

// RegisterRoutes attaches self-service user endpoints to the /user group.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.AuthMiddleware) {
	router.PUT("/update/:identifier", auth.Authenticate(), handler.Update)
	router.DELETE("/delete/:identifier", auth.Authenticate(), handler.Delete)
	router.DELETE("/delete/admin/:identifier", append(auth.Require(authz.AdminAccess), handler.AdminDelete)...)
}
