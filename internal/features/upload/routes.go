package upload

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
)

// RegisterRoutes attaches the image endpoints. Both require a staff role.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.AuthMiddleware) {
	router.POST("/image", append(auth.Require(authz.AdminAccess), handler.UploadImage)...)
	router.DELETE("/image", append(auth.Require(authz.AdminAccess), handler.DeleteImage)...)
}
