package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches registration and login to the /user group.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)
}
