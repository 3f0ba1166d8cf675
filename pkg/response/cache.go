package response

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Cacheable marks a public response as cacheable for maxAge seconds.
func Cacheable(c *gin.Context, maxAge int) {
	if maxAge <= 0 {
		c.Header("Cache-Control", "no-cache")
		return
	}
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
}

// NoStore forbids caching of per-user responses.
func NoStore(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}
