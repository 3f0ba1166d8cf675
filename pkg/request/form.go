package request

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// IsMultipart reports whether the request carries a multipart body.
func IsMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// FormString returns the trimmed form value for key, or nil when the field
// was not sent at all.
func FormString(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(value)
	return &trimmed
}

// FormBool parses a boolean form field. Unrecognised values yield nil.
func FormBool(c *gin.Context, key string) *bool {
	raw := FormString(c, key)
	if raw == nil {
		return nil
	}
	var value bool
	switch strings.ToLower(*raw) {
	case "true", "1", "on", "yes":
		value = true
	case "false", "0", "off", "no", "":
		value = false
	default:
		return nil
	}
	return &value
}
