package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// InternalKeyRequired guards endpoints called by the enrollment and firing subsystems.
// An empty key disables the endpoints entirely.
func InternalKeyRequired(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Internal-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "message": "internal access required", "reason": "forbidden"})
			return
		}
		c.Next()
	}
}
