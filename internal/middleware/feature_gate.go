package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// FeatureGate hides surfaces that are switched off in configuration.
// A disabled entity type answers exactly like a type that was never
// registered, so clients cannot tell a switched-off feature from an
// unknown one.
func FeatureGate(disabledTypes map[string]bool, activityFeedOff bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if t := c.Param("type"); t != "" && disabledTypes[t] {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Unknown entity type"})
			return
		}
		if activityFeedOff && strings.HasSuffix(c.FullPath(), "/audit/recent") {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.Next()
	}
}
