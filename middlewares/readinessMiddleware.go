package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"github.com/gin-gonic/gin"
)

// ReadinessMiddleware answers the startup probe and returns 503 until the database is connected.
// Redis is optional: cache, lock and sessions degrade without it.
func ReadinessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	}
}
