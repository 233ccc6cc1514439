package api

import (
	"strconv"
	"time"

	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller_user_id"

// identityMiddleware copies the authenticated user id from the
// X-User-ID header into the request context. Token verification
// happens upstream; this service only consumes the resulting identity.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(callerKey, userID)
		}
		c.Next()
	}
}

// callerID returns the authenticated user id, empty when the request
// is anonymous.
func callerID(c *gin.Context) string {
	return c.GetString(callerKey)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// pageParams reads page/limit query params with sane bounds.
func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}
