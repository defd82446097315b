// internal/server/middleware.go
package server

import (
	"strconv"
	"strings"
	"time"

	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/metrics"

	"github.com/gin-gonic/gin"
)

// authRequired introspects the bearer token and threads the resulting
// identity into the request context for the core services.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			s.respondError(c, errors.NewUnauthorizedError("missing bearer token"))
			c.Abort()
			return
		}

		ident, err := s.auth.Introspect(c.Request.Context(), token)
		if err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), ident))
		c.Next()
	}
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// respondError maps the error taxonomy onto HTTP statuses and a stable
// error body.
func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	status := errors.HTTPStatus(code)

	if status >= 500 {
		s.logger.Error("request failed", map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"code":   code,
			"error":  err,
		})
	}

	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}
