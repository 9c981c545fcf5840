// Package middleware holds ambient Gin middleware. Auth/CORS/rate-limiting
// are out of scope here (user-facing auth is an explicit non-goal), so this
// stays to request logging, swapping gin.Default()'s built-in logger for
// this repo's own internal/logging package so the per-component-prefix idiom
// stays consistent end to end.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mail-archiver/mail-archiver/internal/logging"
)

// RequestLogger logs method, path, status, and latency for every request at
// Info, and server errors (5xx) at Error.
func RequestLogger() gin.HandlerFunc {
	log := logging.New("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if status >= 500 {
			log.Error("%s %s -> %d (%s)", c.Request.Method, path, status, latency)
		} else {
			log.Info("%s %s -> %d (%s)", c.Request.Method, path, status, latency)
		}
	}
}
