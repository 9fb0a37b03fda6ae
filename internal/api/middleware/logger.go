package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request with method, path, status and duration.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path += "?" + c.Request.URL.RawQuery
		}
		log.Printf("[API] %s %s -> %d (%v)", c.Request.Method, path, c.Writer.Status(), time.Since(start))
		for _, e := range c.Errors {
			log.Printf("[API] error: %v", e.Err)
		}
	}
}
