package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logging 记录每个请求的方法、路径、状态码和耗时
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		log.Printf("[%s] %s | Status: %d | Latency: %v",
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
