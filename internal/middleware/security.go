package middleware

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/finscale/finscale-api/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimitResponse is returned with 429 Too Many Requests
type RateLimitResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"` // seconds
}

// RateLimit consumes one point of limiter per request, keyed by client IP.
// Limiter errors let the request through.
func RateLimit(limiter ratelimit.Limiter, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		res, err := limiter.Consume(c.Request.Context(), clientIP)
		if err != nil {
			log.Printf("⚠️  Rate limiter %s unavailable, allowing request: %v", name, err)
			c.Next()
			return
		}

		if !res.Allowed {
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			log.Printf("🚫 Rate limit %s exceeded for %s %s from %s", name, c.Request.Method, c.FullPath(), clientIP)
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, RateLimitResponse{
				Error:      fmt.Sprintf("Too many requests, try again in %d seconds", retry),
				RetryAfter: retry,
			})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}

// SecurityHeaders adds the usual hardening headers to API responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}
