package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"storefront/pkg/log"
)

// MiddlewareRateLimitConfig configures the in-process token bucket limiter.
// The redis-backed limiters in pkg/limiter cover cross-instance limits; this
// middleware is a cheap first line in front of them.
type MiddlewareRateLimitConfig struct {
	// Rate is the sustained requests per second per key.
	Rate float64
	// Burst is the bucket size.
	Burst int
	// KeyFunc picks the bucket. Defaults to client IP.
	KeyFunc func(c *gin.Context) string
	// ErrorHandler writes the rejection response.
	ErrorHandler func(c *gin.Context)
	// SkipFunc exempts a request from limiting.
	SkipFunc func(c *gin.Context) bool
}

// DefaultMiddlewareRateLimitConfig returns IP-keyed defaults suitable for the
// public catalog routes.
func DefaultMiddlewareRateLimitConfig() MiddlewareRateLimitConfig {
	return MiddlewareRateLimitConfig{
		Rate:  100,
		Burst: 200,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
		ErrorHandler: func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": "Too many requests",
			})
			c.Abort()
		},
		SkipFunc: func(c *gin.Context) bool {
			return false
		},
	}
}

// RateLimit applies the default config at the given rate.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	config := DefaultMiddlewareRateLimitConfig()
	config.Rate = rps
	config.Burst = burst
	return RateLimitWithConfig(config)
}

// RateLimitWithConfig keeps one token bucket per key. Buckets live for the
// process lifetime; keys are bounded by the authenticated user population.
func RateLimitWithConfig(config MiddlewareRateLimitConfig) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		if config.SkipFunc(c) {
			c.Next()
			return
		}

		key := config.KeyFunc(c)

		mu.Lock()
		limiter, exists := limiters[key]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(config.Rate), config.Burst)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			log.WithFields(map[string]interface{}{
				"key":    key,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"ip":     c.ClientIP(),
			}).Warn("Rate limit exceeded")

			config.ErrorHandler(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// userKey keys a bucket by the authenticated user id, falling back to client
// IP for unauthenticated requests. Auth stores the id as int64.
func userKey(prefix string) func(c *gin.Context) string {
	return func(c *gin.Context) string {
		if v, ok := c.Get(UserIDKey); ok {
			if id, ok := v.(int64); ok {
				return fmt.Sprintf("%s:%d", prefix, id)
			}
		}
		return c.ClientIP()
	}
}

// ChatRateLimit bounds chat HTTP endpoints per user so one noisy session
// cannot starve the AI generation budget for everyone else.
func ChatRateLimit() gin.HandlerFunc {
	config := DefaultMiddlewareRateLimitConfig()
	config.Rate = 10
	config.Burst = 20
	config.KeyFunc = userKey("chat")
	config.ErrorHandler = func(c *gin.Context) {
		c.Header("X-RateLimit-Limit", strconv.FormatFloat(config.Rate, 'f', 0, 64))
		c.Header("X-RateLimit-Remaining", "0")
		c.Header("Retry-After", "1")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    429,
			"message": "Chat rate limit exceeded, please try again later",
		})
	}
	return RateLimitWithConfig(config)
}

// CheckoutRateLimit bounds quote and order creation per user. Tighter than
// the chat limit because every request may open a payment intent.
func CheckoutRateLimit() gin.HandlerFunc {
	config := DefaultMiddlewareRateLimitConfig()
	config.Rate = 5
	config.Burst = 10
	config.KeyFunc = userKey("checkout")
	return RateLimitWithConfig(config)
}
