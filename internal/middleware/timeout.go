package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"storefront/pkg/utils"
)

// TimeoutConfig controls the per-request deadline middleware.
type TimeoutConfig struct {
	Timeout time.Duration
	// OnTimeout writes the response when the deadline passes. Required.
	OnTimeout gin.HandlerFunc
	// Skip exempts a request from the deadline. Websocket upgrades must
	// never run under this middleware; mount it on HTTP-only groups.
	Skip func(*gin.Context) bool
}

// TimeoutWithConfig runs the handler chain in a goroutine and aborts the
// request when the deadline passes. The downstream context is cancelled so
// database and provider calls stop with it.
func TimeoutWithConfig(cfg TimeoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Skip != nil && cfg.Skip(c) {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		go func() {
			defer func() {
				if r := recover(); r != nil {
					utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
				}
				close(done)
			}()
			c.Next()
		}()

		select {
		case <-done:
		case <-ctx.Done():
			cfg.OnTimeout(c)
			c.Abort()
		}
	}
}

// CheckoutTimeout bounds quote and order requests so a stalled payment or
// pricing lookup cannot hold a client connection open.
func CheckoutTimeout(timeout time.Duration) gin.HandlerFunc {
	return TimeoutWithConfig(TimeoutConfig{
		Timeout: timeout,
		OnTimeout: func(c *gin.Context) {
			utils.ErrorResponse(c, http.StatusRequestTimeout, "Checkout timed out, please retry")
		},
	})
}
