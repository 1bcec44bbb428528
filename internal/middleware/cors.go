package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/config"
)

// CORS builds the cross-origin policy from configuration. Without
// configured origins it allows everything, which is what local frontend
// development needs.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()

	cfg.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		"X-Requested-With",
		"Accept",
		"Accept-Encoding",
		"Accept-Language",
	}
	cfg.AllowMethods = []string{
		"GET",
		"POST",
		"PUT",
		"PATCH",
		"DELETE",
		"HEAD",
		"OPTIONS",
	}

	if gc := config.GlobalConfig; gc != nil && len(gc.Security.CORS.AllowOrigins) > 0 {
		cfg.AllowOrigins = gc.Security.CORS.AllowOrigins
		cfg.AllowCredentials = gc.Security.CORS.AllowCredentials
	} else {
		cfg.AllowAllOrigins = true
	}

	return cors.New(cfg)
}

// CORSWithConfig applies a caller-supplied policy
func CORSWithConfig(cfg cors.Config) gin.HandlerFunc {
	return cors.New(cfg)
}
