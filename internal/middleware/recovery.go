package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"storefront/pkg/log"
	"storefront/pkg/utils"
)

// Recovery converts panics into a 500 response and logs the stack
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(map[string]interface{}{
			"error":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"stack":  string(debug.Stack()),
		}).Error("Panic recovered")

		utils.Error(c, utils.CodeInternalError, "Internal server error")
	})
}

// RecoveryWithWriter uses a caller-supplied recovery function
func RecoveryWithWriter(writer gin.RecoveryFunc) gin.HandlerFunc {
	return gin.CustomRecovery(writer)
}

// DefaultRecoveryFunc writes the standard error envelope, for use with
// RecoveryWithWriter
func DefaultRecoveryFunc(c *gin.Context, err interface{}) {
	log.WithFields(map[string]interface{}{
		"error":      err,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"ip":         c.ClientIP(),
		"user_agent": c.Request.UserAgent(),
	}).Error("Panic recovered")

	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    utils.CodeInternalError,
		"message": "Internal server error",
		"data":    nil,
	})
	c.Abort()
}
