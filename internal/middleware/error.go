package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/crewline/crewline-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandlerMiddleware handles errors and panics, mapping AppError kinds
// onto the response envelope.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stack).
					Msg("Panic recovered")

				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"kind":    errors.KindInternal,
						"message": "An unexpected error occurred",
					},
				})
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			if appErr, ok := err.(*errors.AppError); ok {
				body := gin.H{
					"kind":    appErr.Kind,
					"message": appErr.Message,
				}
				if appErr.Step != "" {
					body["step"] = appErr.Step
				}
				c.JSON(appErr.Code, gin.H{"success": false, "error": body})
				return
			}

			// Don't expose internals to the client
			logger.Error().Err(err).Msg("Unhandled request error")
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"kind":    errors.KindInternal,
					"message": "Internal server error",
				},
			})
		}
	}
}
