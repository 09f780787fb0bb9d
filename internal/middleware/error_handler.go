package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/pkg/logger"
)

// ErrorResponse is the standard JSON error body returned to API clients.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorHandler recovers panics and renders any handler-set gin errors as apperr.Error
// responses, falling back to a generic 500 for unrecognized errors.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = nil
				}
				logger.Error("panic recovered", err, map[string]interface{}{
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				})
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error: "internal server error",
					Code:  string(apperr.KindInternal),
				})
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		RespondError(c, err)
	}
}

// RespondError writes the appropriate JSON error response for err, unwrapping an
// *apperr.Error if present and falling back to a 500 otherwise.
func RespondError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		logger.Warn("request failed", map[string]interface{}{
			"kind":   string(appErr.Kind),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"error":  appErr.Error(),
		})
		c.JSON(appErr.StatusCode(), ErrorResponse{
			Error:   appErr.Message,
			Code:    string(appErr.Kind),
			Details: appErr.Details,
		})
		c.Abort()
		return
	}

	logger.Error("request failed", err, map[string]interface{}{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	})
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  string(apperr.KindInternal),
	})
	c.Abort()
}
