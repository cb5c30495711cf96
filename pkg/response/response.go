// Package response writes JSON bodies in the shape the college API uses:
// resources are returned bare, failures carry a "detail" message or a map of
// field errors.
package response

import (
	"net/http"

	apperrors "github.com/campusdesk/portal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// Success sends a successful JSON response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Detail sends {"detail": message}
func Detail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

// Error sends an error JSON response. An *AppError keeps its status and
// message; anything else is a 500.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok && appErr.Status != 0 {
		if len(appErr.Fields) > 0 {
			ValidationError(c, appErr.Status, appErr.Fields)
			return
		}
		Detail(c, appErr.Status, appErr.Message)
		return
	}

	_ = c.Error(err)
	Detail(c, http.StatusInternalServerError, "A server error occurred.")
}

// ValidationError sends field errors as {"field": ["message"]}
func ValidationError(c *gin.Context, status int, fields map[string]string) {
	body := make(gin.H, len(fields))
	for field, msg := range fields {
		body[field] = []string{msg}
	}
	c.JSON(status, body)
}
