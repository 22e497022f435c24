package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/logger"
	"go.uber.org/zap"
)

// Respond writes the JSON error body for err. Validation errors become 400,
// ErrNotFound becomes 404 with notFound as the message, and anything else is
// logged and reported as a 500 with internal as the message.
func Respond(c *gin.Context, err error, notFound, internal string) {
	var v *ValidationError
	switch {
	case errors.As(err, &v):
		c.JSON(http.StatusBadRequest, gin.H{"error": v.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	default:
		logger.FromGin(c).Error(internal, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": internal})
	}
}
