package apikeys

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CombinedAuthMiddleware accepts either a JWT or an API key as the bearer
// credential. Keys are recognised by TokenPrefix. Either way the owning
// account must be active.
func CombinedAuthMiddleware(db *gorm.DB, svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var userID uint
		if IsKeyToken(token) {
			key, err := svc.Authenticate(ctx, token)
			if err != nil {
				if !errors.Is(err, ErrInvalidKey) {
					logger.FromGin(c).Error("API key lookup failed", zap.Error(err))
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				return
			}
			userID = key.UserID
		} else {
			claims, err := auth.ValidateToken(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			userID = claims.UserID
		}

		user, err := auth.LoadActiveUser(db.WithContext(ctx), userID)
		if err != nil {
			auth.AbortUserLookup(c, err)
			return
		}

		auth.SetUser(c, user)
		c.Next()
	}
}
