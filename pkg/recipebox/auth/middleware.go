package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"gorm.io/gorm"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyEmail is the key for email in gin context
	ContextKeyEmail = "email"
	// ContextKeyIsStaff is the key for the staff flag in gin context
	ContextKeyIsStaff = "is_staff"
)

// ErrInactiveUser is returned when a valid credential belongs to a disabled account.
var ErrInactiveUser = errors.New("user inactive or deleted")

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// On failure it writes a 401 response and aborts the request.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// LoadActiveUser fetches the user behind a credential and rejects disabled accounts.
func LoadActiveUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInactiveUser
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return &user, nil
}

// SetUser stores the authenticated caller in the gin context.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyEmail, user.Email)
	c.Set(ContextKeyIsStaff, user.IsStaff)
}

// AbortUserLookup writes the response for a failed LoadActiveUser.
func AbortUserLookup(c *gin.Context, err error) {
	if errors.Is(err, ErrInactiveUser) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User inactive or deleted"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
}

// AuthMiddleware validates JWT tokens, checks the account is still active and
// sets user info in context
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c)
		if !ok {
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		user, err := LoadActiveUser(db.WithContext(c.Request.Context()), claims.UserID)
		if err != nil {
			AbortUserLookup(c, err)
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// RequireStaff middleware checks if the user has the staff flag
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextKeyUserID); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		if !IsStaff(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
			return
		}

		c.Next()
	}
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetEmail returns the email from the gin context
func GetEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(ContextKeyEmail)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// IsStaff reports whether the caller has the staff flag
func IsStaff(c *gin.Context) bool {
	return c.GetBool(ContextKeyIsStaff)
}
