package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/validation"
	"gorm.io/gorm"
)

// Handler handles authentication requests
type Handler struct {
	db    *gorm.DB
	users *UserService
}

// NewHandler creates a new auth handler. minPasswordLength applies to
// registration and password changes.
func NewHandler(db *gorm.DB, minPasswordLength int) *Handler {
	validation.Register()
	return &Handler{db: db, users: NewUserService(db, minPasswordLength)}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required,notblank,max=255"`
}

// TokenRequest represents the token request body
type TokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateMeRequest represents a self-service profile change.
// Omitted fields are left as they are.
type UpdateMeRequest struct {
	Name     *string `json:"name" binding:"omitempty,notblank,max=255"`
	Password *string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID      uint   `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsStaff bool   `json:"is_staff"`
}

// ToUserResponse converts a user to its public representation.
func ToUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		IsStaff: user.IsStaff,
	}
}

func (h *Handler) issue(c *gin.Context, status int, user *models.User) {
	token, err := GenerateToken(user.ID, user.Email, user.IsStaff)
	if err != nil {
		apperr.Respond(c, err, "", "Failed to generate token")
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: ToUserResponse(user)})
}

// Register handles user registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} map[string]string "Validation error or email already registered"
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Create(c.Request.Context(), NewUser{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		apperr.Respond(c, err, "", "Failed to create user")
		return
	}

	h.issue(c, http.StatusCreated, user)
}

// Token exchanges credentials for a JWT
// @Summary Obtain a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/token [post]
func (h *Handler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unable to authenticate with provided credentials"})
			return
		}
		apperr.Respond(c, err, "", "Failed to authenticate")
		return
	}

	h.issue(c, http.StatusOK, user)
}

// Me returns the current authenticated user
// @Summary Get current user
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err, "User not found", "Failed to load user")
		return
	}

	c.JSON(http.StatusOK, ToUserResponse(user))
}

// UpdateMe changes the caller's name and/or password
// @Summary Update current user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body UpdateMeRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /auth/me [patch]
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Update(c.Request.Context(), userID, UserUpdate{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		apperr.Respond(c, err, "User not found", "Failed to update user")
		return
	}

	c.JSON(http.StatusOK, ToUserResponse(user))
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/token", h.Token)

	me := rg.Group("/me", AuthMiddleware(h.db))
	me.GET("", h.Me)
	me.PUT("", h.UpdateMe)
	me.PATCH("", h.UpdateMe)
}
