package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/validation"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db    *gorm.DB
	users *auth.UserService
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, minPasswordLength int) *Handler {
	validation.Register()
	return &Handler{db: db, users: auth.NewUserService(db, minPasswordLength)}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID              uint   `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	IsActive        bool   `json:"is_active"`
	IsStaff         bool   `json:"is_staff"`
	IsSuperuser     bool   `json:"is_superuser"`
	CreatedAt       string `json:"created_at"`
	RecipeCount     int64  `json:"recipe_count"`
	TagCount        int64  `json:"tag_count"`
	IngredientCount int64  `json:"ingredient_count"`
}

// CreateUserRequest represents an administratively created account
type CreateUserRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required"`
	Name        string `json:"name" binding:"required,notblank,max=255"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UpdateUserRequest represents the request to update a user
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,notblank,max=255"`
	IsActive *bool   `json:"is_active"`
	IsStaff  *bool   `json:"is_staff"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers        int64 `json:"total_users"`
	ActiveUsers       int64 `json:"active_users"`
	StaffUsers        int64 `json:"staff_users"`
	TotalRecipes      int64 `json:"total_recipes"`
	RecipesWithImages int64 `json:"recipes_with_images"`
	TotalTags         int64 `json:"total_tags"`
	TotalIngredients  int64 `json:"total_ingredients"`
	ActiveAPIKeys     int64 `json:"active_api_keys"`
}

type ownedCounts struct {
	recipes, tags, ingredients map[uint]int64
}

// countByOwner returns the number of rows of model per user_id.
func countByOwner(db *gorm.DB, model interface{}, userIDs []uint) (map[uint]int64, error) {
	var rows []struct {
		UserID uint
		Count  int64
	}
	err := db.Model(model).
		Select("user_id, COUNT(*) AS count").
		Where("user_id IN ?", userIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Count
	}
	return out, nil
}

func (h *Handler) counts(db *gorm.DB, users []models.User) (ownedCounts, error) {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	var oc ownedCounts
	var err error
	if len(ids) == 0 {
		return oc, nil
	}
	if oc.recipes, err = countByOwner(db, &models.Recipe{}, ids); err != nil {
		return oc, err
	}
	if oc.tags, err = countByOwner(db, &models.Tag{}, ids); err != nil {
		return oc, err
	}
	if oc.ingredients, err = countByOwner(db, &models.Ingredient{}, ids); err != nil {
		return oc, err
	}
	return oc, nil
}

func userToResponse(user models.User, oc ownedCounts) UserResponse {
	return UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		IsActive:        user.IsActive,
		IsStaff:         user.IsStaff,
		IsSuperuser:     user.IsSuperuser,
		CreatedAt:       user.CreatedAt.Format("2006-01-02T15:04:05Z"),
		RecipeCount:     oc.recipes[user.ID],
		TagCount:        oc.tags[user.ID],
		IngredientCount: oc.ingredients[user.ID],
	}
}

func (h *Handler) respondUser(c *gin.Context, status int, user *models.User) {
	db := h.db.WithContext(c.Request.Context())
	oc, err := h.counts(db, []models.User{*user})
	if err != nil {
		apperr.Respond(c, err, "", "Failed to count user records")
		return
	}
	c.JSON(status, userToResponse(*user, oc))
}

// ListUsers returns all users (staff only)
func (h *Handler) ListUsers(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var users []models.User

	query := db.Order("created_at DESC").Order("id DESC")

	// Optional search by email or name
	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	// Optional filter by flags
	if v := c.Query("is_staff"); v != "" {
		query = query.Where("is_staff = ?", v == "1" || v == "true")
	}
	if v := c.Query("is_active"); v != "" {
		query = query.Where("is_active = ?", v == "1" || v == "true")
	}

	if err := query.Find(&users).Error; err != nil {
		apperr.Respond(c, err, "", "Failed to fetch users")
		return
	}

	oc, err := h.counts(db, users)
	if err != nil {
		apperr.Respond(c, err, "", "Failed to count user records")
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = userToResponse(user, oc)
	}

	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (staff only)
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), uint(id))
	if err != nil {
		apperr.Respond(c, err, "User not found", "Failed to fetch user")
		return
	}

	h.respondUser(c, http.StatusOK, user)
}

// CreateUser creates an account on behalf of someone (staff only).
// Only superusers may create other superusers.
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IsSuperuser {
		currentUserID, _ := auth.GetUserID(c)
		current, err := h.users.Get(c.Request.Context(), currentUserID)
		if err != nil || !current.IsSuperuser {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only superusers can create superusers"})
			return
		}
	}

	user, err := h.users.Create(c.Request.Context(), auth.NewUser{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		apperr.Respond(c, err, "", "Failed to create user")
		return
	}

	h.respondUser(c, http.StatusCreated, user)
}

// UpdateUser updates a user's name and flags (staff only)
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), uint(id))
	if err != nil {
		apperr.Respond(c, err, "User not found", "Failed to fetch user")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Prevent staff from locking themselves out
	currentUserID, _ := auth.GetUserID(c)
	if user.ID == currentUserID {
		if req.IsStaff != nil && !*req.IsStaff {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
			return
		}
		if req.IsActive != nil && !*req.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate yourself"})
			return
		}
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsStaff != nil {
		updates["is_staff"] = *req.IsStaff
	}

	db := h.db.WithContext(c.Request.Context())
	if len(updates) > 0 {
		if err := db.Model(user).Updates(updates).Error; err != nil {
			apperr.Respond(c, err, "", "Failed to update user")
			return
		}
	}

	// Reload user
	user, err = h.users.Get(c.Request.Context(), uint(id))
	if err != nil {
		apperr.Respond(c, err, "User not found", "Failed to fetch user")
		return
	}

	h.respondUser(c, http.StatusOK, user)
}

// GetStats returns system-wide statistics (staff only)
func (h *Handler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var stats StatsResponse

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.User{}), &stats.TotalUsers},
		{db.Model(&models.User{}).Where("is_active = ?", true), &stats.ActiveUsers},
		{db.Model(&models.User{}).Where("is_staff = ?", true), &stats.StaffUsers},
		{db.Model(&models.Recipe{}), &stats.TotalRecipes},
		{db.Model(&models.Recipe{}).Where("image <> ''"), &stats.RecipesWithImages},
		{db.Model(&models.Tag{}), &stats.TotalTags},
		{db.Model(&models.Ingredient{}), &stats.TotalIngredients},
		{db.Model(&models.APIKey{}), &stats.ActiveAPIKeys},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dest).Error; err != nil {
			apperr.Respond(c, err, "", "Failed to compute stats")
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.POST("/users", h.CreateUser)
	rg.GET("/users/:id", h.GetUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.PATCH("/users/:id", h.UpdateUser)
}
