package recipes

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/reconcile"
	"github.com/mikepea/recipebox/pkg/recipebox/validation"
	"github.com/shopspring/decimal"
)

// Handler handles recipe requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new recipes handler
func NewHandler(svc *Service) *Handler {
	validation.Register()
	return &Handler{svc: svc}
}

// RecipeRequest is the body of create, full update and partial update.
// Any owner field in the payload is ignored.
type RecipeRequest struct {
	Title       *string                `json:"title" binding:"omitempty,notblank,max=255"`
	Description *string                `json:"description"`
	TimeMinutes *int                   `json:"time_minutes" binding:"omitempty,min=0"`
	Price       *decimal.Decimal       `json:"price"`
	Link        *string                `json:"link" binding:"omitempty,max=255"`
	Tags        *[]reconcile.NameInput `json:"tags"`
	Ingredients *[]reconcile.NameInput `json:"ingredients"`
}

func (r RecipeRequest) input() RecipeInput {
	return RecipeInput{
		Title:       r.Title,
		Description: r.Description,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        r.Tags,
		Ingredients: r.Ingredients,
	}
}

// NameResponse represents a tag or ingredient nested in a recipe
type NameResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// RecipeResponse is the list representation of a recipe
type RecipeResponse struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	TimeMinutes int            `json:"time_minutes"`
	Price       string         `json:"price"`
	Link        string         `json:"link"`
	Tags        []NameResponse `json:"tags"`
	Ingredients []NameResponse `json:"ingredients"`
}

// RecipeDetailResponse adds the fields only shown for a single recipe
type RecipeDetailResponse struct {
	RecipeResponse
	Description   string  `json:"description"`
	Image         *string `json:"image"`
	ImageBlurHash string  `json:"image_blurhash,omitempty"`
}

func namesToResponse[T models.Label](items []T) []NameResponse {
	out := make([]NameResponse, len(items))
	for i, it := range items {
		out[i] = NameResponse{ID: it.GetID(), Name: it.GetName()}
	}
	return out
}

func recipeToResponse(r models.Recipe) RecipeResponse {
	return RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price.StringFixed(2),
		Link:        r.Link,
		Tags:        namesToResponse(r.Tags),
		Ingredients: namesToResponse(r.Ingredients),
	}
}

func (h *Handler) recipeToDetail(r *models.Recipe) RecipeDetailResponse {
	out := RecipeDetailResponse{
		RecipeResponse: recipeToResponse(*r),
		Description:    r.Description,
		ImageBlurHash:  r.ImageBlurHash,
	}
	if url := h.svc.ImageURL(r); url != "" {
		out.Image = &url
	}
	return out
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return 0, false
	}
	return uint(id), true
}

// ParseIDList parses a comma-separated list of ids such as "1,2,3".
// Empty input yields no ids.
func ParseIDList(s string) ([]uint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func parseListFilter(c *gin.Context) (ListFilter, error) {
	var f ListFilter
	var err error

	tagParam := c.Query("tag")
	if tagParam == "" {
		tagParam = c.Query("tags")
	}
	if f.TagIDs, err = ParseIDList(tagParam); err != nil {
		return f, fmt.Errorf("tag: %w", err)
	}
	if f.IngredientIDs, err = ParseIDList(c.Query("ingredients")); err != nil {
		return f, fmt.Errorf("ingredients: %w", err)
	}
	if v := c.Query("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit < 0 {
			return f, fmt.Errorf("limit: invalid value %q", v)
		}
	}
	if v := c.Query("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			return f, fmt.Errorf("offset: invalid value %q", v)
		}
	}
	return f, nil
}

// List returns the caller's recipes
// @Summary List recipes
// @Tags recipes
// @Produce json
// @Param tag query string false "Comma separated tag ids"
// @Param ingredients query string false "Comma separated ingredient ids"
// @Param limit query int false "Max results"
// @Param offset query int false "Offset for pagination"
// @Success 200 {array} RecipeResponse
// @Security BearerAuth
// @Router /recipes [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	filter, err := parseListFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipes, err := h.svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		apperr.Respond(c, err, "", "Failed to fetch recipes")
		return
	}

	responses := make([]RecipeResponse, len(recipes))
	for i, r := range recipes {
		responses[i] = recipeToResponse(r)
	}
	c.JSON(http.StatusOK, responses)
}

// Get returns one recipe
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} RecipeDetailResponse
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	recipe, err := h.svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		apperr.Respond(c, err, "Recipe not found", "Failed to fetch recipe")
		return
	}
	c.JSON(http.StatusOK, h.recipeToDetail(recipe))
}

// Create creates a recipe owned by the caller
// @Summary Create a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body RecipeRequest true "Recipe"
// @Success 201 {object} RecipeDetailResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /recipes [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := h.svc.Create(c.Request.Context(), userID, req.input())
	if err != nil {
		apperr.Respond(c, err, "", "Failed to create recipe")
		return
	}
	c.JSON(http.StatusCreated, h.recipeToDetail(recipe))
}

// Update replaces (PUT) or patches (PATCH) a recipe
// @Summary Update a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body RecipeRequest true "Recipe fields"
// @Success 200 {object} RecipeDetailResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	partial := c.Request.Method == http.MethodPatch
	recipe, err := h.svc.Update(c.Request.Context(), userID, id, req.input(), partial)
	if err != nil {
		apperr.Respond(c, err, "Recipe not found", "Failed to update recipe")
		return
	}
	c.JSON(http.StatusOK, h.recipeToDetail(recipe))
}

// Delete deletes a recipe
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		apperr.Respond(c, err, "Recipe not found", "Failed to delete recipe")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImage attaches an image to a recipe
// @Summary Upload a recipe image
// @Tags recipes
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Recipe ID"
// @Param image formData file true "Image file"
// @Success 200 {object} RecipeDetailResponse
// @Failure 400 {object} map[string]string "Not an image"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/upload-image [post]
func (h *Handler) UploadImage(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	if h.svc.maxUploadBytes > 0 {
		// room for the multipart framing around the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.maxUploadBytes+1<<20)
	}

	var data []byte
	fh, err := c.FormFile("image")
	if err == nil {
		f, openErr := fh.Open()
		if openErr != nil {
			apperr.Respond(c, openErr, "", "Failed to read upload")
			return
		}
		defer f.Close()
		limit := h.svc.maxUploadBytes
		if limit <= 0 {
			limit = 1 << 30
		}
		data, err = io.ReadAll(io.LimitReader(f, limit+1))
		if err != nil {
			apperr.Respond(c, err, "", "Failed to read upload")
			return
		}
	} else if err != http.ErrMissingFile {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image: " + err.Error()})
		return
	}

	recipe, err := h.svc.UploadImage(c.Request.Context(), userID, id, data)
	if err != nil {
		apperr.Respond(c, err, "Recipe not found", "Failed to upload image")
		return
	}
	c.JSON(http.StatusOK, h.recipeToDetail(recipe))
}

// RegisterRoutes registers recipe routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes", h.List)
	rg.POST("/recipes", h.Create)
	rg.GET("/recipes/:id", h.Get)
	rg.PUT("/recipes/:id", h.Update)
	rg.PATCH("/recipes/:id", h.Update)
	rg.DELETE("/recipes/:id", h.Delete)
	rg.POST("/recipes/:id/upload-image", h.UploadImage)
}
