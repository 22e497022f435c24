// Package importexport moves a user's recipes in and out as JSON documents.
package importexport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/logger"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/recipes"
	"github.com/mikepea/recipebox/pkg/recipebox/reconcile"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxImportRecipes caps the number of recipes accepted in one import request.
const MaxImportRecipes = 500

// Handler handles import/export requests
type Handler struct {
	svc *recipes.Service
}

// NewHandler creates a new import/export handler
func NewHandler(svc *recipes.Service) *Handler {
	return &Handler{svc: svc}
}

// RecipeDocument is the portable form of a recipe. Tags and ingredients are
// carried by name so a document can be imported into another account.
// Missing fields stay nil so the recipe service can reject them.
type RecipeDocument struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	TimeMinutes *int             `json:"time_minutes"`
	Price       *decimal.Decimal `json:"price"`
	Link        *string          `json:"link"`
	Tags        []string         `json:"tags"`
	Ingredients []string         `json:"ingredients"`
	Time        string           `json:"time,omitempty"`
}

// ImportRequest represents an import request
type ImportRequest struct {
	Recipes []RecipeDocument `json:"recipes" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	IDs      []uint   `json:"ids"`
	Errors   []string `json:"errors,omitempty"`
}

func toNameInputs(names []string) *[]reconcile.NameInput {
	items := make([]reconcile.NameInput, len(names))
	for i, n := range names {
		items[i] = reconcile.NameInput{Name: n}
	}
	return &items
}

func labelNames[T models.Label](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.GetName()
	}
	return out
}

func toDocument(r models.Recipe) RecipeDocument {
	return RecipeDocument{
		Title:       &r.Title,
		Description: &r.Description,
		TimeMinutes: &r.TimeMinutes,
		Price:       &r.Price,
		Link:        &r.Link,
		Tags:        labelNames(r.Tags),
		Ingredients: labelNames(r.Ingredients),
		Time:        r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Import creates one recipe per document. Each document is stored in its own
// transaction, so a bad entry is reported and skipped without affecting the rest.
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Recipes) > MaxImportRecipes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many recipes, the limit is " + strconv.Itoa(MaxImportRecipes)})
		return
	}

	result := ImportResult{
		IDs:    []uint{},
		Errors: []string{},
	}

	for i, doc := range req.Recipes {
		recipe, err := h.svc.Create(c.Request.Context(), userID, recipes.RecipeInput{
			Title:       doc.Title,
			Description: doc.Description,
			TimeMinutes: doc.TimeMinutes,
			Price:       doc.Price,
			Link:        doc.Link,
			Tags:        toNameInputs(doc.Tags),
			Ingredients: toNameInputs(doc.Ingredients),
		})
		if err != nil {
			msg := "internal error"
			if apperr.IsValidation(err) {
				msg = err.Error()
			} else {
				logger.FromGin(c).Error("Failed to import recipe", zap.Int("index", i), zap.Error(err))
			}
			result.Errors = append(result.Errors, "recipe "+strconv.Itoa(i)+": "+msg)
			result.Skipped++
			continue
		}
		result.IDs = append(result.IDs, recipe.ID)
		result.Imported++
	}

	c.JSON(http.StatusOK, result)
}

// Export returns all of the caller's recipes, newest first
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	list, err := h.svc.List(c.Request.Context(), userID, recipes.ListFilter{})
	if err != nil {
		apperr.Respond(c, err, "", "Failed to fetch recipes")
		return
	}

	docs := make([]RecipeDocument, len(list))
	for i, r := range list {
		docs[i] = toDocument(r)
	}

	// Set content disposition for download
	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=recipebox-export.json")
	}

	c.JSON(http.StatusOK, docs)
}

// ExportSingle exports one of the caller's recipes
func (h *Handler) ExportSingle(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	recipe, err := h.svc.Get(c.Request.Context(), userID, uint(id))
	if err != nil {
		apperr.Respond(c, err, "Recipe not found", "Failed to fetch recipe")
		return
	}

	c.JSON(http.StatusOK, toDocument(*recipe))
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Import)
	rg.GET("/export", h.Export)
	rg.GET("/export/:id", h.ExportSingle)
}
