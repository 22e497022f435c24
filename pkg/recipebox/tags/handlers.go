package tags

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/validation"
	"gorm.io/gorm"
)

// Handler handles tag or ingredient requests
type Handler[T models.Label] struct {
	svc  *Service[T]
	kind models.LabelKind
	// Title-cased noun for messages
	title string
}

// NewHandler creates a handler for T
func NewHandler[T models.Label](db *gorm.DB) *Handler[T] {
	validation.Register()
	kind := models.KindOf[T]()
	return &Handler[T]{
		svc:   NewService[T](db),
		kind:  kind,
		title: strings.ToUpper(kind.Noun[:1]) + kind.Noun[1:],
	}
}

// NewTagHandler creates the /tags handler
func NewTagHandler(db *gorm.DB) *Handler[models.Tag] {
	return NewHandler[models.Tag](db)
}

// NewIngredientHandler creates the /ingredients handler
func NewIngredientHandler(db *gorm.DB) *Handler[models.Ingredient] {
	return NewHandler[models.Ingredient](db)
}

// LabelResponse represents a tag or ingredient in API responses
type LabelResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// RenameRequest is the body of PUT and PATCH. PUT requires the name.
type RenameRequest struct {
	Name *string `json:"name" binding:"omitempty,notblank,max=255"`
}

func toResponse[T models.Label](rec T) LabelResponse {
	return LabelResponse{ID: rec.GetID(), Name: rec.GetName()}
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no":
		return false, true
	case "1", "true", "yes":
		return true, true
	}
	return false, false
}

func (h *Handler[T]) parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + h.kind.Noun + " ID"})
		return 0, false
	}
	return uint(id), true
}

// List returns the caller's records ordered by name descending
// @Summary List tags or ingredients
// @Tags tags
// @Produce json
// @Param assigned_only query int false "Only records linked to a recipe (0 or 1)"
// @Success 200 {array} LabelResponse
// @Security BearerAuth
// @Router /tags [get]
func (h *Handler[T]) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	assignedOnly, ok := parseBool(c.Query("assigned_only"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assigned_only must be 0 or 1"})
		return
	}

	records, err := h.svc.List(c.Request.Context(), userID, assignedOnly)
	if err != nil {
		apperr.Respond(c, err, "", "Failed to fetch "+h.kind.Table)
		return
	}

	responses := make([]LabelResponse, len(records))
	for i, r := range records {
		responses[i] = toResponse(r)
	}
	c.JSON(http.StatusOK, responses)
}

// Update renames a record
// @Summary Rename a tag or ingredient
// @Tags tags
// @Accept json
// @Produce json
// @Param id path int true "ID"
// @Param request body RenameRequest true "New name"
// @Success 200 {object} LabelResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /tags/{id} [patch]
func (h *Handler[T]) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var rec *T
	var err error
	switch {
	case req.Name != nil:
		rec, err = h.svc.Rename(c.Request.Context(), userID, id, *req.Name)
	case c.Request.Method == http.MethodPut:
		// look the record up first so foreign ids still answer 404
		if _, err = h.svc.Get(c.Request.Context(), userID, id); err == nil {
			err = apperr.Validation("name", "this field is required")
		}
	default:
		rec, err = h.svc.Get(c.Request.Context(), userID, id)
	}
	if err != nil {
		apperr.Respond(c, err, h.title+" not found", "Failed to update "+h.kind.Noun)
		return
	}

	c.JSON(http.StatusOK, toResponse(*rec))
}

// Delete removes a record and detaches it from the caller's recipes
// @Summary Delete a tag or ingredient
// @Tags tags
// @Param id path int true "ID"
// @Success 204
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /tags/{id} [delete]
func (h *Handler[T]) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		apperr.Respond(c, err, h.title+" not found", "Failed to delete "+h.kind.Noun)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the list, rename and delete routes under /<table>
func (h *Handler[T]) RegisterRoutes(rg *gin.RouterGroup) {
	base := "/" + h.kind.Table
	rg.GET(base, h.List)
	rg.PUT(base+"/:id", h.Update)
	rg.PATCH(base+"/:id", h.Update)
	rg.DELETE(base+"/:id", h.Delete)
}
