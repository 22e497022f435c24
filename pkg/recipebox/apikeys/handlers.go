package apikeys

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
)

// Handler handles API key requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new API keys handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// KeyResponse describes a stored key. The secret is never included.
type KeyResponse struct {
	ID          uint       `json:"id"`
	KeyPrefix   string     `json:"key_prefix"`
	Description string     `json:"description"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IssuedKeyResponse is returned once, on creation.
type IssuedKeyResponse struct {
	KeyResponse
	Key string `json:"key"`
}

// CreateKeyRequest is the optional body of POST /api-keys
type CreateKeyRequest struct {
	Description string `json:"description"`
}

func toKeyResponse(k models.APIKey) KeyResponse {
	return KeyResponse{
		ID:          k.ID,
		KeyPrefix:   k.KeyPrefix,
		Description: k.Description,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}

// Create issues a key for the caller
// @Summary Create an API key
// @Tags api-keys
// @Accept json
// @Produce json
// @Param request body CreateKeyRequest false "Description"
// @Success 201 {object} IssuedKeyResponse
// @Security BearerAuth
// @Router /api-keys [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateKeyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	issued, err := h.svc.Create(c.Request.Context(), userID, req.Description)
	if err != nil {
		apperr.Respond(c, err, "", "Failed to create API key")
		return
	}

	c.JSON(http.StatusCreated, IssuedKeyResponse{
		KeyResponse: toKeyResponse(issued.APIKey),
		Key:         issued.Token,
	})
}

// List returns the caller's keys
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	keys, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err, "", "Failed to fetch API keys")
		return
	}

	out := make([]KeyResponse, len(keys))
	for i, k := range keys {
		out[i] = toKeyResponse(k)
	}
	c.JSON(http.StatusOK, out)
}

// Delete revokes one of the caller's keys
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid API key ID"})
		return
	}

	if err := h.svc.Revoke(c.Request.Context(), userID, uint(id)); err != nil {
		apperr.Respond(c, err, "API key not found", "Failed to delete API key")
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers API key routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/api-keys", h.Create)
	rg.GET("/api-keys", h.List)
	rg.DELETE("/api-keys/:id", h.Delete)
}
