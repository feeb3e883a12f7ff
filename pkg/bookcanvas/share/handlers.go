package share

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/auth"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/canvases"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

// Handler serves the sharing toggle and the anonymous read routes
type Handler struct {
	gate     *Gate
	sessions *session.Registry
}

// NewHandler creates a new share handler
func NewHandler(gate *Gate, sessions *session.Registry) *Handler {
	return &Handler{gate: gate, sessions: sessions}
}

// SetVisibilityRequest represents the request to toggle sharing
type SetVisibilityRequest struct {
	IsPublic *bool `json:"is_public" binding:"required"`
}

// VisibilityResponse reports the sharing state of a canvas
type VisibilityResponse struct {
	Canvas   canvases.CanvasResponse `json:"canvas"`
	ShareURL string                  `json:"share_url,omitempty"`
}

// SetVisibility makes a canvas public or private. Owner only.
func (h *Handler) SetVisibility(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req SetVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	canvas, err := h.gate.SetPublic(c.Request.Context(), c.Param("id"), userID, *req.IsPublic)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if ctrl, ok := h.sessions.Lookup(canvas.ID); ok {
		ctrl.SetPublic(canvas.IsPublic)
	}

	resp := VisibilityResponse{Canvas: canvases.CanvasToResponse(*canvas)}
	if canvas.IsPublic {
		resp.ShareURL = h.gate.URL(canvas.ID)
	}
	c.JSON(http.StatusOK, resp)
}

// Public returns a shared canvas to anyone. Private and missing canvases
// both answer 404.
func (h *Handler) Public(c *gin.Context) {
	tree, err := h.gate.ReadPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, canvases.NewTreeResponse(*tree))
}

// RegisterRoutes registers the owner routes on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/canvases/:id/share", h.SetVisibility)
}

// RegisterPublicRoutes registers the anonymous routes: /api/share/:id and
// the share link itself.
func (h *Handler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/api/share/:id", h.Public)
	r.GET("/share/:id", h.Public)
}
