package canvases

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/auth"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/search"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

// Handler handles canvas, group and bookmark requests
type Handler struct {
	sessions *session.Registry
	logger   *zap.Logger
}

// NewHandler creates a new canvases handler
func NewHandler(sessions *session.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger}
}

// CreateCanvasRequest represents the request to create a canvas
type CreateCanvasRequest struct {
	Title string `json:"title" binding:"required"`
}

// UpdateCanvasRequest represents the request to rename a canvas
type UpdateCanvasRequest struct {
	Title string `json:"title" binding:"required"`
}

// controller resolves the owner session for the :id canvas, writing the
// error response itself when that fails.
func (h *Handler) controller(c *gin.Context) (*session.Controller, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	ctrl, err := h.sessions.Open(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}
	return ctrl, true
}

// List returns the caller's canvases, newest first.
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	rows, err := h.sessions.Adapter().ListCanvases(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	responses := make([]CanvasResponse, len(rows))
	for i, row := range rows {
		responses[i] = CanvasToResponse(row)
	}
	c.JSON(http.StatusOK, responses)
}

// Create adds a canvas owned by the caller.
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	canvas, err := session.CreateCanvas(c.Request.Context(), h.sessions.Adapter(), userID, req.Title)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.logger.Info("canvas created", zap.String("canvas_id", canvas.ID), zap.String("user_id", userID))
	c.JSON(http.StatusCreated, CanvasToResponse(*canvas))
}

// Get returns the canvas tree and any unsynced entities.
func (h *Handler) Get(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	resp := NewTreeResponse(ctrl.Snapshot())
	resp.Dirty = ctrl.Dirty()
	c.JSON(http.StatusOK, resp)
}

// Update renames a canvas.
func (h *Handler) Update(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req UpdateCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ctrl.Rename(c.Request.Context(), req.Title); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, CanvasToResponse(ctrl.Canvas()))
}

// Delete removes the canvas with all its groups and bookmarks.
func (h *Handler) Delete(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	canvasID := ctrl.Canvas().ID

	if err := ctrl.Delete(c.Request.Context()); err != nil {
		apperr.Respond(c, err)
		return
	}
	h.sessions.Forget(canvasID)
	h.logger.Info("canvas deleted", zap.String("canvas_id", canvasID))
	c.JSON(http.StatusOK, gin.H{"message": "Canvas deleted"})
}

// SaveDirty retries every failed auto-save of the canvas.
func (h *Handler) SaveDirty(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctrl.SaveDirty(c.Request.Context()); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Saved"})
}

// Search fuzzy-matches bookmark titles and URLs on one canvas.
func (h *Handler) Search(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query required"})
		return
	}

	results := search.Bookmarks(ctrl.Snapshot().Bookmarks, query)
	out := make([]gin.H, len(results))
	for i, r := range results {
		out[i] = gin.H{
			"bookmark":        bookmarkToResponse(r.Bookmark),
			"matched_indexes": r.MatchedIndexes,
			"score":           r.Score,
		}
	}
	c.JSON(http.StatusOK, out)
}

// RegisterRoutes registers canvas routes on an authenticated router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/canvases", h.List)
	rg.POST("/canvases", h.Create)
	rg.GET("/canvases/:id", h.Get)
	rg.PATCH("/canvases/:id", h.Update)
	rg.DELETE("/canvases/:id", h.Delete)
	rg.POST("/canvases/:id/save", h.SaveDirty)
	rg.GET("/canvases/:id/search", h.Search)

	rg.POST("/canvases/:id/groups", h.CreateGroup)
	rg.PATCH("/canvases/:id/groups/:groupId", h.UpdateGroup)
	rg.PUT("/canvases/:id/groups/:groupId/position", h.MoveGroup)
	rg.PUT("/canvases/:id/groups/:groupId/size", h.ResizeGroup)
	rg.DELETE("/canvases/:id/groups/:groupId", h.DeleteGroup)

	rg.POST("/canvases/:id/bookmarks", h.CreateBookmark)
	rg.PATCH("/canvases/:id/bookmarks/:bookmarkId", h.UpdateBookmark)
	rg.PUT("/canvases/:id/bookmarks/:bookmarkId/position", h.MoveBookmark)
	rg.DELETE("/canvases/:id/bookmarks/:bookmarkId", h.DeleteBookmark)
}
