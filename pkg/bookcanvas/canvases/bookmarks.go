package canvases

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/interaction"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

// CreateBookmarkRequest represents the request to create a bookmark.
// Without a position the bookmark lands just inside its group.
type CreateBookmarkRequest struct {
	GroupID   string   `json:"group_id"`
	Title     string   `json:"title" binding:"required"`
	URL       string   `json:"url" binding:"required,url"`
	Icon      string   `json:"icon"`
	PositionX *float64 `json:"position_x"`
	PositionY *float64 `json:"position_y"`
}

// UpdateBookmarkRequest changes only the fields that are present
type UpdateBookmarkRequest struct {
	GroupID   *string  `json:"group_id"`
	Title     *string  `json:"title"`
	URL       *string  `json:"url" binding:"omitempty,url"`
	Icon      *string  `json:"icon"`
	PositionX *float64 `json:"position_x"`
	PositionY *float64 `json:"position_y"`
}

func (h *Handler) CreateBookmark(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req CreateBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := session.BookmarkInput{
		GroupID: req.GroupID,
		Title:   req.Title,
		URL:     req.URL,
		Icon:    req.Icon,
	}
	if req.PositionX != nil && req.PositionY != nil {
		in.Position = &interaction.Point{X: *req.PositionX, Y: *req.PositionY}
	}

	bookmark, err := ctrl.CreateBookmark(c.Request.Context(), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookmarkToResponse(*bookmark))
}

func (h *Handler) UpdateBookmark(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req UpdateBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookmarkID := c.Param("bookmarkId")
	current, found := ctrl.Bookmark(bookmarkID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bookmark not found"})
		return
	}

	edit := session.BookmarkEdit{
		Title:   req.Title,
		URL:     req.URL,
		Icon:    req.Icon,
		GroupID: req.GroupID,
	}
	if req.PositionX != nil || req.PositionY != nil {
		p := interaction.Point{X: current.PositionX, Y: current.PositionY}
		if req.PositionX != nil {
			p.X = *req.PositionX
		}
		if req.PositionY != nil {
			p.Y = *req.PositionY
		}
		edit.Position = &p
	}

	bookmark, err := ctrl.UpdateBookmark(c.Request.Context(), bookmarkID, edit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarkToResponse(*bookmark))
}

// MoveBookmark applies a position locally and auto-saves it in the background.
func (h *Handler) MoveBookmark(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bookmarkID := c.Param("bookmarkId")
	if err := ctrl.MoveBookmark(bookmarkID, interaction.Point{X: *req.X, Y: *req.Y}); err != nil {
		apperr.Respond(c, err)
		return
	}
	bookmark, _ := ctrl.Bookmark(bookmarkID)
	c.JSON(http.StatusAccepted, bookmarkToResponse(bookmark))
}

func (h *Handler) DeleteBookmark(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctrl.DeleteBookmark(c.Request.Context(), c.Param("bookmarkId")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark deleted"})
}
