package canvases

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/interaction"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

// CreateGroupRequest represents the request to create a group.
// Width and height default to 300x200.
type CreateGroupRequest struct {
	Title     string  `json:"title" binding:"required"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	Width     float64 `json:"width" binding:"omitempty,gt=0"`
	Height    float64 `json:"height" binding:"omitempty,gt=0"`
}

// UpdateGroupRequest changes only the fields that are present
type UpdateGroupRequest struct {
	Title     *string  `json:"title"`
	PositionX *float64 `json:"position_x"`
	PositionY *float64 `json:"position_y"`
	Width     *float64 `json:"width"`
	Height    *float64 `json:"height"`
}

// PositionRequest is the body of a move.
type PositionRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

// SizeRequest is the body of a resize.
type SizeRequest struct {
	Width  *float64 `json:"width" binding:"required"`
	Height *float64 `json:"height" binding:"required"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size := interaction.Size{Width: req.Width, Height: req.Height}
	if size.Width == 0 || size.Height == 0 {
		size = session.DefaultGroupSize
	}

	group, err := ctrl.CreateGroup(c.Request.Context(), session.GroupInput{
		Title:    req.Title,
		Position: interaction.Point{X: req.PositionX, Y: req.PositionY},
		Size:     size,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, groupToResponse(*group))
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	groupID := c.Param("groupId")
	current, found := ctrl.Group(groupID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	edit := session.GroupEdit{Title: req.Title}
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
	if req.Width != nil || req.Height != nil {
		s := interaction.Size{Width: current.Width, Height: current.Height}
		if req.Width != nil {
			s.Width = *req.Width
		}
		if req.Height != nil {
			s.Height = *req.Height
		}
		edit.Size = &s
	}

	group, err := ctrl.UpdateGroup(c.Request.Context(), groupID, edit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, groupToResponse(*group))
}

// MoveGroup applies a position locally and auto-saves it in the background.
func (h *Handler) MoveGroup(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	groupID := c.Param("groupId")
	if err := ctrl.MoveGroup(groupID, interaction.Point{X: *req.X, Y: *req.Y}); err != nil {
		apperr.Respond(c, err)
		return
	}
	group, _ := ctrl.Group(groupID)
	c.JSON(http.StatusAccepted, groupToResponse(group))
}

// ResizeGroup applies a size, clamped to the minimum, and auto-saves it.
func (h *Handler) ResizeGroup(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req SizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	groupID := c.Param("groupId")
	if err := ctrl.ResizeGroup(groupID, interaction.Size{Width: *req.Width, Height: *req.Height}); err != nil {
		apperr.Respond(c, err)
		return
	}
	group, _ := ctrl.Group(groupID)
	c.JSON(http.StatusAccepted, groupToResponse(group))
}

// DeleteGroup removes a group and its bookmarks.
func (h *Handler) DeleteGroup(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctrl.DeleteGroup(c.Request.Context(), c.Param("groupId")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}
