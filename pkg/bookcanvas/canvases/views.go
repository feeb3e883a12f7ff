package canvases

import (
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

const timeFormat = "2006-01-02T15:04:05Z"

// CanvasResponse represents a canvas in API responses
type CanvasResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	IsPublic  bool   `json:"is_public"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// GroupResponse represents a group and its bookmarks
type GroupResponse struct {
	ID        string             `json:"id"`
	CanvasID  string             `json:"canvas_id"`
	Title     string             `json:"title"`
	PositionX float64            `json:"position_x"`
	PositionY float64            `json:"position_y"`
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Bookmarks []BookmarkResponse `json:"bookmarks,omitempty"`
}

// BookmarkResponse represents a bookmark in API responses
type BookmarkResponse struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"group_id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Icon      string  `json:"icon,omitempty"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
}

// TreeResponse is a canvas with everything on it.
type TreeResponse struct {
	Canvas CanvasResponse   `json:"canvas"`
	Groups []GroupResponse  `json:"groups"`
	Dirty  []session.Target `json:"dirty,omitempty"`
}

// CanvasToResponse converts a canvas row for API responses.
func CanvasToResponse(c models.Canvas) CanvasResponse {
	return CanvasResponse{
		ID:        c.ID,
		Title:     c.Title,
		IsPublic:  c.IsPublic,
		CreatedAt: c.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: c.UpdatedAt.UTC().Format(timeFormat),
	}
}

func groupToResponse(g models.Group) GroupResponse {
	return GroupResponse{
		ID:        g.ID,
		CanvasID:  g.CanvasID,
		Title:     g.Title,
		PositionX: g.PositionX,
		PositionY: g.PositionY,
		Width:     g.Width,
		Height:    g.Height,
	}
}

func bookmarkToResponse(b models.Bookmark) BookmarkResponse {
	return BookmarkResponse{
		ID:        b.ID,
		GroupID:   b.GroupID,
		Title:     b.Title,
		URL:       b.URL,
		Icon:      b.Icon,
		PositionX: b.PositionX,
		PositionY: b.PositionY,
	}
}

// NewTreeResponse nests bookmarks under their groups.
func NewTreeResponse(tree models.CanvasTree) TreeResponse {
	resp := TreeResponse{
		Canvas: CanvasToResponse(tree.Canvas),
		Groups: make([]GroupResponse, len(tree.Groups)),
	}
	for i, g := range tree.Groups {
		gr := groupToResponse(g)
		for _, b := range tree.BookmarksIn(g.ID) {
			gr.Bookmarks = append(gr.Bookmarks, bookmarkToResponse(b))
		}
		resp.Groups[i] = gr
	}
	return resp
}
