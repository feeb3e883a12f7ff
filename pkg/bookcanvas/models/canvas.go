package models

// Canvas is a user-owned board holding groups of bookmarks.
// IsPublic controls anonymous read access through the share endpoints.
type Canvas struct {
	Base
	UserID   string `gorm:"not null;index;type:varchar(36)" json:"user_id"`
	Title    string `gorm:"not null" json:"title"`
	IsPublic bool   `gorm:"not null;default:false;index" json:"is_public"`

	// Relationships
	Groups []Group `gorm:"foreignKey:CanvasID" json:"groups,omitempty"`
}

// Group is a positioned, resizable container on a canvas
type Group struct {
	Base
	CanvasID  string  `gorm:"not null;index;type:varchar(36)" json:"canvas_id"`
	Title     string  `gorm:"not null" json:"title"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`

	// Relationships
	Bookmarks []Bookmark `gorm:"foreignKey:GroupID" json:"bookmarks,omitempty"`
}

// Bookmark is a titled link card placed inside a group.
// Positions are canvas coordinates, not offsets from the group.
type Bookmark struct {
	Base
	GroupID   string  `gorm:"not null;index;type:varchar(36)" json:"group_id"`
	Title     string  `gorm:"not null" json:"title"`
	URL       string  `gorm:"not null" json:"url"`
	Icon      string  `json:"icon,omitempty"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
}

// CanvasTree is a canvas with every group and bookmark it owns.
type CanvasTree struct {
	Canvas    Canvas     `json:"canvas"`
	Groups    []Group    `json:"groups"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// BookmarksIn returns the bookmarks of the tree that belong to groupID.
func (t CanvasTree) BookmarksIn(groupID string) []Bookmark {
	var out []Bookmark
	for _, b := range t.Bookmarks {
		if b.GroupID == groupID {
			out = append(out, b)
		}
	}
	return out
}
