package remotesync

import "github.com/mikepea/bookcanvas/pkg/bookcanvas/store"

// CanvasPatch lists the mutable canvas fields. Nil fields are left untouched.
type CanvasPatch struct {
	Title    *string
	IsPublic *bool
}

func (p CanvasPatch) fields() store.Fields {
	f := store.Fields{}
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.IsPublic != nil {
		f["is_public"] = *p.IsPublic
	}
	return f
}

// GroupPatch lists the mutable group fields. Nil fields are left untouched.
type GroupPatch struct {
	Title     *string
	PositionX *float64
	PositionY *float64
	Width     *float64
	Height    *float64
}

func (p GroupPatch) fields() store.Fields {
	f := store.Fields{}
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.PositionX != nil {
		f["position_x"] = *p.PositionX
	}
	if p.PositionY != nil {
		f["position_y"] = *p.PositionY
	}
	if p.Width != nil {
		f["width"] = *p.Width
	}
	if p.Height != nil {
		f["height"] = *p.Height
	}
	return f
}

// BookmarkPatch lists the mutable bookmark fields. Nil fields are left untouched.
type BookmarkPatch struct {
	GroupID   *string
	Title     *string
	URL       *string
	Icon      *string
	PositionX *float64
	PositionY *float64
}

func (p BookmarkPatch) fields() store.Fields {
	f := store.Fields{}
	if p.GroupID != nil {
		f["group_id"] = *p.GroupID
	}
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.URL != nil {
		f["url"] = *p.URL
	}
	if p.Icon != nil {
		f["icon"] = *p.Icon
	}
	if p.PositionX != nil {
		f["position_x"] = *p.PositionX
	}
	if p.PositionY != nil {
		f["position_y"] = *p.PositionY
	}
	return f
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}
