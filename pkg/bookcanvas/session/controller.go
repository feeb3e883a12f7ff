// Package session holds the in-memory snapshot of one canvas for a view
// session and mediates every mutation between callers and the remote sync
// adapter.
//
// Mutations are optimistic: local state changes first, then the remote call
// is made. Position and size changes from pointer gestures are auto-saved in
// the background; a failed auto-save is logged and leaves the entity dirty
// until SaveDirty succeeds. Explicit edits wait for the store and return its
// error, without rolling local state back.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/interaction"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/remotesync"
)

// GuidanceCreateGroupFirst is returned when a bookmark is created on a canvas
// without groups.
const GuidanceCreateGroupFirst = "No groups exist yet. Create a group first."

// Default geometry for new groups and bookmarks.
var (
	DefaultGroupSize      = interaction.Size{Width: 300, Height: 200}
	DefaultBookmarkOffset = interaction.Point{X: 20, Y: 40}
)

// EntityKind names the two positioned entity kinds.
type EntityKind string

const (
	KindGroup    EntityKind = "group"
	KindBookmark EntityKind = "bookmark"
)

// Target identifies a positioned entity.
type Target struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// Controller is the canvas aggregate for one view session.
type Controller struct {
	mu        sync.Mutex
	adapter   *remotesync.Adapter
	logger    *zap.Logger
	canvas    models.Canvas
	groups    []models.Group
	bookmarks []models.Bookmark
	readOnly  bool

	dirty map[Target]struct{}

	// inflight holds targets with a save running; pending marks those that
	// changed again meanwhile and need one more write. idle is signalled
	// whenever a target leaves inflight.
	inflight map[Target]struct{}
	pending  map[Target]struct{}
	idle     *sync.Cond

	active       *interaction.Machine
	activeTarget Target

	// autosaves tracks fire-and-forget writes so Wait can drain them.
	autosaves sync.WaitGroup
	// saveCtx is the parent of every auto-save; it outlives the request
	// that started the gesture.
	saveCtx context.Context
}

// Option configures a Controller.
type Option func(*Controller)

// WithSaveContext sets the parent context for background auto-saves.
func WithSaveContext(ctx context.Context) Option {
	return func(c *Controller) { c.saveCtx = ctx }
}

// New builds a controller from an already loaded tree.
func New(adapter *remotesync.Adapter, tree *models.CanvasTree, readOnly bool, opts ...Option) *Controller {
	c := &Controller{
		adapter:   adapter,
		logger:    adapter.Logger().With(zap.String("canvas_id", tree.Canvas.ID)),
		canvas:    tree.Canvas,
		groups:    append([]models.Group(nil), tree.Groups...),
		bookmarks: append([]models.Bookmark(nil), tree.Bookmarks...),
		readOnly:  readOnly,
		dirty:     map[Target]struct{}{},
		inflight:  map[Target]struct{}{},
		pending:   map[Target]struct{}{},
		saveCtx:   context.Background(),
	}
	c.idle = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open loads the canvas for its owner. Canvases the user does not own are
// reported as not found.
func Open(ctx context.Context, adapter *remotesync.Adapter, canvasID, userID string, opts ...Option) (*Controller, error) {
	canvas, err := adapter.GetCanvas(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	if canvas.UserID != userID {
		return nil, apperr.NotFound("Canvas not found")
	}
	tree, err := adapter.LoadTree(ctx, *canvas)
	if err != nil {
		return nil, err
	}
	return New(adapter, tree, false, opts...), nil
}

// OpenShared loads a public canvas in read-only mode.
func OpenShared(ctx context.Context, adapter *remotesync.Adapter, canvasID string, opts ...Option) (*Controller, error) {
	canvas, err := adapter.GetPublicCanvas(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	tree, err := adapter.LoadTree(ctx, *canvas)
	if err != nil {
		return nil, err
	}
	return New(adapter, tree, true, opts...), nil
}

// ReadOnly reports whether mutations are refused.
func (c *Controller) ReadOnly() bool {
	return c.readOnly
}

// Canvas returns the current canvas row.
func (c *Controller) Canvas() models.Canvas {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canvas
}

// Snapshot returns a copy of the local tree.
func (c *Controller) Snapshot() models.CanvasTree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CanvasTree{
		Canvas:    c.canvas,
		Groups:    append([]models.Group{}, c.groups...),
		Bookmarks: append([]models.Bookmark{}, c.bookmarks...),
	}
}

// Group returns the local copy of a group.
func (c *Controller) Group(id string) (models.Group, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.groupIndex(id); i >= 0 {
		return c.groups[i], true
	}
	return models.Group{}, false
}

// Bookmark returns the local copy of a bookmark.
func (c *Controller) Bookmark(id string) (models.Bookmark, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.bookmarkIndex(id); i >= 0 {
		return c.bookmarks[i], true
	}
	return models.Bookmark{}, false
}

// Dirty lists entities whose last auto-save failed.
func (c *Controller) Dirty() []Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Target, 0, len(c.dirty))
	for t := range c.dirty {
		out = append(out, t)
	}
	return out
}

// Wait blocks until every pending auto-save has finished.
func (c *Controller) Wait() {
	c.autosaves.Wait()
}

func (c *Controller) groupIndex(id string) int {
	for i := range c.groups {
		if c.groups[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) bookmarkIndex(id string) int {
	for i := range c.bookmarks {
		if c.bookmarks[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) checkWritable() error {
	if c.readOnly {
		return apperr.Authorization("Canvas is read-only")
	}
	return nil
}
