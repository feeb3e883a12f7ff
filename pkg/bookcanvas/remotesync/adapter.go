// Package remotesync turns canvas mutations into store calls and every store
// failure into an *apperr.Error. Nothing above this package sees a raw
// driver error.
package remotesync

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/store"
)

// maxTreeFanout bounds concurrent per-group bookmark queries in LoadTree.
const maxTreeFanout = 8

// Adapter is the remote sync adapter.
type Adapter struct {
	store  *store.Store
	logger *zap.Logger
}

// New returns an Adapter over s. A nil logger discards output.
func New(s *store.Store, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{store: s, logger: logger}
}

// Logger returns the adapter's logger.
func (a *Adapter) Logger() *zap.Logger {
	return a.logger
}

func (a *Adapter) remote(msg string, err error, fields ...zap.Field) error {
	a.logger.Warn(msg, append(fields, zap.Error(err))...)
	return apperr.Remote(msg, err)
}

// Canvases

// ListCanvases returns the canvases owned by userID, newest first.
func (a *Adapter) ListCanvases(ctx context.Context, userID string) ([]models.Canvas, error) {
	rows, err := a.store.Canvases.List(ctx, store.Filter{"user_id": userID})
	if err != nil {
		return nil, a.remote("Failed to fetch canvases", err)
	}
	return rows, nil
}

// GetCanvas returns a canvas by id regardless of owner or visibility.
func (a *Adapter) GetCanvas(ctx context.Context, id string) (*models.Canvas, error) {
	row, err := a.store.Canvases.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Canvas not found")
	}
	if err != nil {
		return nil, a.remote("Failed to fetch canvas", err, zap.String("canvas_id", id))
	}
	return row, nil
}

// GetPublicCanvas reads a canvas through the public filter only. Private and
// missing canvases produce the same NotFound.
func (a *Adapter) GetPublicCanvas(ctx context.Context, id string) (*models.Canvas, error) {
	rows, err := a.store.Canvases.List(ctx, store.Filter{"id": id, "is_public": true})
	if err != nil {
		return nil, a.remote("Failed to fetch canvas", err, zap.String("canvas_id", id))
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("Canvas not found")
	}
	return &rows[0], nil
}

// TitleTaken reports whether userID already has a canvas titled title,
// ignoring excludeID.
func (a *Adapter) TitleTaken(ctx context.Context, userID, title, excludeID string) (bool, error) {
	rows, err := a.store.Canvases.List(ctx, store.Filter{"user_id": userID, "title": title})
	if err != nil {
		return false, a.remote("Failed to check canvas title", err)
	}
	for _, r := range rows {
		if r.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (a *Adapter) CreateCanvas(ctx context.Context, canvas *models.Canvas) error {
	if err := a.store.Canvases.Insert(ctx, canvas); err != nil {
		return a.remote("Failed to create canvas", err)
	}
	return nil
}

func (a *Adapter) UpdateCanvas(ctx context.Context, id string, patch CanvasPatch) (*models.Canvas, error) {
	row, err := a.store.Canvases.Update(ctx, id, patch.fields())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Canvas not found")
	}
	if err != nil {
		return nil, a.remote("Failed to update canvas", err, zap.String("canvas_id", id))
	}
	return row, nil
}

func (a *Adapter) DeleteCanvas(ctx context.Context, id string) error {
	if err := a.store.Canvases.Delete(ctx, id); err != nil {
		return a.remote("Failed to delete canvas", err, zap.String("canvas_id", id))
	}
	return nil
}

// Groups

// ListGroups returns the groups of a canvas, newest first.
func (a *Adapter) ListGroups(ctx context.Context, canvasID string) ([]models.Group, error) {
	rows, err := a.store.Groups.List(ctx, store.Filter{"canvas_id": canvasID})
	if err != nil {
		return nil, a.remote("Failed to fetch groups", err, zap.String("canvas_id", canvasID))
	}
	return rows, nil
}

func (a *Adapter) CreateGroup(ctx context.Context, group *models.Group) error {
	if err := a.store.Groups.Insert(ctx, group); err != nil {
		return a.remote("Failed to create group", err)
	}
	return nil
}

func (a *Adapter) UpdateGroup(ctx context.Context, id string, patch GroupPatch) (*models.Group, error) {
	row, err := a.store.Groups.Update(ctx, id, patch.fields())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Group not found")
	}
	if err != nil {
		return nil, a.remote("Failed to update group", err, zap.String("group_id", id))
	}
	return row, nil
}

func (a *Adapter) DeleteGroup(ctx context.Context, id string) error {
	if err := a.store.Groups.Delete(ctx, id); err != nil {
		return a.remote("Failed to delete group", err, zap.String("group_id", id))
	}
	return nil
}

// Bookmarks

// ListBookmarks returns the bookmarks of a group, newest first.
func (a *Adapter) ListBookmarks(ctx context.Context, groupID string) ([]models.Bookmark, error) {
	rows, err := a.store.Bookmarks.List(ctx, store.Filter{"group_id": groupID})
	if err != nil {
		return nil, a.remote("Failed to fetch bookmarks", err, zap.String("group_id", groupID))
	}
	return rows, nil
}

func (a *Adapter) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	if err := a.store.Bookmarks.Insert(ctx, bookmark); err != nil {
		return a.remote("Failed to create bookmark", err)
	}
	return nil
}

func (a *Adapter) UpdateBookmark(ctx context.Context, id string, patch BookmarkPatch) (*models.Bookmark, error) {
	row, err := a.store.Bookmarks.Update(ctx, id, patch.fields())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Bookmark not found")
	}
	if err != nil {
		return nil, a.remote("Failed to update bookmark", err, zap.String("bookmark_id", id))
	}
	return row, nil
}

func (a *Adapter) DeleteBookmark(ctx context.Context, id string) error {
	if err := a.store.Bookmarks.Delete(ctx, id); err != nil {
		return a.remote("Failed to delete bookmark", err, zap.String("bookmark_id", id))
	}
	return nil
}

// LoadTree reads the groups of canvas and then the bookmarks of every group,
// one query per group.
func (a *Adapter) LoadTree(ctx context.Context, canvas models.Canvas) (*models.CanvasTree, error) {
	groups, err := a.ListGroups(ctx, canvas.ID)
	if err != nil {
		return nil, err
	}

	perGroup := make([][]models.Bookmark, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxTreeFanout)
	for i := range groups {
		i := i
		eg.Go(func() error {
			rows, err := a.ListBookmarks(egCtx, groups[i].ID)
			if err != nil {
				return err
			}
			perGroup[i] = rows
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	tree := &models.CanvasTree{
		Canvas:    canvas,
		Groups:    groups,
		Bookmarks: []models.Bookmark{},
	}
	if tree.Groups == nil {
		tree.Groups = []models.Group{}
	}
	for _, rows := range perGroup {
		tree.Bookmarks = append(tree.Bookmarks, rows...)
	}
	return tree, nil
}
