package session

import (
	"context"
	"strings"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/interaction"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/remotesync"
)

// GroupInput describes a new group. Zero size means DefaultGroupSize.
type GroupInput struct {
	Title    string
	Position interaction.Point
	Size     interaction.Size
}

// GroupEdit changes the supplied fields of a group.
type GroupEdit struct {
	Title    *string
	Position *interaction.Point
	Size     *interaction.Size
}

// BookmarkInput describes a new bookmark. A nil Position places it at the
// group origin plus DefaultBookmarkOffset.
type BookmarkInput struct {
	GroupID  string
	Title    string
	URL      string
	Icon     string
	Position *interaction.Point
}

// BookmarkEdit changes the supplied fields of a bookmark.
type BookmarkEdit struct {
	Title    *string
	URL      *string
	Icon     *string
	Position *interaction.Point
	GroupID  *string
}

// CreateCanvas inserts a canvas for userID after checking the title is
// non-empty and unused by that user.
func CreateCanvas(ctx context.Context, adapter *remotesync.Adapter, userID, title string) (*models.Canvas, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("Title is required")
	}
	taken, err := adapter.TitleTaken(ctx, userID, title, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("A canvas with this title already exists")
	}
	canvas := &models.Canvas{UserID: userID, Title: title}
	if err := adapter.CreateCanvas(ctx, canvas); err != nil {
		return nil, err
	}
	return canvas, nil
}

// Rename changes the canvas title. The new title must be unique among the
// owner's canvases.
func (c *Controller) Rename(ctx context.Context, title string) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.Validation("Title is required")
	}

	canvas := c.Canvas()
	if title == canvas.Title {
		return nil
	}
	taken, err := c.adapter.TitleTaken(ctx, canvas.UserID, title, canvas.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("A canvas with this title already exists")
	}

	c.mu.Lock()
	c.canvas.Title = title
	c.mu.Unlock()

	row, err := c.adapter.UpdateCanvas(ctx, canvas.ID, remotesync.CanvasPatch{Title: &title})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.canvas = *row
	c.mu.Unlock()
	return nil
}

// SetPublic records a visibility change made through the share gate.
func (c *Controller) SetPublic(public bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canvas.IsPublic = public
}

// CreateGroup inserts a group and adds it to the snapshot.
func (c *Controller) CreateGroup(ctx context.Context, in GroupInput) (*models.Group, error) {
	if err := c.checkWritable(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("Title is required")
	}
	size := in.Size
	if size.Width == 0 && size.Height == 0 {
		size = DefaultGroupSize
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, apperr.Validation("Size must be positive")
	}

	group := &models.Group{
		CanvasID:  c.Canvas().ID,
		Title:     title,
		PositionX: in.Position.X,
		PositionY: in.Position.Y,
		Width:     size.Width,
		Height:    size.Height,
	}
	if err := c.adapter.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Newest first, matching the order the store lists them in.
	c.groups = append([]models.Group{*group}, c.groups...)
	c.mu.Unlock()
	return group, nil
}

// UpdateGroup applies an explicit edit locally and waits for the store.
func (c *Controller) UpdateGroup(ctx context.Context, id string, edit GroupEdit) (*models.Group, error) {
	if err := c.checkWritable(); err != nil {
		return nil, err
	}
	var patch remotesync.GroupPatch
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return nil, apperr.Validation("Title is required")
		}
		patch.Title = &title
	}
	if edit.Position != nil {
		patch.PositionX = remotesync.Ptr(edit.Position.X)
		patch.PositionY = remotesync.Ptr(edit.Position.Y)
	}
	if edit.Size != nil {
		if edit.Size.Width <= 0 || edit.Size.Height <= 0 {
			return nil, apperr.Validation("Size must be positive")
		}
		patch.Width = remotesync.Ptr(edit.Size.Width)
		patch.Height = remotesync.Ptr(edit.Size.Height)
	}

	c.mu.Lock()
	i := c.groupIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return nil, apperr.NotFound("Group not found")
	}
	g := &c.groups[i]
	if patch.Title != nil {
		g.Title = *patch.Title
	}
	if edit.Position != nil {
		g.PositionX, g.PositionY = edit.Position.X, edit.Position.Y
	}
	if edit.Size != nil {
		g.Width, g.Height = edit.Size.Width, edit.Size.Height
	}
	c.mu.Unlock()

	row, err := c.adapter.UpdateGroup(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	delete(c.dirty, Target{Kind: KindGroup, ID: id})
	c.mu.Unlock()
	return row, nil
}

// DeleteGroup removes a group's bookmarks and then the group itself. It stops
// at the first failure; rows already deleted stay deleted.
func (c *Controller) DeleteGroup(ctx context.Context, id string) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	if _, ok := c.Group(id); !ok {
		return apperr.NotFound("Group not found")
	}

	bookmarks, err := c.adapter.ListBookmarks(ctx, id)
	if err != nil {
		return err
	}
	for _, b := range bookmarks {
		if err := c.adapter.DeleteBookmark(ctx, b.ID); err != nil {
			return err
		}
		c.dropBookmark(b.ID)
	}
	if err := c.adapter.DeleteGroup(ctx, id); err != nil {
		return err
	}
	c.dropGroup(id)
	return nil
}

// CreateBookmark inserts a bookmark into one of the canvas groups. A canvas
// without groups is rejected before any store call.
func (c *Controller) CreateBookmark(ctx context.Context, in BookmarkInput) (*models.Bookmark, error) {
	if err := c.checkWritable(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	noGroups := len(c.groups) == 0
	c.mu.Unlock()
	if noGroups {
		return nil, apperr.Validation(GuidanceCreateGroupFirst)
	}

	title := strings.TrimSpace(in.Title)
	url := strings.TrimSpace(in.URL)
	if title == "" || url == "" {
		return nil, apperr.Validation("Title and URL are required")
	}
	group, ok := c.Group(in.GroupID)
	if !ok {
		return nil, apperr.Validation("Select a group for the bookmark")
	}

	pos := interaction.Point{X: group.PositionX, Y: group.PositionY}.Add(DefaultBookmarkOffset)
	if in.Position != nil {
		pos = *in.Position
	}
	bookmark := &models.Bookmark{
		GroupID:   group.ID,
		Title:     title,
		URL:       url,
		Icon:      strings.TrimSpace(in.Icon),
		PositionX: pos.X,
		PositionY: pos.Y,
	}
	if err := c.adapter.CreateBookmark(ctx, bookmark); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.bookmarks = append([]models.Bookmark{*bookmark}, c.bookmarks...)
	c.mu.Unlock()
	return bookmark, nil
}

// UpdateBookmark applies an explicit edit locally and waits for the store.
func (c *Controller) UpdateBookmark(ctx context.Context, id string, edit BookmarkEdit) (*models.Bookmark, error) {
	if err := c.checkWritable(); err != nil {
		return nil, err
	}
	var patch remotesync.BookmarkPatch
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return nil, apperr.Validation("Title is required")
		}
		patch.Title = &title
	}
	if edit.URL != nil {
		url := strings.TrimSpace(*edit.URL)
		if url == "" {
			return nil, apperr.Validation("URL is required")
		}
		patch.URL = &url
	}
	if edit.Icon != nil {
		icon := strings.TrimSpace(*edit.Icon)
		patch.Icon = &icon
	}
	if edit.Position != nil {
		patch.PositionX = remotesync.Ptr(edit.Position.X)
		patch.PositionY = remotesync.Ptr(edit.Position.Y)
	}
	if edit.GroupID != nil {
		if _, ok := c.Group(*edit.GroupID); !ok {
			return nil, apperr.Validation("Select a group for the bookmark")
		}
		patch.GroupID = edit.GroupID
	}

	c.mu.Lock()
	i := c.bookmarkIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return nil, apperr.NotFound("Bookmark not found")
	}
	b := &c.bookmarks[i]
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.URL != nil {
		b.URL = *patch.URL
	}
	if patch.Icon != nil {
		b.Icon = *patch.Icon
	}
	if edit.Position != nil {
		b.PositionX, b.PositionY = edit.Position.X, edit.Position.Y
	}
	if patch.GroupID != nil {
		b.GroupID = *patch.GroupID
	}
	c.mu.Unlock()

	row, err := c.adapter.UpdateBookmark(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	delete(c.dirty, Target{Kind: KindBookmark, ID: id})
	c.mu.Unlock()
	return row, nil
}

// DeleteBookmark removes one bookmark.
func (c *Controller) DeleteBookmark(ctx context.Context, id string) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	if _, ok := c.Bookmark(id); !ok {
		return apperr.NotFound("Bookmark not found")
	}
	if err := c.adapter.DeleteBookmark(ctx, id); err != nil {
		return err
	}
	c.dropBookmark(id)
	return nil
}

// Delete removes the whole canvas: every bookmark first, then every group,
// then the canvas row. Children are enumerated from the store so rows added
// by other sessions are removed too.
func (c *Controller) Delete(ctx context.Context) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	canvasID := c.Canvas().ID

	groups, err := c.adapter.ListGroups(ctx, canvasID)
	if err != nil {
		return err
	}
	var bookmarks []models.Bookmark
	for _, g := range groups {
		rows, err := c.adapter.ListBookmarks(ctx, g.ID)
		if err != nil {
			return err
		}
		bookmarks = append(bookmarks, rows...)
	}

	for _, b := range bookmarks {
		if err := c.adapter.DeleteBookmark(ctx, b.ID); err != nil {
			return err
		}
		c.dropBookmark(b.ID)
	}
	for _, g := range groups {
		if err := c.adapter.DeleteGroup(ctx, g.ID); err != nil {
			return err
		}
		c.dropGroup(g.ID)
	}
	return c.adapter.DeleteCanvas(ctx, canvasID)
}

func (c *Controller) dropGroup(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.groupIndex(id); i >= 0 {
		c.groups = append(c.groups[:i], c.groups[i+1:]...)
	}
	delete(c.dirty, Target{Kind: KindGroup, ID: id})
	if c.active != nil && c.activeTarget == (Target{Kind: KindGroup, ID: id}) {
		c.active = nil
	}
}

func (c *Controller) dropBookmark(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.bookmarkIndex(id); i >= 0 {
		c.bookmarks = append(c.bookmarks[:i], c.bookmarks[i+1:]...)
	}
	delete(c.dirty, Target{Kind: KindBookmark, ID: id})
	if c.active != nil && c.activeTarget == (Target{Kind: KindBookmark, ID: id}) {
		c.active = nil
	}
}
