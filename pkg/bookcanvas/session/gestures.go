package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/interaction"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/remotesync"
)

// Frame is the geometry of one entity, live or final.
type Frame struct {
	Target   Target            `json:"target"`
	Position interaction.Point `json:"position"`
	Size     *interaction.Size `json:"size,omitempty"`
}

// PointerDown starts a drag or resize on target. Only one gesture can be
// active per controller; it reports false when nothing started.
func (c *Controller) PointerDown(target Target, region interaction.Region, pointer interaction.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return false
	}

	var m *interaction.Machine
	switch target.Kind {
	case KindGroup:
		i := c.groupIndex(target.ID)
		if i < 0 {
			return false
		}
		g := c.groups[i]
		m = interaction.NewResizable(
			interaction.Point{X: g.PositionX, Y: g.PositionY},
			interaction.Size{Width: g.Width, Height: g.Height},
			c.readOnly,
		)
	case KindBookmark:
		i := c.bookmarkIndex(target.ID)
		if i < 0 {
			return false
		}
		b := c.bookmarks[i]
		m = interaction.NewDraggable(interaction.Point{X: b.PositionX, Y: b.PositionY}, c.readOnly)
	default:
		return false
	}

	if !m.Down(region, pointer) {
		return false
	}
	c.active = m
	c.activeTarget = target
	return true
}

// PointerMove advances the active gesture and returns the live frame.
// Local state is not touched until PointerUp.
func (c *Controller) PointerMove(pointer interaction.Point) (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || !c.active.Move(pointer) {
		return Frame{}, false
	}
	return c.frameOf(c.activeTarget, c.active), true
}

// PointerUp finishes the active gesture: the result is applied locally and
// one auto-save is queued. Without an active gesture it does nothing.
func (c *Controller) PointerUp(pointer interaction.Point) (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return Frame{}, false
	}
	m, target := c.active, c.activeTarget
	c.active = nil

	out, ok := m.Up(pointer)
	if !ok {
		return Frame{}, false
	}

	switch target.Kind {
	case KindGroup:
		i := c.groupIndex(target.ID)
		if i < 0 {
			return Frame{}, false
		}
		if out.Moved {
			c.groups[i].PositionX, c.groups[i].PositionY = out.Position.X, out.Position.Y
		}
		if out.Resized {
			c.groups[i].Width, c.groups[i].Height = out.Size.Width, out.Size.Height
		}
	case KindBookmark:
		i := c.bookmarkIndex(target.ID)
		if i < 0 {
			return Frame{}, false
		}
		c.bookmarks[i].PositionX, c.bookmarks[i].PositionY = out.Position.X, out.Position.Y
	}

	c.autosaveLocked(target)
	return c.frameOf(target, m), true
}

// CancelGesture drops the active gesture without applying or saving it.
func (c *Controller) CancelGesture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}

// MoveGroup sets a group's position and auto-saves it.
func (c *Controller) MoveGroup(id string, p interaction.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	i := c.groupIndex(id)
	if i < 0 {
		return apperr.NotFound("Group not found")
	}
	c.groups[i].PositionX, c.groups[i].PositionY = p.X, p.Y
	c.autosaveLocked(Target{Kind: KindGroup, ID: id})
	return nil
}

// ResizeGroup sets a group's size, clamped to the minimum, and auto-saves it.
func (c *Controller) ResizeGroup(id string, s interaction.Size) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	i := c.groupIndex(id)
	if i < 0 {
		return apperr.NotFound("Group not found")
	}
	s = interaction.ClampSize(s)
	c.groups[i].Width, c.groups[i].Height = s.Width, s.Height
	c.autosaveLocked(Target{Kind: KindGroup, ID: id})
	return nil
}

// MoveBookmark sets a bookmark's position and auto-saves it.
func (c *Controller) MoveBookmark(id string, p interaction.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	i := c.bookmarkIndex(id)
	if i < 0 {
		return apperr.NotFound("Bookmark not found")
	}
	c.bookmarks[i].PositionX, c.bookmarks[i].PositionY = p.X, p.Y
	c.autosaveLocked(Target{Kind: KindBookmark, ID: id})
	return nil
}

// SaveDirty writes the current geometry of every dirty entity and waits for
// the result. Entities that save cleanly stop being dirty; the first failure
// is returned.
func (c *Controller) SaveDirty(ctx context.Context) error {
	var firstErr error
	for _, target := range c.Dirty() {
		c.mu.Lock()
		for c.isInflight(target) {
			c.idle.Wait()
		}
		if _, still := c.dirty[target]; !still {
			// A running auto-save already settled it.
			c.mu.Unlock()
			continue
		}
		c.inflight[target] = struct{}{}
		c.mu.Unlock()

		if err := c.saveLoop(ctx, target); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// autosaveLocked queues a background write of target's geometry. Writes for
// one target never overlap: while one runs, further changes collapse into a
// single follow-up write of the latest state. c.mu must be held.
func (c *Controller) autosaveLocked(target Target) {
	if c.isInflight(target) {
		c.pending[target] = struct{}{}
		return
	}
	c.inflight[target] = struct{}{}

	c.autosaves.Add(1)
	go func() {
		defer c.autosaves.Done()
		if err := c.saveLoop(c.saveCtx, target); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			c.logger.Warn("autosave failed",
				zap.String("kind", string(target.Kind)),
				zap.String("id", target.ID),
				zap.Error(err))
		}
	}()
}

// saveLoop writes target until no newer change is pending, then records the
// outcome of the last write in the dirty set and releases the target. The
// caller must have put target in inflight.
func (c *Controller) saveLoop(ctx context.Context, target Target) error {
	for {
		err := c.saveGeometry(ctx, target)

		c.mu.Lock()
		if _, again := c.pending[target]; again {
			delete(c.pending, target)
			c.mu.Unlock()
			continue
		}
		switch {
		case err == nil:
			delete(c.dirty, target)
		case !apperr.Is(err, apperr.KindNotFound):
			c.dirty[target] = struct{}{}
		}
		delete(c.inflight, target)
		c.idle.Broadcast()
		c.mu.Unlock()
		return err
	}
}

func (c *Controller) isInflight(target Target) bool {
	_, ok := c.inflight[target]
	return ok
}

// saveGeometry sends the current position (and size, for groups) of target.
// Missing local entities are reported as not found.
func (c *Controller) saveGeometry(ctx context.Context, target Target) error {
	c.mu.Lock()
	switch target.Kind {
	case KindGroup:
		i := c.groupIndex(target.ID)
		if i < 0 {
			c.mu.Unlock()
			return apperr.NotFound("Group not found")
		}
		g := c.groups[i]
		c.mu.Unlock()
		_, err := c.adapter.UpdateGroup(ctx, g.ID, remotesync.GroupPatch{
			PositionX: &g.PositionX,
			PositionY: &g.PositionY,
			Width:     &g.Width,
			Height:    &g.Height,
		})
		return err
	case KindBookmark:
		i := c.bookmarkIndex(target.ID)
		if i < 0 {
			c.mu.Unlock()
			return apperr.NotFound("Bookmark not found")
		}
		b := c.bookmarks[i]
		c.mu.Unlock()
		_, err := c.adapter.UpdateBookmark(ctx, b.ID, remotesync.BookmarkPatch{
			PositionX: &b.PositionX,
			PositionY: &b.PositionY,
		})
		return err
	default:
		c.mu.Unlock()
		return apperr.Validation("Unknown entity kind")
	}
}

func (c *Controller) frameOf(target Target, m *interaction.Machine) Frame {
	f := Frame{Target: target, Position: m.Position()}
	if target.Kind == KindGroup {
		s := m.Size()
		f.Size = &s
	}
	return f
}
