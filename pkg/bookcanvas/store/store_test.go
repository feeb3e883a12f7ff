package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
)

func setupTestStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return NewGormStore(db)
}

func TestInsertAssignsIDAndTimestamps(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	canvas := models.Canvas{UserID: "u1", Title: "Demo"}
	require.NoError(t, s.Canvases.Insert(ctx, &canvas))

	assert.NotEmpty(t, canvas.ID)
	assert.False(t, canvas.CreatedAt.IsZero())
}

func TestListFiltersAndOrdersNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		require.NoError(t, s.Canvases.Insert(ctx, &models.Canvas{UserID: "u1", Title: title}))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, s.Canvases.Insert(ctx, &models.Canvas{UserID: "u2", Title: "other"}))

	rows, err := s.Canvases.List(ctx, Filter{"user_id": "u1"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "third", rows[0].Title)
	assert.Equal(t, "first", rows[2].Title)
}

func TestListFiltersOnFalseBoolean(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	private := models.Canvas{UserID: "u1", Title: "private"}
	public := models.Canvas{UserID: "u1", Title: "public", IsPublic: true}
	require.NoError(t, s.Canvases.Insert(ctx, &private))
	require.NoError(t, s.Canvases.Insert(ctx, &public))

	rows, err := s.Canvases.List(ctx, Filter{"is_public": false})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "private", rows[0].Title)
}

func TestGetMissing(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Groups.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTouchesOnlyGivenFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	group := models.Group{CanvasID: "c1", Title: "Docs", PositionX: 50, PositionY: 50, Width: 300, Height: 200}
	require.NoError(t, s.Groups.Insert(ctx, &group))

	updated, err := s.Groups.Update(ctx, group.ID, Fields{"position_x": 0.0, "position_y": 10.0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, updated.PositionX)
	assert.Equal(t, 10.0, updated.PositionY)
	assert.Equal(t, "Docs", updated.Title)
	assert.Equal(t, 300.0, updated.Width)
}

func TestUpdateKeepsUntouchedColumns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b := models.Bookmark{GroupID: "g1", Title: "Go", URL: "https://go.dev", Icon: "🐹", PositionX: 20, PositionY: 40}
	require.NoError(t, s.Bookmarks.Insert(ctx, &b))

	updated, err := s.Bookmarks.Update(ctx, b.ID, Fields{"title": "The Go site"})
	require.NoError(t, err)

	want := b
	want.Title = "The Go site"
	ignoreTimes := cmpopts.IgnoreFields(models.Base{}, "CreatedAt", "UpdatedAt")
	if diff := cmp.Diff(want, *updated, ignoreTimes); diff != "" {
		t.Errorf("updated bookmark mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateMissing(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Bookmarks.Update(context.Background(), "nope", Fields{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b := models.Bookmark{GroupID: "g1", Title: "X", URL: "https://x.test"}
	require.NoError(t, s.Bookmarks.Insert(ctx, &b))

	require.NoError(t, s.Bookmarks.Delete(ctx, b.ID))
	require.NoError(t, s.Bookmarks.Delete(ctx, b.ID))

	_, err := s.Bookmarks.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
