// Package store is the remote data store the canvas core talks to: one table
// per entity kind, reached through list/get/insert/update/delete with
// equality filters only.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
)

// ErrNotFound is returned by Get and Update when no row has the given id.
var ErrNotFound = errors.New("record not found")

// Filter is a set of column = value conditions joined with AND.
type Filter map[string]interface{}

// Fields is a partial row: only the named columns are written.
type Fields map[string]interface{}

// Table is the per-entity surface of the store.
type Table[T any] interface {
	// List returns matching rows, newest first.
	List(ctx context.Context, filter Filter) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	// Insert writes row and fills in server-assigned columns (id, timestamps).
	Insert(ctx context.Context, row *T) error
	Update(ctx context.Context, id string, fields Fields) (*T, error)
	// Delete succeeds when the row is already gone.
	Delete(ctx context.Context, id string) error
}

// Store groups the canvas tables.
type Store struct {
	Canvases  Table[models.Canvas]
	Groups    Table[models.Group]
	Bookmarks Table[models.Bookmark]
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Canvases:  NewGormTable[models.Canvas](db),
		Groups:    NewGormTable[models.Group](db),
		Bookmarks: NewGormTable[models.Bookmark](db),
	}
}

// GormTable implements Table with gorm.
type GormTable[T any] struct {
	db *gorm.DB
}

// NewGormTable returns a Table for model T.
func NewGormTable[T any](db *gorm.DB) *GormTable[T] {
	return &GormTable[T]{db: db}
}

func (t *GormTable[T]) List(ctx context.Context, filter Filter) ([]T, error) {
	var rows []T
	query := t.db.WithContext(ctx).Model(new(T)).Order("created_at DESC")
	if len(filter) > 0 {
		query = query.Where(map[string]interface{}(filter))
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *GormTable[T]) Get(ctx context.Context, id string) (*T, error) {
	row := new(T)
	err := t.db.WithContext(ctx).Where("id = ?", id).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (t *GormTable[T]) Insert(ctx context.Context, row *T) error {
	return t.db.WithContext(ctx).Create(row).Error
}

func (t *GormTable[T]) Update(ctx context.Context, id string, fields Fields) (*T, error) {
	if len(fields) == 0 {
		return t.Get(ctx, id)
	}
	result := t.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(map[string]interface{}(fields))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return t.Get(ctx, id)
}

func (t *GormTable[T]) Delete(ctx context.Context, id string) error {
	return t.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error
}
