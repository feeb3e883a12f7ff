package session

import (
	"context"
	"sync"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/remotesync"
)

// Registry keeps one owner controller per canvas so REST calls and live
// sessions share the same snapshot and dirty set.
type Registry struct {
	adapter *remotesync.Adapter
	opts    []Option

	mu       sync.Mutex
	sessions map[string]*Controller
}

func NewRegistry(adapter *remotesync.Adapter, opts ...Option) *Registry {
	return &Registry{
		adapter:  adapter,
		opts:     opts,
		sessions: map[string]*Controller{},
	}
}

// Adapter returns the adapter controllers are built on.
func (r *Registry) Adapter() *remotesync.Adapter {
	return r.adapter
}

// Open returns the controller for canvasID, loading it on first use.
// Callers other than the owner get NotFound.
func (r *Registry) Open(ctx context.Context, canvasID, userID string) (*Controller, error) {
	r.mu.Lock()
	c, ok := r.sessions[canvasID]
	r.mu.Unlock()
	if ok {
		if c.Canvas().UserID != userID {
			return nil, apperr.NotFound("Canvas not found")
		}
		return c, nil
	}

	c, err := Open(ctx, r.adapter, canvasID, userID, r.opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[canvasID]; ok {
		return existing, nil
	}
	r.sessions[canvasID] = c
	return c, nil
}

// Lookup returns a loaded controller without touching the store.
func (r *Registry) Lookup(canvasID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[canvasID]
	return c, ok
}

// Forget drops a controller, waiting for its pending auto-saves first.
func (r *Registry) Forget(canvasID string) {
	r.mu.Lock()
	c, ok := r.sessions[canvasID]
	delete(r.sessions, canvasID)
	r.mu.Unlock()
	if ok {
		c.Wait()
	}
}

// Wait drains the pending auto-saves of every loaded controller.
func (r *Registry) Wait() {
	r.mu.Lock()
	all := make([]*Controller, 0, len(r.sessions))
	for _, c := range r.sessions {
		all = append(all, c)
	}
	r.mu.Unlock()
	for _, c := range all {
		c.Wait()
	}
}
