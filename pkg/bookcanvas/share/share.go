// Package share controls canvas visibility and anonymous read access.
package share

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/remotesync"
)

// Gate toggles visibility for owners and serves public canvases to anyone.
type Gate struct {
	adapter *remotesync.Adapter
	baseURL string
}

func NewGate(adapter *remotesync.Adapter, baseURL string) *Gate {
	return &Gate{adapter: adapter, baseURL: baseURL}
}

// SetPublic changes the visibility of a canvas. Only its owner may do so.
func (g *Gate) SetPublic(ctx context.Context, canvasID, userID string, public bool) (*models.Canvas, error) {
	canvas, err := g.adapter.GetCanvas(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	if canvas.UserID != userID {
		return nil, apperr.Authorization("Only the owner can change sharing")
	}
	if canvas.IsPublic == public {
		return canvas, nil
	}
	updated, err := g.adapter.UpdateCanvas(ctx, canvasID, remotesync.CanvasPatch{IsPublic: &public})
	if err != nil {
		return nil, err
	}
	g.adapter.Logger().Info("canvas visibility changed",
		zap.String("canvas_id", canvasID),
		zap.Bool("public", public))
	return updated, nil
}

// ReadPublic returns the tree of a public canvas. Private and missing
// canvases are indistinguishable.
func (g *Gate) ReadPublic(ctx context.Context, canvasID string) (*models.CanvasTree, error) {
	canvas, err := g.adapter.GetPublicCanvas(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	return g.adapter.LoadTree(ctx, *canvas)
}

// URL is the public link for canvasID.
func (g *Gate) URL(canvasID string) string {
	return ShareURL(g.baseURL, canvasID)
}

// ShareURL builds {base}/share/{id}.
func ShareURL(baseURL, canvasID string) string {
	return strings.TrimRight(baseURL, "/") + "/share/" + url.PathEscape(canvasID)
}
