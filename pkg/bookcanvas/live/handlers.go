// Package live streams pointer events from a browser into a canvas session
// over a websocket and answers with live geometry.
package live

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/auth"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/canvases"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/interaction"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

const (
	maxMessageSize = 4 * 1024
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests whose Origin host is exactly ours.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Handler upgrades live session requests
type Handler struct {
	sessions *session.Registry
	logger   *zap.Logger
}

// NewHandler creates a new live session handler
func NewHandler(sessions *session.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger}
}

// Owner opens an editable session on the caller's canvas.
func (h *Handler) Owner(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	ctrl, err := h.sessions.Open(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.serve(c, ctrl)
}

// Shared opens a read-only session on a public canvas.
func (h *Handler) Shared(c *gin.Context) {
	ctrl, err := session.OpenShared(c.Request.Context(), h.sessions.Adapter(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.serve(c, ctrl)
}

func (h *Handler) serve(c *gin.Context, ctrl *session.Controller) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	canvasID := ctrl.Canvas().ID
	log := h.logger.With(zap.String("canvas_id", canvasID))
	log.Debug("live session opened", zap.Bool("read_only", ctrl.ReadOnly()))
	defer log.Debug("live session closed")

	// The controller is shared with other connections on the same canvas,
	// so only a gesture started here is ours to move, finish or drop.
	g := &gesture{}
	// A gesture cut off by a disconnect is dropped, not applied.
	defer g.release(ctrl)

	tree := canvases.NewTreeResponse(ctrl.Snapshot())
	if err := write(conn, ServerMessage{Type: MsgReady, Tree: &tree, ReadOnly: ctrl.ReadOnly()}); err != nil {
		return
	}

	ctx := c.Request.Context()
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("live session read failed", zap.Error(err))
			}
			return
		}
		if err := write(conn, handle(ctx, ctrl, g, msg)); err != nil {
			return
		}
	}
}

// gesture tracks whether this connection owns the controller's active
// gesture.
type gesture struct {
	owned bool
}

// release drops the active gesture if this connection started it.
func (g *gesture) release(ctrl *session.Controller) {
	if g.owned {
		ctrl.CancelGesture()
		g.owned = false
	}
}

// handle applies one client message to the controller.
func handle(ctx context.Context, ctrl *session.Controller, g *gesture, msg ClientMessage) ServerMessage {
	pointer := interaction.Point{X: msg.X, Y: msg.Y}

	switch msg.Type {
	case MsgMove, MsgUp, MsgCancel:
		if !g.owned {
			return ServerMessage{Type: MsgIgnored}
		}
	}

	switch msg.Type {
	case MsgDown:
		region, err := interaction.ParseRegion(msg.Region)
		if err != nil {
			return ServerMessage{Type: MsgError, Error: err.Error(), Kind: string(apperr.KindValidation)}
		}
		if !ctrl.PointerDown(session.Target{Kind: msg.Kind, ID: msg.ID}, region, pointer) {
			return ServerMessage{Type: MsgIgnored}
		}
		g.owned = true
		frame, _ := ctrl.PointerMove(pointer)
		return ServerMessage{Type: MsgFrame, Frame: &frame}

	case MsgMove:
		frame, ok := ctrl.PointerMove(pointer)
		if !ok {
			return ServerMessage{Type: MsgIgnored}
		}
		return ServerMessage{Type: MsgFrame, Frame: &frame}

	case MsgUp:
		g.owned = false
		frame, ok := ctrl.PointerUp(pointer)
		if !ok {
			return ServerMessage{Type: MsgIgnored}
		}
		return ServerMessage{Type: MsgApplied, Frame: &frame}

	case MsgCancel:
		g.owned = false
		ctrl.CancelGesture()
		return ServerMessage{Type: MsgIgnored}

	case MsgSave:
		if err := ctrl.SaveDirty(ctx); err != nil {
			return ServerMessage{Type: MsgError, Error: err.Error(), Kind: string(apperr.KindOf(err)), Dirty: ctrl.Dirty()}
		}
		return ServerMessage{Type: MsgSaved}

	default:
		return ServerMessage{Type: MsgError, Error: "Unknown message type", Kind: string(apperr.KindValidation)}
	}
}

func write(conn *websocket.Conn, msg ServerMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// RegisterRoutes registers the owner route on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/canvases/:id/live", h.Owner)
}

// RegisterPublicRoutes registers the read-only route for shared canvases
func (h *Handler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/api/share/:id/live", h.Shared)
}
