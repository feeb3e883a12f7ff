package live

import (
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/canvases"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

// Client message types.
const (
	MsgDown   = "down"
	MsgMove   = "move"
	MsgUp     = "up"
	MsgCancel = "cancel"
	MsgSave   = "save"
)

// Server message types.
const (
	MsgReady   = "ready"
	MsgFrame   = "frame"
	MsgApplied = "applied"
	MsgIgnored = "ignored"
	MsgSaved   = "saved"
	MsgError   = "error"
)

// ClientMessage is one pointer event or command from the browser.
type ClientMessage struct {
	Type   string             `json:"type"`
	Kind   session.EntityKind `json:"kind,omitempty"`
	ID     string             `json:"id,omitempty"`
	Region string             `json:"region,omitempty"`
	X      float64            `json:"x"`
	Y      float64            `json:"y"`
}

// ServerMessage answers a client message.
type ServerMessage struct {
	Type     string                 `json:"type"`
	Tree     *canvases.TreeResponse `json:"tree,omitempty"`
	ReadOnly bool                   `json:"read_only,omitempty"`
	Frame    *session.Frame         `json:"frame,omitempty"`
	Dirty    []session.Target       `json:"dirty,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Kind     string                 `json:"kind,omitempty"`
}
