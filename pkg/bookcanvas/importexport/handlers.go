package importexport

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/auth"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/canvases"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

// maxImportSize caps uploaded bookmark files.
const maxImportSize = 10 << 20

// Handler handles import/export requests
type Handler struct {
	sessions *session.Registry
	logger   *zap.Logger
}

// NewHandler creates a new import/export handler
func NewHandler(sessions *session.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger}
}

// PinboardImportRequest represents a Pinboard import into one group
type PinboardImportRequest struct {
	GroupID   string             `json:"group_id" binding:"required"`
	Bookmarks []PinboardBookmark `json:"bookmarks" binding:"required"`
}

func (h *Handler) controller(c *gin.Context) (*session.Controller, bool) {
	userID, _ := auth.GetUserID(c)
	ctrl, err := h.sessions.Open(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}
	return ctrl, true
}

// ImportPinboard imports bookmarks from Pinboard JSON format into a group
func (h *Handler) ImportPinboard(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req PinboardImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := ImportPinboard(c.Request.Context(), ctrl, req.GroupID, req.Bookmarks)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.logger.Info("pinboard import",
		zap.String("canvas_id", c.Param("id")),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	c.JSON(http.StatusOK, result)
}

// ImportHTML imports a Netscape bookmark file, either as the raw request
// body or as the "file" field of a multipart form. Each folder becomes a
// group.
func (h *Handler) ImportHTML(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var src io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request.Body
	}

	data, err := io.ReadAll(io.LimitReader(src, maxImportSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	if len(data) > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Import file too large"})
		return
	}

	folders, err := ParseNetscape(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bookmark file"})
		return
	}
	if len(folders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No bookmarks found"})
		return
	}

	result, err := ImportFolders(c.Request.Context(), ctrl, folders)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.logger.Info("html import",
		zap.String("canvas_id", c.Param("id")),
		zap.Int("groups", result.Groups),
		zap.Int("imported", result.Imported))
	c.JSON(http.StatusOK, result)
}

// Export writes the canvas as JSON (default), Netscape HTML or a CBOR
// snapshot.
func (h *Handler) Export(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	tree := ctrl.Snapshot()

	switch c.DefaultQuery("format", "json") {
	case "json":
		if c.Query("download") == "true" {
			c.Header("Content-Disposition", "attachment; filename=bookcanvas-export.json")
		}
		c.JSON(http.StatusOK, canvases.NewTreeResponse(tree))
	case "html":
		var buf bytes.Buffer
		if err := WriteNetscape(&buf, tree); err != nil {
			apperr.Respond(c, err)
			return
		}
		if c.Query("download") == "true" {
			c.Header("Content-Disposition", "attachment; filename=bookcanvas-export.html")
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	case "cbor":
		var buf bytes.Buffer
		if err := WriteSnapshot(&buf, tree); err != nil {
			apperr.Respond(c, err)
			return
		}
		if c.Query("download") == "true" {
			c.Header("Content-Disposition", "attachment; filename=bookcanvas-export.cbor")
		}
		c.Data(http.StatusOK, "application/cbor", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown export format"})
	}
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/canvases/:id/import/pinboard", h.ImportPinboard)
	rg.POST("/canvases/:id/import/html", h.ImportHTML)
	rg.GET("/canvases/:id/export", h.Export)
}
