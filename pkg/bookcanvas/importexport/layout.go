package importexport

import (
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/interaction"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

// Layout constants for imported content.
const (
	bookmarkColumns = 2
	bookmarkPitchX  = 140
	bookmarkPitchY  = 40
	groupsPerRow    = 4
	groupGap        = 40
)

var canvasMargin = interaction.Point{X: 50, Y: 50}

// bookmarkSlot is the position of the i-th imported bookmark in a group at
// origin, filling rows left to right.
func bookmarkSlot(origin interaction.Point, i int) interaction.Point {
	col, row := i%bookmarkColumns, i/bookmarkColumns
	return origin.
		Add(session.DefaultBookmarkOffset).
		Add(interaction.Point{X: float64(col * bookmarkPitchX), Y: float64(row * bookmarkPitchY)})
}

// groupSizeFor returns a size large enough to show n bookmarks in the grid.
func groupSizeFor(n int) interaction.Size {
	rows := (n + bookmarkColumns - 1) / bookmarkColumns
	s := session.DefaultGroupSize
	needed := session.DefaultBookmarkOffset.Y + float64(rows*bookmarkPitchY) + 20
	if needed > s.Height {
		s.Height = needed
	}
	return s
}

// placeGroups lays out groups of the given sizes in rows of groupsPerRow,
// starting below any content already on the canvas at startY.
func placeGroups(sizes []interaction.Size, startY float64) []interaction.Point {
	out := make([]interaction.Point, len(sizes))
	x, y := canvasMargin.X, startY
	rowHeight := 0.0
	for i, s := range sizes {
		if i > 0 && i%groupsPerRow == 0 {
			x = canvasMargin.X
			y += rowHeight + groupGap
			rowHeight = 0
		}
		out[i] = interaction.Point{X: x, Y: y}
		x += s.Width + groupGap
		if s.Height > rowHeight {
			rowHeight = s.Height
		}
	}
	return out
}
