package importexport

import (
	"context"
	"net/url"
	"strings"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apperr"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/interaction"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
)

// PinboardBookmark represents a bookmark in Pinboard JSON format
type PinboardBookmark struct {
	Href        string `json:"href"`
	Description string `json:"description"`
	Extended    string `json:"extended"`
	Tags        string `json:"tags"`
	Time        string `json:"time"`
	Shared      string `json:"shared"`
	ToRead      string `json:"toread"`
	Meta        string `json:"meta,omitempty"`
	Hash        string `json:"hash,omitempty"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Groups   int      `json:"groups,omitempty"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ImportPinboard adds Pinboard bookmarks to an existing group, laid out on a
// grid after the bookmarks already there. URLs already in the group and
// invalid URLs are skipped. A store failure stops the import.
func ImportPinboard(ctx context.Context, ctrl *session.Controller, groupID string, bookmarks []PinboardBookmark) (ImportResult, error) {
	var result ImportResult

	group, ok := ctrl.Group(groupID)
	if !ok {
		return result, apperr.NotFound("Group not found")
	}

	snap := ctrl.Snapshot()
	seen := map[string]bool{}
	for _, b := range snap.BookmarksIn(groupID) {
		seen[b.URL] = true
	}
	slot := len(seen)
	origin := interaction.Point{X: group.PositionX, Y: group.PositionY}

	for _, pb := range bookmarks {
		href := strings.TrimSpace(pb.Href)
		if !validURL(href) {
			result.Skipped++
			result.Errors = append(result.Errors, "Invalid URL: "+pb.Href)
			continue
		}
		if seen[href] {
			result.Skipped++
			continue
		}
		title := strings.TrimSpace(pb.Description)
		if title == "" {
			title = href
		}

		pos := bookmarkSlot(origin, slot)
		if _, err := ctrl.CreateBookmark(ctx, session.BookmarkInput{
			GroupID:  groupID,
			Title:    title,
			URL:      href,
			Position: &pos,
		}); err != nil {
			return result, err
		}
		seen[href] = true
		slot++
		result.Imported++
	}

	if slot > 0 {
		want := groupSizeFor(slot)
		if want.Height > group.Height {
			size := interaction.Size{Width: group.Width, Height: want.Height}
			if _, err := ctrl.UpdateGroup(ctx, groupID, session.GroupEdit{Size: &size}); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

// ImportFolders creates one group per folder below the existing content and
// fills it with the folder's bookmarks. Invalid URLs are skipped. A store
// failure stops the import.
func ImportFolders(ctx context.Context, ctrl *session.Controller, folders []Folder) (ImportResult, error) {
	var result ImportResult

	startY := canvasMargin.Y
	for _, g := range ctrl.Snapshot().Groups {
		if bottom := g.PositionY + g.Height + groupGap; bottom > startY {
			startY = bottom
		}
	}

	valid := make([][]Entry, len(folders))
	sizes := make([]interaction.Size, len(folders))
	for i, f := range folders {
		for _, e := range f.Entries {
			if validURL(e.URL) {
				valid[i] = append(valid[i], e)
			} else {
				result.Skipped++
				result.Errors = append(result.Errors, "Invalid URL: "+e.URL)
			}
		}
		sizes[i] = groupSizeFor(len(valid[i]))
	}
	positions := placeGroups(sizes, startY)

	for i, f := range folders {
		group, err := ctrl.CreateGroup(ctx, session.GroupInput{
			Title:    f.Title,
			Position: positions[i],
			Size:     sizes[i],
		})
		if err != nil {
			return result, err
		}
		result.Groups++

		origin := interaction.Point{X: group.PositionX, Y: group.PositionY}
		for j, e := range valid[i] {
			pos := bookmarkSlot(origin, j)
			if _, err := ctrl.CreateBookmark(ctx, session.BookmarkInput{
				GroupID:  group.ID,
				Title:    e.Title,
				URL:      e.URL,
				Position: &pos,
			}); err != nil {
				return result, err
			}
			result.Imported++
		}
	}
	return result, nil
}
