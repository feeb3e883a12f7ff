// Package search does fuzzy matching over the bookmarks of a canvas.
package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
)

// Result is one fuzzy match.
type Result struct {
	Bookmark       models.Bookmark `json:"bookmark"`
	MatchedIndexes []int           `json:"matched_indexes"`
	Score          int             `json:"score"`
}

// bookmarkSource implements fuzzy.Source over title and URL.
type bookmarkSource []models.Bookmark

func (s bookmarkSource) String(i int) string {
	return s[i].Title + " " + s[i].URL
}

func (s bookmarkSource) Len() int {
	return len(s)
}

// Bookmarks returns the bookmarks matching query, best first. Matched
// indexes refer to "title url".
func Bookmarks(bookmarks []models.Bookmark, query string) []Result {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, bookmarkSource(bookmarks))

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}
