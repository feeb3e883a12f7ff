package importexport

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"

	nethtml "golang.org/x/net/html"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
)

// RootFolder collects bookmarks that sit outside any folder.
const RootFolder = "Imported"

// Folder is one group worth of imported bookmarks.
type Folder struct {
	Title   string
	Entries []Entry
}

// Entry is one imported link.
type Entry struct {
	Title   string
	URL     string
	AddedAt time.Time
}

// ParseNetscape reads a Netscape bookmark file. Nested folders are
// flattened into "Parent / Child" titles because groups do not nest;
// empty folders are dropped.
func ParseNetscape(r io.Reader) ([]Folder, error) {
	doc, err := nethtml.Parse(r)
	if err != nil {
		return nil, err
	}

	var (
		folders []Folder
		index   = map[string]int{}
		stack   []string
		pending string
	)

	add := func(folder string, e Entry) {
		i, ok := index[folder]
		if !ok {
			i = len(folders)
			index[folder] = i
			folders = append(folders, Folder{Title: folder})
		}
		folders[i].Entries = append(folders[i].Entries, e)
	}

	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				pending = textContent(n)
				return

			case "a":
				href := attr(n, "href")
				if href == "" {
					return
				}
				title := textContent(n)
				if title == "" {
					title = href
				}
				e := Entry{Title: title, URL: href}
				if ts, err := strconv.ParseInt(attr(n, "add_date"), 10, 64); err == nil {
					e.AddedAt = time.Unix(ts, 0).UTC()
				}
				folder := RootFolder
				if len(stack) > 0 {
					folder = stack[len(stack)-1]
				}
				add(folder, e)
				return

			case "dl":
				pushed := false
				if pending != "" {
					name := pending
					if len(stack) > 0 {
						name = stack[len(stack)-1] + " / " + pending
					}
					stack = append(stack, name)
					pending = ""
					pushed = true
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				if pushed {
					stack = stack[:len(stack)-1]
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return folders, nil
}

func textContent(n *nethtml.Node) string {
	var b strings.Builder
	var extract func(*nethtml.Node)
	extract = func(n *nethtml.Node) {
		if n.Type == nethtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(b.String())
}

func attr(n *nethtml.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// WriteNetscape writes a canvas as a Netscape bookmark file with one folder
// per group, in the order the tree lists them.
func WriteNetscape(w io.Writer, tree models.CanvasTree) error {
	var b strings.Builder

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	fmt.Fprintf(&b, "<TITLE>%s</TITLE>\n", html.EscapeString(tree.Canvas.Title))
	fmt.Fprintf(&b, "<H1>%s</H1>\n", html.EscapeString(tree.Canvas.Title))
	b.WriteString("<DL><p>\n")

	for _, g := range tree.Groups {
		fmt.Fprintf(&b, "    <DT><H3 ADD_DATE=\"%d\">%s</H3>\n", g.CreatedAt.Unix(), html.EscapeString(g.Title))
		b.WriteString("    <DL><p>\n")
		for _, bm := range tree.BookmarksIn(g.ID) {
			fmt.Fprintf(&b, "        <DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
				html.EscapeString(bm.URL),
				bm.CreatedAt.Unix(),
				html.EscapeString(bm.Title))
		}
		b.WriteString("    </DL><p>\n")
	}

	b.WriteString("</DL><p>\n")

	_, err := io.WriteString(w, b.String())
	return err
}
