// Package format provides output formatting for CLI display: page content
// as markdown, glamour rendering on a terminal, page trees and search hits.
package format

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/jpl-au/pim/internal/store"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/term"
)

// HumanSize formats a byte count as human-readable (e.g., "1.2K", "3.4M").
func HumanSize(bytes int64) string {
	const (
		_        = iota
		KB int64 = 1 << (10 * iota)
		MB
		GB
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1fG", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1fM", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1fK", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Markdown writes md to w, rendered with glamour when w is a terminal and
// raw otherwise.
func Markdown(w io.Writer, md string) error {
	if IsTerminal(w) {
		if rendered, err := glamour.Render(md, "dark"); err == nil {
			_, err = fmt.Fprint(w, rendered)
			return err
		}
	}
	_, err := fmt.Fprint(w, md)
	return err
}

var inline = bluemonday.StrictPolicy()

// inlineTags carry emphasis across to markdown before the rest of the
// markup is stripped.
var inlineTags = strings.NewReplacer(
	"<b>", "**", "</b>", "**",
	"<strong>", "**", "</strong>", "**",
	"<i>", "_", "</i>", "_",
	"<em>", "_", "</em>", "_",
	"<code>", "`", "</code>", "`",
	"<br>", "\n", "<br/>", "\n",
)

func plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(inline.Sanitize(inlineTags.Replace(s))))
}

type editorDoc struct {
	Blocks []struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	} `json:"blocks"`
}

type blockData struct {
	Text    string `json:"text"`
	Level   int    `json:"level"`
	Style   string `json:"style"`
	Code    string `json:"code"`
	Caption string `json:"caption"`
	Items   []any  `json:"items"`
}

// PageMarkdown converts stored page content (Editor.js JSON) to markdown.
// Content that is not Editor.js JSON is returned unchanged.
func PageMarkdown(title, content string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	var doc editorDoc
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		b.WriteString(content)
		return b.String()
	}
	for _, blk := range doc.Blocks {
		var d blockData
		_ = json.Unmarshal(blk.Data, &d)
		switch blk.Type {
		case "header":
			lvl := min(max(d.Level, 1), 6)
			fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", lvl), plain(d.Text))
		case "list":
			for i, it := range d.Items {
				marker := "-"
				if d.Style == "ordered" {
					marker = fmt.Sprintf("%d.", i+1)
				}
				fmt.Fprintf(&b, "%s %s\n", marker, plain(itemText(it)))
			}
			b.WriteString("\n")
		case "checklist":
			for _, it := range d.Items {
				box := "[ ]"
				if m, ok := it.(map[string]any); ok && m["checked"] == true {
					box = "[x]"
				}
				fmt.Fprintf(&b, "- %s %s\n", box, plain(itemText(it)))
			}
			b.WriteString("\n")
		case "code":
			fmt.Fprintf(&b, "```\n%s\n```\n\n", d.Code)
		case "quote":
			fmt.Fprintf(&b, "> %s\n", plain(d.Text))
			if d.Caption != "" {
				fmt.Fprintf(&b, ">\n> %s\n", plain(d.Caption))
			}
			b.WriteString("\n")
		case "delimiter":
			b.WriteString("---\n\n")
		default:
			if t := plain(d.Text); t != "" {
				b.WriteString(t + "\n\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// EditorJSON turns plain text into page content. Text that is already an
// Editor.js document is returned unchanged; otherwise each blank-line
// separated paragraph becomes a block, and "#" lines become headers.
func EditorJSON(text string) string {
	var doc editorDoc
	if json.Unmarshal([]byte(text), &doc) == nil && doc.Blocks != nil {
		return text
	}
	type block struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	blocks := []block{}
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if h := strings.TrimLeft(para, "#"); h != para && strings.HasPrefix(h, " ") && !strings.Contains(para, "\n") {
			blocks = append(blocks, block{"header", map[string]any{"text": strings.TrimSpace(h), "level": len(para) - len(h)}})
			continue
		}
		blocks = append(blocks, block{"paragraph", map[string]any{"text": strings.ReplaceAll(para, "\n", "<br>")}})
	}
	b, _ := json.Marshal(map[string]any{"time": 0, "blocks": blocks, "version": "2.30.8"})
	return string(b)
}

// itemText reads a list item in either the flat (string) or nested
// ({"content": ...} / {"text": ...}) form.
func itemText(it any) string {
	switch v := it.(type) {
	case string:
		return v
	case map[string]any:
		for _, k := range []string{"content", "text"} {
			if s, ok := v[k].(string); ok {
				return s
			}
		}
	}
	return ""
}

// Tree prints pages as an indented hierarchy.
func Tree(w io.Writer, nodes []store.PageNode) {
	for i, n := range nodes {
		connector := "├── "
		if lastSibling(nodes, i) {
			connector = "└── "
		}
		title := n.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s%s%s  %s\n", strings.Repeat("│   ", n.Depth), connector, title, n.ID)
	}
}

// lastSibling reports whether no later sibling follows nodes[i] in a
// depth-first listing.
func lastSibling(nodes []store.PageNode, i int) bool {
	for _, n := range nodes[i+1:] {
		if n.Depth < nodes[i].Depth {
			return true
		}
		if n.Depth == nodes[i].Depth {
			return false
		}
	}
	return true
}

// highlight maps the FTS snippet markers onto terminal bold or markdown.
func highlight(s string, tty bool) string {
	if tty {
		return strings.NewReplacer("<b>", "\033[1m", "</b>", "\033[0m").Replace(s)
	}
	return strings.NewReplacer("<b>", "**", "</b>", "**").Replace(s)
}

// SearchHits prints full-text hits with their snippets.
func SearchHits(w io.Writer, hits []store.SearchHit) {
	tty := IsTerminal(w)
	for _, h := range hits {
		fmt.Fprintf(w, "%-5s  %s  %s\n", h.Type, h.ID, h.Title)
		if h.Snippet != "" {
			fmt.Fprintf(w, "       %s\n", highlight(h.Snippet, tty))
		}
	}
}

// Table prints rows under an upper-case header, columns aligned.
func Table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

// Deref returns *s, or def when s is nil.
func Deref(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// Unix formats a unix-seconds timestamp in local time.
func Unix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04")
}
