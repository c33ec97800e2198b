package store

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// blockTags map structural HTML to plain-text line breaks before the
// remaining markup is stripped.
var blockTags = strings.NewReplacer(
	"<p>", "", "</p>", "\n",
	"<h1>", "", "</h1>", "\n",
	"<h2>", "", "</h2>", "\n",
	"<h3>", "", "</h3>", "\n",
	"<li>", "• ", "</li>", "\n",
	"<ul>", "", "</ul>", "",
	"<ol>", "", "</ol>", "",
	"<br>", "\n", "<br/>", "\n", "<br />", "\n",
	"&nbsp;", " ",
)

var stripPolicy = bluemonday.StrictPolicy()

// plainText strips markup and decodes entities until nothing changes, so
// escaped tags such as &lt;b&gt; cannot decode into markup. Input still
// changing after a few rounds is returned stripped but left escaped.
func plainText(s string) string {
	for range 4 {
		next := html.UnescapeString(stripPolicy.Sanitize(s))
		if next == s {
			return next
		}
		s = next
	}
	return stripPolicy.Sanitize(s)
}

// Preview derives a plain-text excerpt from HTML content: block-level tags
// become line breaks, list items get a bullet, all other markup is removed,
// blank lines are dropped and at most maxLines lines are kept.
func Preview(content string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultPreviewLines
	}
	text := plainText(blockTags.Replace(content))

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxLines {
			break
		}
	}
	return strings.Join(lines, "\n")
}
