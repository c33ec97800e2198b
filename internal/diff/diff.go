// Package diff computes line diffs between page versions for `pim page diff`.
// Page content is Editor.js JSON; Compute diffs the text form so a change to
// one block shows as one changed line.
package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines shown before/after changes.
const contextLines = 3

// Result holds diff output.
type Result struct {
	Old     string `json:"old"`
	New     string `json:"new"`
	Diff    string `json:"diff"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// Changed reports whether the two sides differ.
func (r Result) Changed() bool {
	return r.Added > 0 || r.Removed > 0
}

// Compute returns a line diff between old and new text.
func Compute(oldText, newText, oldLabel, newLabel string) Result {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	d := dmp.DiffMain(a, b, false)
	d = dmp.DiffCharsToLines(d, lines)

	r := Result{Old: oldLabel, New: newLabel}
	r.Diff, r.Added, r.Removed = format(d)
	return r
}

// format converts diffs to unified-style text and counts changed lines.
func format(diffs []diffmatchpatch.Diff) (string, int, int) {
	var b strings.Builder
	var added, removed int
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}
		lines := strings.Split(text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			removed += len(lines)
			for _, l := range lines {
				b.WriteString("- " + l + "\n")
			}
		case diffmatchpatch.DiffInsert:
			added += len(lines)
			for _, l := range lines {
				b.WriteString("+ " + l + "\n")
			}
		case diffmatchpatch.DiffEqual:
			if len(lines) > 2*contextLines {
				for i := range contextLines {
					b.WriteString("  " + lines[i] + "\n")
				}
				b.WriteString("  ...\n")
				for i := len(lines) - contextLines; i < len(lines); i++ {
					b.WriteString("  " + lines[i] + "\n")
				}
			} else {
				for _, l := range lines {
					b.WriteString("  " + l + "\n")
				}
			}
		}
	}
	return b.String(), added, removed
}

// Colourise adds ANSI colours to diff output.
func Colourise(d string) string {
	const (
		red   = "\033[31m"
		green = "\033[32m"
		reset = "\033[0m"
	)

	var b strings.Builder
	for _, line := range strings.Split(d, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "- "):
			b.WriteString(red + line + reset + "\n")
		case strings.HasPrefix(line, "+ "):
			b.WriteString(green + line + reset + "\n")
		default:
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// Format returns the full diff with header.
func (r Result) Format(colour bool) string {
	header := fmt.Sprintf("--- %s\n+++ %s\n", r.Old, r.New)
	if colour {
		return header + Colourise(r.Diff)
	}
	return header + r.Diff
}

// ParseVersionRange parses a version range string like "3:5" into two
// integers. An empty end ("3:") means the current content, returned as 0.
func ParseVersionRange(s string) (v1, v2 int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid version range %q (expected v1:v2)", s)
	}
	if parts[0] == "" {
		return 0, 0, fmt.Errorf("invalid version range %q: start version required", s)
	}
	v1, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start version: %w", err)
	}
	if v1 < 1 {
		return 0, 0, fmt.Errorf("invalid version range %q: start version must be >= 1", s)
	}
	if parts[1] == "" {
		return v1, 0, nil
	}
	v2, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end version: %w", err)
	}
	if v2 < 1 {
		return 0, 0, fmt.Errorf("invalid version range %q: end version must be >= 1", s)
	}
	return v1, v2, nil
}
