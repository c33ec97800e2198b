// Package progress provides CLI progress indicators for long imports and
// re-encryption runs. Output goes to stderr to keep stdout clean for piping,
// and nothing is drawn unless stderr is a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// minItems is the minimum number of items before showing progress.
const minItems = 5

// Progress tracks and displays operation progress.
type Progress struct {
	w       io.Writer
	label   string
	total   int
	current int
	isTTY   bool
	width   int
}

// New creates a progress reporter that writes to stderr.
func New(label string, total int) *Progress {
	return newWriter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), label, total)
}

func newWriter(w io.Writer, tty bool, label string, total int) *Progress {
	return &Progress{w: w, label: label, total: total, isTTY: tty}
}

// Step advances the counter and redraws the line.
func (p *Progress) Step() {
	p.current++
	p.print()
}

func (p *Progress) print() {
	if !p.isTTY || p.total < minItems {
		return
	}
	line := fmt.Sprintf("%s... %d/%d (%d%%)", p.label, p.current, p.total, p.current*100/p.total)
	p.width = max(p.width, len(line))
	fmt.Fprintf(p.w, "\r%s", line)
}

// Done clears the progress line to make way for final output.
func (p *Progress) Done() {
	if !p.isTTY || p.width == 0 {
		return
	}
	fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", p.width))
}
