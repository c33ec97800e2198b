// Package store is the persistence core: schema management, the guarded
// SQLite connection, and one repository per entity family (knowledge bases,
// pages and blocks, card boxes, tasks, habits, the password vault, AI
// conversations, books and the timeline). Consumers depend on the segregated
// interfaces in interfaces.go; SQLiteStore implements all of them.
package store

import (
	"time"
)

// Default limits applied when Options leaves a field at zero.
const (
	DefaultBreadcrumbDepth = 64
	DefaultSearchLimit     = 20
	DefaultPreviewLines    = 5
	// FilterLimit caps TasksByFilter results.
	FilterLimit = 20
)

// DefaultPageContent is stored for pages created without a body.
const DefaultPageContent = `{"time":0,"blocks":[],"version":"2.30.8"}`

// dateLayout is the calendar date format used for due dates and habit records.
const dateLayout = "2006-01-02"

// stampLayout matches SQLite's CURRENT_TIMESTAMP text format.
const stampLayout = "2006-01-02 15:04:05"

// Options configures a store. Construct with NewOptions and chain the With
// methods; zero fields fall back to the package defaults.
type Options struct {
	Now             func() time.Time // Clock, injectable for tests
	BreadcrumbDepth int              // Recursion cap for ancestor walks
	SearchLimit     int              // Max rows from full-text queries
	PreviewLines    int              // Lines kept in card previews
	Author          string           // Stamped on page versions
}

// NewOptions returns Options with the default clock and limits.
func NewOptions() Options {
	return Options{}.withDefaults()
}

// WithClock sets the time source.
func (o Options) WithClock(now func() time.Time) Options {
	o.Now = now
	return o
}

// WithBreadcrumbDepth sets the ancestor walk cap.
func (o Options) WithBreadcrumbDepth(n int) Options {
	o.BreadcrumbDepth = n
	return o
}

// WithSearchLimit sets the full-text result cap.
func (o Options) WithSearchLimit(n int) Options {
	o.SearchLimit = n
	return o
}

// WithPreviewLines sets the card preview line count.
func (o Options) WithPreviewLines(n int) Options {
	o.PreviewLines = n
	return o
}

// WithAuthor sets the name recorded on page versions.
func (o Options) WithAuthor(name string) Options {
	o.Author = name
	return o
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.BreadcrumbDepth <= 0 {
		o.BreadcrumbDepth = DefaultBreadcrumbDepth
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = DefaultSearchLimit
	}
	if o.PreviewLines <= 0 {
		o.PreviewLines = DefaultPreviewLines
	}
	return o
}

func (s *SQLiteStore) now() time.Time {
	return s.opts.Now()
}

// stamp formats the current time the way DATETIME columns store it.
func (s *SQLiteStore) stamp() string {
	return s.now().UTC().Format(stampLayout)
}

// today returns the current local calendar date.
func (s *SQLiteStore) today() string {
	return s.now().Format(dateLayout)
}
