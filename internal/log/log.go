// Package log provides centralised audit logging for pim operations.
// Audit rows are stored in <data dir>/log/pim-log.db and record every CLI
// command and MCP tool invocation.
//
// # Fluent API
//
//	log.Event("page:show", "read").
//		Author(cmd.Author()).
//		Entity("page", id).
//		Write(err)
//
//	log.Event("search:query", "search").
//		Author(cmd.Author()).
//		Detail("query", query).
//		Detail("count", len(hits)).
//		Write(err)
//
// The source parameter follows the format "{extension}:{command}" for CLI
// commands or "mcp:{tool}" for MCP tools, e.g. "card:add", "mcp:pim_task_list".
package log

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	global *Logger
	mu     sync.Mutex
)

// Entry represents a single audit log entry.
type Entry struct {
	Source string // e.g. "card:add", "mcp:pim_card_add"
	Author string // who performed the action
	Action string // verb: read, create, update, delete, search, ...

	Kind string // entity family: page, card, task, ...
	ID   string // entity id, when the operation targets one

	// Timing
	Start int64 // unix milliseconds when Event() was called
	End   int64 // unix milliseconds when Write() was called

	Success bool
	Error   string
	Detail  map[string]any
}

// Builder constructs a log entry using a fluent API.
// Create with [Event], chain methods to set fields, then call [Builder.Write].
type Builder struct {
	entry Entry
}

// Event creates a new log entry builder for an operation.
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().UnixMilli(),
		},
	}
}

// Author sets who performed the operation. MCP tools use "mcp".
func (b *Builder) Author(author string) *Builder {
	b.entry.Author = author
	return b
}

// Entity names the record the operation affects. The id may be set later,
// once a create has produced one.
func (b *Builder) Entity(kind, id string) *Builder {
	b.entry.Kind = kind
	b.entry.ID = id
	return b
}

// Detail adds a key-value pair to the entry's detail map.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write records the entry, deriving success from err.
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().UnixMilli()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global audit logger for a data directory.
// Safe to call multiple times; later calls are no-ops until Close.
// Errors are returned but callers may ignore them (best-effort logging).
func Open(dataDir string) error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}

	p := DBPath(dataDir)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	abs, err := filepath.Abs(dataDir)
	if err != nil {
		abs = dataDir
	}
	global = &Logger{db: db, project: hash(abs)}
	return nil
}

// Log writes an entry. Safe to call if the logger is not initialised (no-op).
func Log(e Entry) {
	mu.Lock()
	l := global
	mu.Unlock()

	if l == nil {
		return
	}
	l.log(e)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}
