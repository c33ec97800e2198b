package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested row does not exist (or is
	// soft-deleted and the caller did not ask for deleted rows). Callers check
	// for it with errors.Is to tell a missing row apart from a failed query.
	ErrNotFound = errors.New("not found")
	// ErrLock is returned when the connection guard cannot be acquired,
	// either because the context ended or the store was closed.
	ErrLock = errors.New("database lock error")
	// ErrBoxNotEmpty rejects deleting a card box that still holds cards.
	ErrBoxNotEmpty = errors.New("cannot delete non-empty box")
	// ErrCycle rejects moving a page or block beneath one of its descendants.
	ErrCycle = errors.New("cannot move an item beneath its own descendant")
	// ErrCrossKnowledgeBase rejects a parent page from a different knowledge base.
	ErrCrossKnowledgeBase = errors.New("parent page belongs to another knowledge base")
	// ErrCrossPage rejects a parent block from a different page.
	ErrCrossPage = errors.New("parent block belongs to another page")
	// ErrBuiltinAgent rejects deleting a built-in AI agent.
	ErrBuiltinAgent = errors.New("cannot delete built-in agent")
	// ErrInvalidFilter is returned for an unknown task filter name.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrVaultNotConfigured is returned when vault settings have not been saved.
	ErrVaultNotConfigured = errors.New("vault not configured")
)

// SchemaError reports a failed schema or migration step. Init returns it and
// callers treat it as fatal.
type SchemaError struct {
	Step string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Step, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IndexWarning is returned when the primary write committed but mirroring it
// into search_index failed. The entity is persisted; only search is stale.
type IndexWarning struct {
	Kind string // "page" or "block"
	ID   string
	Err  error
}

func (w *IndexWarning) Error() string {
	return fmt.Sprintf("search index for %s %s not updated: %v", w.Kind, w.ID, w.Err)
}

func (w *IndexWarning) Unwrap() error { return w.Err }

// IsIndexWarning reports whether err is only a search index warning.
func IsIndexWarning(err error) bool {
	var w *IndexWarning
	return errors.As(err, &w)
}

// warnErr converts a possibly nil warning to an error without producing a
// non-nil interface holding a nil pointer.
func warnErr(w *IndexWarning) error {
	if w == nil {
		return nil
	}
	return w
}
