// sqlite_ops.go provides SQLite connection management and low-level operations.
//
// This is the only file that imports the SQLite driver. Every other file in
// the package talks to the database through a querier handed out by withConn
// or Tx, so the connection guard below is the single place where access is
// serialised.
//
// Design: one connection, one guard slot. SetMaxOpenConns(1) pins the pool to a
// single handle and the guard channel makes acquisition observe ctx, so a
// caller that gives up waiting gets ErrLock instead of blocking forever.
// Helpers never re-acquire the guard: anything that recurses takes the
// querier it was given.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	// Register sqlite driver
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single guarded SQLite connection.
type SQLiteStore struct {
	db    *sql.DB
	opts  Options
	guard chan struct{}
	done  chan struct{}
	once  sync.Once
}

var _ Store = (*SQLiteStore)(nil)

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
// Internal helpers accept it so they run inside whatever scope the caller
// already holds.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pragmas applied once when the connection is opened.
var pragmas = []struct {
	stmt string
	desc string
}{
	{`PRAGMA foreign_keys=ON`, "enabling foreign keys"},
	{`PRAGMA journal_mode=WAL`, "setting WAL mode"},
	{`PRAGMA synchronous=NORMAL`, "setting synchronous mode"},
	{`PRAGMA cache_size=10000`, "setting cache size"},
	{`PRAGMA temp_store=MEMORY`, "setting temp store"},
	{`PRAGMA busy_timeout=5000`, "setting busy timeout"},
}

// Open opens the SQLite database file at path and returns a configured store.
// The caller should call Init before use and Close when done.
func Open(path string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// Pragmas are per connection; with a single pooled connection they hold
	// for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p.desc, err)
		}
	}

	return &SQLiteStore{
		db:    db,
		opts:  opts.withDefaults(),
		guard: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}, nil
}

// Init brings the schema to the current shape. Safe to call on every start.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return s.migrate(ctx, s.db)
}

// Close releases the database. Waiters blocked on the guard fail with ErrLock.
func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.db.Close()
	})
	return err
}

// DB exposes the underlying handle. Statements issued through it bypass the
// guard, so it is reserved for diagnostics and tests.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Options returns the options the store was opened with.
func (s *SQLiteStore) Options() Options {
	return s.opts
}

// acquire takes the guard slot, honouring ctx and Close.
func (s *SQLiteStore) acquire(ctx context.Context) error {
	select {
	case <-s.done:
		return fmt.Errorf("%w: store closed", ErrLock)
	default:
	}
	select {
	case s.guard <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrLock, ctx.Err())
	case <-s.done:
		return fmt.Errorf("%w: store closed", ErrLock)
	}
	// Close may have won the race while we were queued.
	select {
	case <-s.done:
		s.release()
		return fmt.Errorf("%w: store closed", ErrLock)
	default:
	}
	return nil
}

func (s *SQLiteStore) release() {
	<-s.guard
}

// withConn runs fn with the live connection while holding the guard.
func (s *SQLiteStore) withConn(ctx context.Context, fn func(q querier) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return fn(s.db)
}

// Tx executes fn within a database transaction while holding the guard,
// handling Begin/Commit/Rollback. If fn returns an error the transaction is
// rolled back; Rollback is deferred so panics and early returns are covered.
//
//	var n int64
//	err := s.Tx(ctx, func(tx *sql.Tx) error {
//	    res, err := tx.ExecContext(ctx, `DELETE ...`)
//	    if err != nil {
//	        return err
//	    }
//	    n, _ = res.RowsAffected()
//	    return nil
//	})
//
// fn must only use tx. Calling back into the store from inside fn would wait
// on the guard it already holds.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return runTx(ctx, s.db, fn)
}

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows so one scan function serves both.
type scanner interface {
	Scan(dest ...any) error
}

// one converts sql.ErrNoRows from a single-row scan into ErrNotFound.
func one[T any](v T, err error, what string) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", what, err)
	}
	return &v, nil
}

// collect drains rows through scan.
func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// affected maps a zero-row result to ErrNotFound.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// newID returns a random v4 UUID for TEXT primary keys.
func newID() string {
	return uuid.NewString()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
