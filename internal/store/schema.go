// schema.go holds the embedded schema and the helper that executes it.
//
// Table definitions live under sql/tables and index/trigger definitions under
// sql/indexes. Each directory is executed in file-name order, hence the
// numeric prefixes. Every statement uses IF NOT EXISTS so re-running is a
// no-op; the steps that cannot be expressed that way live in migrate.go.

package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed sql/tables/*.sql sql/indexes/*.sql
var schemas embed.FS

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecEmbedded executes all .sql files in dir of fsys in name order.
func ExecEmbedded(ctx context.Context, q Execer, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read schema directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := dir + "/" + entry.Name()
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := q.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", entry.Name(), err)
		}
	}
	return nil
}
