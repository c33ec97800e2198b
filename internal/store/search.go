// search.go maintains search_index and queries it.
//
// Cards and books are mirrored into cards_fts and books_fts by triggers.
// Pages and blocks are mirrored into search_index from Go, inside the same
// transaction as the primary write, so each write issues exactly one index
// mutation. Index writes run under a savepoint: if one fails it is rolled
// back alone, the primary write still commits, and the caller receives an
// *IndexWarning.
//
// Design: search_index rows are updated in place when they exist. Deleting
// and reinserting would drop columns the caller did not supply.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Index entry kinds stored in search_index.type.
const (
	KindPage  = "page"
	KindBlock = "block"
)

// SearchHit is one full-text match from search_index.
type SearchHit struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// indexed runs fn under a savepoint. A failure inside fn is rolled back to
// the savepoint and reported as an *IndexWarning instead of an error, so the
// enclosing transaction can still commit the primary write.
func indexed(ctx context.Context, q querier, kind, id string, fn func() error) (*IndexWarning, error) {
	if _, err := q.ExecContext(ctx, `SAVEPOINT search_sync`); err != nil {
		return nil, fmt.Errorf("savepoint: %w", err)
	}
	ferr := fn()
	if ferr != nil {
		if _, err := q.ExecContext(ctx, `ROLLBACK TO search_sync`); err != nil {
			return nil, fmt.Errorf("rollback to savepoint: %w", err)
		}
	}
	if _, err := q.ExecContext(ctx, `RELEASE search_sync`); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}
	if ferr != nil {
		slog.Warn("search index out of date", "kind", kind, "id", id, "error", ferr)
		return &IndexWarning{Kind: kind, ID: id, Err: ferr}, nil
	}
	return nil, nil
}

// indexPut writes the searchable fields for id, updating in place.
func indexPut(ctx context.Context, q querier, kind, id, title, content string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE search_index SET title = ?, content = ? WHERE id = ? AND type = ?`,
		title, content, id, kind)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO search_index (id, type, title, content) VALUES (?, ?, ?, ?)`,
		id, kind, title, content)
	return err
}

// indexContent updates only the content column, leaving the title untouched.
func indexContent(ctx context.Context, q querier, kind, id, content string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE search_index SET content = ? WHERE id = ? AND type = ?`, content, id, kind)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO search_index (id, type, title, content) VALUES (?, ?, '', ?)`, id, kind, content)
	return err
}

// indexRemove deletes the entries for ids of the given kind.
func indexRemove(ctx context.Context, q querier, kind string, ids ...string) error {
	for _, id := range ids {
		if _, err := q.ExecContext(ctx,
			`DELETE FROM search_index WHERE id = ? AND type = ?`, id, kind); err != nil {
			return err
		}
	}
	return nil
}

// SearchContent runs an FTS5 query over pages and blocks. The query accepts
// FTS5 syntax (AND, OR, prefix*, "phrases"). Matches are highlighted with
// <b></b> in the snippet.
func (s *SQLiteStore) SearchContent(ctx context.Context, query string) ([]SearchHit, error) {
	var hits []SearchHit
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT id, type, title, snippet(search_index, 3, '<b>', '</b>', '...', 32)
			FROM search_index
			WHERE search_index MATCH ?
			ORDER BY rank
			LIMIT ?`, query, s.opts.SearchLimit)
		if err != nil {
			return fmt.Errorf("search content: %w", err)
		}
		hits, err = collect(rows, func(sc scanner) (SearchHit, error) {
			var h SearchHit
			return h, sc.Scan(&h.ID, &h.Type, &h.Title, &h.Snippet)
		})
		return err
	})
	return hits, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// like wraps a user query as a LIKE pattern matching it anywhere. Wildcards
// in the query are escaped; statements using it declare ESCAPE '\'.
func like(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}
