package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// Tag is a named label that pages can carry.
type Tag struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Color     *string `json:"color,omitempty"`
	CreatedAt string  `json:"created_at"`
	Pages     int     `json:"pages"`
}

// TagPage attaches a tag to a live page, creating the tag on first use.
// Names are normalised by validate.Tag. Tagging twice is a no-op.
func (s *SQLiteStore) TagPage(ctx context.Context, pageID, name string) error {
	name, err := validate.Tag(name)
	if err != nil {
		return err
	}
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getPage(ctx, tx, pageID, false); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (name, created_at) VALUES (?, ?)`, name, s.stamp()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO page_tags (page_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?`, pageID, name)
		return err
	})
	if err != nil {
		return fmt.Errorf("tag page %s: %w", pageID, err)
	}
	return nil
}

// UntagPage removes a tag from a page. The tag itself is kept.
func (s *SQLiteStore) UntagPage(ctx context.Context, pageID, name string) error {
	name, err := validate.Tag(name)
	if err != nil {
		return err
	}
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`DELETE FROM page_tags WHERE page_id = ?
			AND tag_id = (SELECT id FROM tags WHERE name = ?)`, pageID, name)
		if err != nil {
			return fmt.Errorf("untag page %s: %w", pageID, err)
		}
		return affected(res)
	})
}

// PageTags returns the tag names on a page, sorted.
func (s *SQLiteStore) PageTags(ctx context.Context, pageID string) ([]string, error) {
	var out []string
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT t.name FROM page_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.page_id = ? ORDER BY t.name`, pageID)
		if err != nil {
			return err
		}
		out, err = collect(rows, func(sc scanner) (string, error) {
			var n string
			return n, sc.Scan(&n)
		})
		return err
	})
	return out, err
}

// PagesByTag returns the live pages carrying a tag, most recently updated
// first.
func (s *SQLiteStore) PagesByTag(ctx context.Context, name string) ([]Page, error) {
	name, err := validate.Tag(name)
	if err != nil {
		return nil, err
	}
	var out []Page
	err = s.withConn(ctx, func(q querier) error {
		out, err = queryPages(ctx, q,
			`SELECT `+pageCols("p")+` FROM pages p
			JOIN page_tags pt ON pt.page_id = p.id
			JOIN tags t ON t.id = pt.tag_id
			WHERE t.name = ? AND p.is_deleted = 0
			ORDER BY p.updated_at DESC`, name)
		return err
	})
	return out, err
}

// Tags lists every tag with the number of live pages using it.
func (s *SQLiteStore) Tags(ctx context.Context) ([]Tag, error) {
	var out []Tag
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT t.id, t.name, t.color, COALESCE(t.created_at, ''),
				(SELECT COUNT(*) FROM page_tags pt JOIN pages p ON p.id = pt.page_id
				 WHERE pt.tag_id = t.id AND p.is_deleted = 0)
			FROM tags t ORDER BY t.name`)
		if err != nil {
			return err
		}
		out, err = collect(rows, func(sc scanner) (Tag, error) {
			var t Tag
			var color sql.NullString
			err := sc.Scan(&t.ID, &t.Name, &color, &t.CreatedAt, &t.Pages)
			t.Color = strPtr(color)
			return t, err
		})
		return err
	})
	return out, err
}

// encodeTags serialises a tag set for the JSON tags columns on cards, books
// and password entries. A nil or empty set is stored as NULL.
func encodeTags(tags []string) (sql.NullString, error) {
	clean, err := validate.Tags(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	if len(clean) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// decodeTags parses a JSON tags column. Malformed JSON reads as no tags.
func decodeTags(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(ns.String), &tags); err != nil {
		return nil
	}
	return tags
}
