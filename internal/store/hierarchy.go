// hierarchy.go implements tree operations over the self-referential pages
// and blocks tables: breadcrumb, tree listing, move with cycle guard, and
// cascading delete.
//
// Design: every traversal is bounded. Ancestor walks use a recursive CTE
// capped at Options.BreadcrumbDepth; descendant walks run in Go over the
// caller's querier and track visited ids. Moves reject a new parent that is
// the item itself or one of its descendants, so a cycle cannot be created
// through this package; the bounds only matter for rows written elsewhere.

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PageNode is a page with its depth in the tree, as returned by PageTree.
type PageNode struct {
	Page
	Depth int `json:"depth"`
}

// hierTable names a self-referential table and its soft-delete column.
// Both values are package constants.
type hierTable struct {
	name string
	live string // condition selecting live rows, "" when rows are never soft-deleted
}

var (
	pageTree  = hierTable{name: "pages", live: "is_deleted = 0"}
	blockTree = hierTable{name: "blocks", live: "is_deleted = 0"}
)

// isAncestor reports whether candidate appears on the parent chain starting
// at start (start itself included).
func (h hierTable) isAncestor(ctx context.Context, q querier, start, candidate string, depth int) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`WITH RECURSIVE up(id, parent_id, depth) AS (
			SELECT id, parent_id, 0 FROM `+h.name+` WHERE id = ?
			UNION ALL
			SELECT t.id, t.parent_id, up.depth + 1
			FROM `+h.name+` t JOIN up ON t.id = up.parent_id
			WHERE up.depth < ?
		)
		SELECT COUNT(*) FROM up WHERE id = ?`, start, depth, candidate).Scan(&n)
	return n > 0, err
}

// children lists the direct children of id.
func (h hierTable) children(ctx context.Context, q querier, id string) ([]string, error) {
	query := `SELECT id FROM ` + h.name + ` WHERE parent_id = ?`
	if h.live != "" {
		query += ` AND ` + h.live
	}
	rows, err := q.QueryContext(ctx, query+` ORDER BY sort_order`, id)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(sc scanner) (string, error) {
		var c string
		return c, sc.Scan(&c)
	})
}

// subtree returns root and all of its descendants, children before their
// parents.
func (h hierTable) subtree(ctx context.Context, q querier, root string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	var walk func(id string) error
	walk = func(id string) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		kids, err := h.children(ctx, q, id)
		if err != nil {
			return err
		}
		for _, k := range kids {
			if err := walk(k); err != nil {
				return err
			}
		}
		out = append(out, id)
		return nil
	}
	if err := walk(root); err != nil {
		return nil, fmt.Errorf("walk %s: %w", h.name, err)
	}
	return out, nil
}

// Breadcrumb returns the chain from the root page down to id, inclusive.
func (s *SQLiteStore) Breadcrumb(ctx context.Context, id string) ([]Page, error) {
	var out []Page
	err := s.withConn(ctx, func(q querier) error {
		var err error
		out, err = queryPages(ctx, q,
			`WITH RECURSIVE chain(id, parent_id, depth) AS (
				SELECT id, parent_id, 0 FROM pages WHERE id = ?
				UNION ALL
				SELECT p.id, p.parent_id, chain.depth + 1
				FROM pages p JOIN chain ON p.id = chain.parent_id
				WHERE chain.depth < ?
			)
			SELECT `+pageCols("p")+`
			FROM chain JOIN pages p ON p.id = chain.id
			ORDER BY chain.depth DESC`, id, s.opts.BreadcrumbDepth)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("breadcrumb %s: %w", id, err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// PageTree returns every live page of a knowledge base depth-first, siblings
// in sort order. Pages whose parent is missing are treated as roots.
func (s *SQLiteStore) PageTree(ctx context.Context, kbID string) ([]PageNode, error) {
	pages, err := s.AllPages(ctx, kbID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]bool, len(pages))
	for _, p := range pages {
		byID[p.ID] = true
	}
	kids := map[string][]Page{}
	var roots []Page
	for _, p := range pages {
		if p.ParentID == nil || !byID[*p.ParentID] {
			roots = append(roots, p)
			continue
		}
		kids[*p.ParentID] = append(kids[*p.ParentID], p)
	}

	out := make([]PageNode, 0, len(pages))
	seen := map[string]bool{}
	var walk func(p Page, depth int)
	walk = func(p Page, depth int) {
		if seen[p.ID] || depth > s.opts.BreadcrumbDepth {
			return
		}
		seen[p.ID] = true
		out = append(out, PageNode{Page: p, Depth: depth})
		for _, c := range kids[p.ID] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return out, nil
}

// MovePage reparents a page and gives it a new sort key among its new
// siblings. parentID nil moves it to the root of its knowledge base.
// Returns ErrCycle when the new parent is the page or one of its
// descendants, and ErrCrossKnowledgeBase when the parent is elsewhere.
func (s *SQLiteStore) MovePage(ctx context.Context, id string, parentID *string, at Placement) (*Page, error) {
	var p *Page
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		cur, err := getPage(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if parentID != nil {
			if *parentID == id {
				return ErrCycle
			}
			if err := checkParentPage(ctx, tx, cur.KBID, parentID); err != nil {
				return err
			}
			cyc, err := pageTree.isAncestor(ctx, tx, *parentID, id, s.opts.BreadcrumbDepth)
			if err != nil {
				return fmt.Errorf("cycle check: %w", err)
			}
			if cyc {
				return ErrCycle
			}
		}

		key, err := pageSiblings(cur.KBID, parentID, id).place(ctx, tx, at)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE pages SET parent_id = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
			nullString(parentID), key, s.now().Unix(), id); err != nil {
			return err
		}
		p, err = getPage(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("move page %s: %w", id, err)
	}
	return p, nil
}

// DeletePage soft-deletes a page, all of its live descendants and every
// block on those pages, children first, in one transaction. Their search
// entries are removed. Returns the number of pages deleted.
func (s *SQLiteStore) DeletePage(ctx context.Context, id string) (int, error) {
	var n int
	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getPage(ctx, tx, id, false); err != nil {
			return err
		}
		ids, err := pageTree.subtree(ctx, tx, id)
		if err != nil {
			return err
		}

		now := s.now().Unix()
		var blocks []string
		for _, pid := range ids {
			bs, err := blockIDs(ctx, tx, pid)
			if err != nil {
				return err
			}
			blocks = append(blocks, bs...)
			if _, err := tx.ExecContext(ctx,
				`UPDATE blocks SET is_deleted = 1, updated_at = ? WHERE page_id = ? AND is_deleted = 0`, now, pid); err != nil {
				return fmt.Errorf("delete blocks of %s: %w", pid, err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE pages SET is_deleted = 1, updated_at = ? WHERE id = ?`, now, pid); err != nil {
				return fmt.Errorf("delete page %s: %w", pid, err)
			}
		}
		n = len(ids)

		warn, err = indexed(ctx, tx, KindPage, id, func() error {
			if err := indexRemove(ctx, tx, KindBlock, blocks...); err != nil {
				return err
			}
			return indexRemove(ctx, tx, KindPage, ids...)
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete page %s: %w", id, err)
	}
	return n, warnErr(warn)
}

func blockIDs(ctx context.Context, q querier, pageID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM blocks WHERE page_id = ? AND is_deleted = 0`, pageID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(sc scanner) (string, error) {
		var id string
		return id, sc.Scan(&id)
	})
}
