// vacuum.go implements the trash lifecycle: restoring soft-deleted pages and
// permanently purging soft-deleted pages and tasks.
//
// Design: soft delete keeps data recoverable; vacuum removes that safety net.
// olderThan keeps recent deletions recoverable while clearing old trash.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RestorePage brings back a soft-deleted page together with the blocks that
// were deleted with it, and re-indexes them. When its parent is still
// deleted the page is restored at the root of its knowledge base.
// Descendants are restored separately.
func (s *SQLiteStore) RestorePage(ctx context.Context, id string) (*Page, error) {
	var p *Page
	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		cur, err := getPage(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !cur.IsDeleted {
			return fmt.Errorf("page %s is not deleted: %w", id, ErrNotFound)
		}
		if _, err := getKnowledgeBase(ctx, tx, cur.KBID); err != nil {
			return fmt.Errorf("knowledge base %s: %w", cur.KBID, err)
		}
		parent := cur.ParentID
		if parent != nil {
			if _, err := getPage(ctx, tx, *parent, false); err != nil {
				parent = nil
			}
		}
		key, err := pageSiblings(cur.KBID, parent, id).place(ctx, tx, Placement{})
		if err != nil {
			return err
		}
		now := s.now().Unix()
		if _, err := tx.ExecContext(ctx,
			`UPDATE pages SET is_deleted = 0, parent_id = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
			nullString(parent), key, now, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE blocks SET is_deleted = 0, updated_at = ? WHERE page_id = ? AND is_deleted = 1`, now, id); err != nil {
			return err
		}
		if p, err = getPage(ctx, tx, id, false); err != nil {
			return err
		}
		restored, err := s.pageBlocks(ctx, tx, id)
		if err != nil {
			return err
		}
		warn, err = indexed(ctx, tx, KindPage, id, func() error {
			if err := indexPut(ctx, tx, KindPage, p.ID, p.Title, deref(p.Content)); err != nil {
				return err
			}
			for _, b := range restored {
				if err := indexContent(ctx, tx, KindBlock, b.ID, b.Content); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("restore page %s: %w", id, err)
	}
	return p, warnErr(warn)
}

func (s *SQLiteStore) pageBlocks(ctx context.Context, q querier, pageID string) ([]Block, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE page_id = ? AND is_deleted = 0`, pageID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBlock)
}

// Vacuum permanently removes soft-deleted pages (with their blocks,
// versions, tags, links and index rows) and soft-deleted tasks. A non-nil
// olderThan only purges items deleted before that age. Returns the number
// of pages and tasks removed. When a purge commits but its search rows could
// not be dropped, the count comes with an *IndexWarning for the first such
// page.
func (s *SQLiteStore) Vacuum(ctx context.Context, olderThan *time.Duration) (int64, error) {
	var total int64
	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		pageQuery := `SELECT id FROM pages WHERE is_deleted = 1`
		var pageArgs []any
		if cutoff, ok := s.pageCutoff(olderThan); ok {
			pageQuery += ` AND updated_at < ?`
			pageArgs = append(pageArgs, cutoff)
		}
		rows, err := tx.QueryContext(ctx, pageQuery, pageArgs...)
		if err != nil {
			return fmt.Errorf("vacuum pages: %w", err)
		}
		ids, err := collect(rows, func(sc scanner) (string, error) {
			var id string
			return id, sc.Scan(&id)
		})
		if err != nil {
			return err
		}

		for _, id := range ids {
			w, err := purgePage(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("vacuum page %s: %w", id, err)
			}
			if warn == nil {
				warn = w
			}
		}
		total += int64(len(ids))

		taskQuery := `DELETE FROM tasks WHERE deleted_at IS NOT NULL`
		var taskArgs []any
		if cutoff, ok := s.taskCutoff(olderThan); ok {
			taskQuery += ` AND deleted_at < ?`
			taskArgs = append(taskArgs, cutoff)
		}
		res, err := tx.ExecContext(ctx, taskQuery, taskArgs...)
		if err != nil {
			return fmt.Errorf("vacuum tasks: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}

		// Links whose endpoint no longer exists.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM page_links WHERE source_id NOT IN (SELECT id FROM pages)
			OR target_id NOT IN (SELECT id FROM pages)`); err != nil {
			return fmt.Errorf("vacuum orphan links: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, warnErr(warn)
}

// purgePage deletes one page row and everything hanging off it. Failing to
// drop its search rows is reported as a warning; the purge still stands.
func purgePage(ctx context.Context, tx *sql.Tx, id string) (*IndexWarning, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM blocks WHERE page_id = ?`, id)
	if err != nil {
		return nil, err
	}
	blocks, err := collect(rows, func(sc scanner) (string, error) {
		var b string
		return b, sc.Scan(&b)
	})
	if err != nil {
		return nil, err
	}
	stmts := []string{
		`DELETE FROM page_versions WHERE page_id = ?`,
		`DELETE FROM page_tags WHERE page_id = ?`,
		`DELETE FROM resources WHERE page_id = ?`,
		`DELETE FROM blocks WHERE page_id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return nil, err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM page_links WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return nil, err
	}
	// Children left behind by a partial restore become roots.
	if _, err := tx.ExecContext(ctx, `UPDATE pages SET parent_id = NULL WHERE parent_id = ?`, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return indexed(ctx, tx, KindPage, id, func() error {
		if err := indexRemove(ctx, tx, KindBlock, blocks...); err != nil {
			return err
		}
		return indexRemove(ctx, tx, KindPage, id)
	})
}
