// block.go implements the block repository. Blocks belong to one page and
// may nest under another block of the same page. Deleting a block removes it
// and its nested blocks outright; only a page delete soft-deletes blocks.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// Block is one content element of a page. Data is an opaque JSON payload.
type Block struct {
	ID        string  `json:"id"`
	PageID    string  `json:"page_id"`
	Type      string  `json:"block_type"`
	Content   string  `json:"content"`
	Data      string  `json:"data"`
	ParentID  *string `json:"parent_id,omitempty"`
	SortOrder float64 `json:"order_index"`
	IsDeleted bool    `json:"is_deleted"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// NewBlock holds the fields for CreateBlock.
type NewBlock struct {
	PageID    string    `json:"page_id" validate:"required"`
	Type      string    `json:"block_type" validate:"notblank"`
	Content   string    `json:"content"`
	Data      string    `json:"data"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Placement Placement `json:"-"`
}

// BlockPatch lists the fields UpdateBlock may change.
type BlockPatch struct {
	Type    *string `json:"block_type,omitempty" validate:"omitempty,notblank"`
	Content *string `json:"content,omitempty"`
	Data    *string `json:"data,omitempty"`
}

const blockColumns = `id, page_id, type, COALESCE(content, ''), COALESCE(data, '{}'), parent_id,
	COALESCE(sort_order, 0), COALESCE(is_deleted, 0), created_at, updated_at`

func scanBlock(sc scanner) (Block, error) {
	var b Block
	var parent sql.NullString
	err := sc.Scan(&b.ID, &b.PageID, &b.Type, &b.Content, &b.Data, &parent,
		&b.SortOrder, &b.IsDeleted, &b.CreatedAt, &b.UpdatedAt)
	b.ParentID = strPtr(parent)
	return b, err
}

func getBlock(ctx context.Context, q querier, id string) (*Block, error) {
	b, err := scanBlock(q.QueryRowContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE id = ? AND is_deleted = 0`, id))
	return one(b, err, "block")
}

func blockSiblings(page string, parent *string, exclude string) siblings {
	return siblings{
		table:   "blocks",
		where:   `page_id = ? AND parent_id IS ? AND is_deleted = 0`,
		args:    []any{page, nullString(parent)},
		exclude: exclude,
	}
}

func checkParentBlock(ctx context.Context, q querier, page string, parent *string) error {
	if parent == nil {
		return nil
	}
	pb, err := getBlock(ctx, q, *parent)
	if err != nil {
		return fmt.Errorf("parent block %s: %w", *parent, err)
	}
	if pb.PageID != page {
		return ErrCrossPage
	}
	return nil
}

// CreateBlock appends or inserts a block on a live page and indexes its
// content.
func (s *SQLiteStore) CreateBlock(ctx context.Context, in NewBlock) (*Block, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Data == "" {
		in.Data = "{}"
	}
	now := s.now().Unix()
	b := &Block{
		ID:        newID(),
		PageID:    in.PageID,
		Type:      in.Type,
		Content:   in.Content,
		Data:      in.Data,
		ParentID:  in.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getPage(ctx, tx, in.PageID, false); err != nil {
			return fmt.Errorf("page %s: %w", in.PageID, err)
		}
		if err := checkParentBlock(ctx, tx, in.PageID, in.ParentID); err != nil {
			return err
		}
		key, err := blockSiblings(in.PageID, in.ParentID, "").place(ctx, tx, in.Placement)
		if err != nil {
			return err
		}
		b.SortOrder = key

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO blocks (id, page_id, type, content, data, parent_id, sort_order, is_deleted, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			b.ID, b.PageID, b.Type, b.Content, b.Data, nullString(b.ParentID), b.SortOrder, now, now); err != nil {
			return err
		}
		warn, err = indexed(ctx, tx, KindBlock, b.ID, func() error {
			return indexContent(ctx, tx, KindBlock, b.ID, b.Content)
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	return b, warnErr(warn)
}

// Blocks returns the live blocks of a page ordered by sort key. A nil
// parentID returns every block; an empty one returns top-level blocks only;
// otherwise only the direct children of that block are returned.
func (s *SQLiteStore) Blocks(ctx context.Context, pageID string, parentID *string) ([]Block, error) {
	query := `SELECT ` + blockColumns + ` FROM blocks WHERE page_id = ? AND is_deleted = 0`
	args := []any{pageID}
	switch {
	case parentID == nil:
	case *parentID == "":
		query += ` AND parent_id IS NULL`
	default:
		query += ` AND parent_id = ?`
		args = append(args, *parentID)
	}
	var out []Block
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query+` ORDER BY sort_order`, args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanBlock)
		return err
	})
	return out, err
}

// Block returns one live block or ErrNotFound.
func (s *SQLiteStore) Block(ctx context.Context, id string) (*Block, error) {
	var b *Block
	err := s.withConn(ctx, func(q querier) error {
		var err error
		b, err = getBlock(ctx, q, id)
		return err
	})
	return b, err
}

// UpdateBlock applies the non-nil fields of patch in one statement. A
// content change is mirrored into the search index.
func (s *SQLiteStore) UpdateBlock(ctx context.Context, id string, patch BlockPatch) (*Block, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	var b *Block
	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		var a assignments
		setIf(&a, "type", patch.Type)
		setIf(&a, "content", patch.Content)
		setIf(&a, "data", patch.Data)
		if err := a.apply(ctx, tx, "blocks", "updated_at", s.now().Unix(), "id", id, "is_deleted = 0"); err != nil {
			return err
		}
		var err error
		if b, err = getBlock(ctx, tx, id); err != nil {
			return err
		}
		if patch.Content == nil {
			return nil
		}
		warn, err = indexed(ctx, tx, KindBlock, id, func() error {
			return indexContent(ctx, tx, KindBlock, id, b.Content)
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update block %s: %w", id, err)
	}
	return b, warnErr(warn)
}

// MoveBlock nests a block under parentID (nil for top level) on the same
// page and re-sorts it. ErrCycle and ErrCrossPage guard the tree.
func (s *SQLiteStore) MoveBlock(ctx context.Context, id string, parentID *string, at Placement) (*Block, error) {
	var b *Block
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		cur, err := getBlock(ctx, tx, id)
		if err != nil {
			return err
		}
		if parentID != nil {
			if *parentID == id {
				return ErrCycle
			}
			if err := checkParentBlock(ctx, tx, cur.PageID, parentID); err != nil {
				return err
			}
			cyc, err := blockTree.isAncestor(ctx, tx, *parentID, id, s.opts.BreadcrumbDepth)
			if err != nil {
				return fmt.Errorf("cycle check: %w", err)
			}
			if cyc {
				return ErrCycle
			}
		}
		key, err := blockSiblings(cur.PageID, parentID, id).place(ctx, tx, at)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE blocks SET parent_id = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
			nullString(parentID), key, s.now().Unix(), id); err != nil {
			return err
		}
		b, err = getBlock(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("move block %s: %w", id, err)
	}
	return b, nil
}

// DeleteBlock removes a block and its nested blocks along with their search
// entries. Returns the number of blocks removed.
func (s *SQLiteStore) DeleteBlock(ctx context.Context, id string) (int, error) {
	var n int
	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getBlock(ctx, tx, id); err != nil {
			return err
		}
		ids, err := blockTree.subtree(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, bid := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, bid); err != nil {
				return fmt.Errorf("delete block %s: %w", bid, err)
			}
		}
		n = len(ids)
		warn, err = indexed(ctx, tx, KindBlock, id, func() error {
			return indexRemove(ctx, tx, KindBlock, ids...)
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete block %s: %w", id, err)
	}
	return n, warnErr(warn)
}

// SearchBlocks matches live blocks of one page by content substring.
func (s *SQLiteStore) SearchBlocks(ctx context.Context, pageID, query string) ([]Block, error) {
	var out []Block
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+blockColumns+` FROM blocks
			WHERE page_id = ? AND is_deleted = 0 AND content LIKE ? ESCAPE '\'
			ORDER BY sort_order`, pageID, like(query))
		if err != nil {
			return err
		}
		out, err = collect(rows, scanBlock)
		return err
	})
	return out, err
}
