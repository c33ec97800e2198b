// kb.go implements the knowledge base repository.
//
// A knowledge base is the root of a page forest. Pages reference it without
// ON DELETE CASCADE, so deleting a knowledge base removes its pages
// explicitly, inside one transaction, before the base row itself. Blocks,
// versions, resources and page tags follow their pages through foreign keys.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// KnowledgeBase is the root of a page tree. Timestamps are unix seconds.
type KnowledgeBase struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon"`
	Description *string `json:"description,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// NewKnowledgeBase holds the fields for CreateKnowledgeBase.
type NewKnowledgeBase struct {
	Name        string  `json:"name" validate:"notblank"`
	Icon        string  `json:"icon"`
	Description *string `json:"description,omitempty"`
}

// KnowledgeBasePatch lists the fields UpdateKnowledgeBase may change.
// Nil fields are left untouched.
type KnowledgeBasePatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank"`
	Icon        *string `json:"icon,omitempty"`
	Description *string `json:"description,omitempty"`
}

const defaultKnowledgeBaseIcon = "📚"

const kbColumns = `id, name, COALESCE(icon, ''), description, created_at, updated_at`

func scanKnowledgeBase(sc scanner) (KnowledgeBase, error) {
	var kb KnowledgeBase
	var desc sql.NullString
	err := sc.Scan(&kb.ID, &kb.Name, &kb.Icon, &desc, &kb.CreatedAt, &kb.UpdatedAt)
	kb.Description = strPtr(desc)
	return kb, err
}

func getKnowledgeBase(ctx context.Context, q querier, id string) (*KnowledgeBase, error) {
	kb, err := scanKnowledgeBase(q.QueryRowContext(ctx,
		`SELECT `+kbColumns+` FROM knowledge_bases WHERE id = ?`, id))
	return one(kb, err, "knowledge base")
}

// CreateKnowledgeBase inserts a knowledge base with a fresh id.
func (s *SQLiteStore) CreateKnowledgeBase(ctx context.Context, in NewKnowledgeBase) (*KnowledgeBase, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Icon == "" {
		in.Icon = defaultKnowledgeBaseIcon
	}
	now := s.now().Unix()
	kb := &KnowledgeBase{
		ID:          newID(),
		Name:        in.Name,
		Icon:        in.Icon,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.withConn(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO knowledge_bases (id, name, icon, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			kb.ID, kb.Name, kb.Icon, nullString(kb.Description), kb.CreatedAt, kb.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create knowledge base: %w", err)
	}
	return kb, nil
}

// KnowledgeBases returns every knowledge base, newest first.
func (s *SQLiteStore) KnowledgeBases(ctx context.Context) ([]KnowledgeBase, error) {
	var out []KnowledgeBase
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+kbColumns+` FROM knowledge_bases ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanKnowledgeBase)
		return err
	})
	return out, err
}

// KnowledgeBase returns one knowledge base or ErrNotFound.
func (s *SQLiteStore) KnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error) {
	var kb *KnowledgeBase
	err := s.withConn(ctx, func(q querier) error {
		var err error
		kb, err = getKnowledgeBase(ctx, q, id)
		return err
	})
	return kb, err
}

// UpdateKnowledgeBase applies the non-nil fields of p in one statement.
func (s *SQLiteStore) UpdateKnowledgeBase(ctx context.Context, id string, p KnowledgeBasePatch) (*KnowledgeBase, error) {
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	var kb *KnowledgeBase
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		var a assignments
		setIf(&a, "name", p.Name)
		setIf(&a, "icon", p.Icon)
		setNullable(&a, "description", p.Description)
		if err := a.apply(ctx, tx, "knowledge_bases", "updated_at", s.now().Unix(), "id", id, ""); err != nil {
			return err
		}
		var err error
		kb, err = getKnowledgeBase(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update knowledge base %s: %w", id, err)
	}
	return kb, nil
}

// DeleteKnowledgeBase removes a knowledge base with all of its pages and
// blocks. The search index entries go in the same transaction; if only that
// part fails an *IndexWarning is returned and the delete still commits.
func (s *SQLiteStore) DeleteKnowledgeBase(ctx context.Context, id string) error {
	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getKnowledgeBase(ctx, tx, id); err != nil {
			return err
		}

		var err error
		warn, err = indexed(ctx, tx, KindPage, id, func() error {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM search_index WHERE type = ? AND id IN (
					SELECT b.id FROM blocks b JOIN pages p ON p.id = b.page_id WHERE p.kb_id = ?)`,
				KindBlock, id); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`DELETE FROM search_index WHERE type = ? AND id IN (SELECT id FROM pages WHERE kb_id = ?)`,
				KindPage, id)
			return err
		})
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM page_links
			WHERE source_id IN (SELECT id FROM pages WHERE kb_id = ?)
			   OR target_id IN (SELECT id FROM pages WHERE kb_id = ?)`, id, id); err != nil {
			return fmt.Errorf("delete page links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE kb_id = ?`, id); err != nil {
			return fmt.Errorf("delete pages: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM knowledge_bases WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
	if err != nil {
		return fmt.Errorf("delete knowledge base %s: %w", id, err)
	}
	return warnErr(warn)
}

// SearchKnowledgeBases matches name and description by substring.
func (s *SQLiteStore) SearchKnowledgeBases(ctx context.Context, query string) ([]KnowledgeBase, error) {
	pattern := like(query)
	var out []KnowledgeBase
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+kbColumns+` FROM knowledge_bases
			WHERE name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
			ORDER BY updated_at DESC`, pattern, pattern)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanKnowledgeBase)
		return err
	})
	return out, err
}
