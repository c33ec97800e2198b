// page.go implements the page repository: create, read, partial update,
// content snapshots and substring search. Tree operations (move, cascading
// delete, breadcrumb) live in hierarchy.go.
//
// Pages are soft-deleted. Every default read filters is_deleted = 0; Page
// with includeDeleted is the only way to see a deleted row.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// Page is a node in a knowledge base's page forest. Timestamps are unix
// seconds.
type Page struct {
	ID        string  `json:"id"`
	KBID      string  `json:"kb_id"`
	Title     string  `json:"title"`
	Content   *string `json:"content,omitempty"`
	ParentID  *string `json:"parent_id,omitempty"`
	SortOrder float64 `json:"sort_order"`
	IsDeleted bool    `json:"is_deleted"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// NewPage holds the fields for CreatePage.
type NewPage struct {
	KBID      string    `json:"kb_id" validate:"required"`
	Title     string    `json:"title"`
	Content   *string   `json:"content,omitempty"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Placement Placement `json:"-"`
}

// PagePatch lists the fields UpdatePage may change.
type PagePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// PageVersion is a saved snapshot of a page's content.
type PageVersion struct {
	ID        string  `json:"id"`
	PageID    string  `json:"page_id"`
	Content   string  `json:"content"`
	Version   int     `json:"version"`
	CreatedAt int64   `json:"created_at"`
	CreatedBy *string `json:"created_by,omitempty"`
}

var pageColumns = pageCols("")

// pageCols lists the scanned page columns, qualified by alias when set.
func pageCols(alias string) string {
	a := ""
	if alias != "" {
		a = alias + "."
	}
	return a + `id, ` + a + `kb_id, COALESCE(` + a + `title, ''), ` + a + `content, ` + a + `parent_id, ` +
		`COALESCE(` + a + `sort_order, 0), COALESCE(` + a + `is_deleted, 0), ` + a + `created_at, ` + a + `updated_at`
}

func scanPage(sc scanner) (Page, error) {
	var p Page
	var content, parent sql.NullString
	err := sc.Scan(&p.ID, &p.KBID, &p.Title, &content, &parent,
		&p.SortOrder, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	p.Content = strPtr(content)
	p.ParentID = strPtr(parent)
	return p, err
}

func getPage(ctx context.Context, q querier, id string, includeDeleted bool) (*Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	p, err := scanPage(q.QueryRowContext(ctx, query, id))
	return one(p, err, "page")
}

func queryPages(ctx context.Context, q querier, query string, args ...any) ([]Page, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPage)
}

// pageSiblings is the ordering scope for pages under parent in kb.
func pageSiblings(kb string, parent *string, exclude string) siblings {
	return siblings{
		table:   "pages",
		where:   `kb_id = ? AND parent_id IS ? AND is_deleted = 0`,
		args:    []any{kb, nullString(parent)},
		exclude: exclude,
	}
}

// checkParentPage verifies parent is a live page in kb.
func checkParentPage(ctx context.Context, q querier, kb string, parent *string) error {
	if parent == nil {
		return nil
	}
	pp, err := getPage(ctx, q, *parent, false)
	if err != nil {
		return fmt.Errorf("parent page %s: %w", *parent, err)
	}
	if pp.KBID != kb {
		return ErrCrossKnowledgeBase
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// CreatePage inserts a page into a knowledge base. The parent, when given,
// must be a live page of the same knowledge base. The sort key comes from
// in.Placement within the parent's children (or the base's root pages).
// A non-nil page with an *IndexWarning means the page was saved but is not
// yet searchable.
func (s *SQLiteStore) CreatePage(ctx context.Context, in NewPage) (*Page, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	now := s.now().Unix()
	p := &Page{
		ID:        newID(),
		KBID:      in.KBID,
		Title:     in.Title,
		Content:   in.Content,
		ParentID:  in.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getKnowledgeBase(ctx, tx, in.KBID); err != nil {
			return fmt.Errorf("knowledge base %s: %w", in.KBID, err)
		}
		if err := checkParentPage(ctx, tx, in.KBID, in.ParentID); err != nil {
			return err
		}
		key, err := pageSiblings(in.KBID, in.ParentID, "").place(ctx, tx, in.Placement)
		if err != nil {
			return err
		}
		p.SortOrder = key

		_, err = tx.ExecContext(ctx,
			`INSERT INTO pages (id, kb_id, title, content, parent_id, sort_order, is_deleted, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			p.ID, p.KBID, p.Title, nullString(p.Content), nullString(p.ParentID), p.SortOrder, now, now)
		if err != nil {
			return err
		}

		warn, err = indexed(ctx, tx, KindPage, p.ID, func() error {
			return indexPut(ctx, tx, KindPage, p.ID, p.Title, deref(p.Content))
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return p, warnErr(warn)
}

// Pages returns the live children of parent (root pages when parent is nil)
// ordered by sort key.
func (s *SQLiteStore) Pages(ctx context.Context, kbID string, parentID *string) ([]Page, error) {
	var out []Page
	err := s.withConn(ctx, func(q querier) error {
		var err error
		out, err = queryPages(ctx, q,
			`SELECT `+pageColumns+` FROM pages
			WHERE kb_id = ? AND parent_id IS ? AND is_deleted = 0
			ORDER BY sort_order`, kbID, nullString(parentID))
		return err
	})
	return out, err
}

// AllPages returns every live page of a knowledge base ordered by sort key.
func (s *SQLiteStore) AllPages(ctx context.Context, kbID string) ([]Page, error) {
	var out []Page
	err := s.withConn(ctx, func(q querier) error {
		var err error
		out, err = queryPages(ctx, q,
			`SELECT `+pageColumns+` FROM pages WHERE kb_id = ? AND is_deleted = 0 ORDER BY sort_order`, kbID)
		return err
	})
	return out, err
}

// Page returns one page. Soft-deleted pages are ErrNotFound unless
// includeDeleted is set.
func (s *SQLiteStore) Page(ctx context.Context, id string, includeDeleted bool) (*Page, error) {
	var p *Page
	err := s.withConn(ctx, func(q querier) error {
		var err error
		p, err = getPage(ctx, q, id, includeDeleted)
		return err
	})
	return p, err
}

// UpdatePage applies the non-nil fields of patch in one statement and
// refreshes the page's search entry.
func (s *SQLiteStore) UpdatePage(ctx context.Context, id string, patch PagePatch) (*Page, error) {
	var p *Page
	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		var a assignments
		setIf(&a, "title", patch.Title)
		setIf(&a, "content", patch.Content)
		if err := a.apply(ctx, tx, "pages", "updated_at", s.now().Unix(), "id", id, "is_deleted = 0"); err != nil {
			return err
		}
		var err error
		if p, err = getPage(ctx, tx, id, false); err != nil {
			return err
		}
		if patch.Title == nil && patch.Content == nil {
			return nil
		}
		warn, err = indexed(ctx, tx, KindPage, id, func() error {
			return indexPut(ctx, tx, KindPage, id, p.Title, deref(p.Content))
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update page %s: %w", id, err)
	}
	return p, warnErr(warn)
}

// SearchPages matches live pages whose title, or any live block's content,
// contains query.
func (s *SQLiteStore) SearchPages(ctx context.Context, query string) ([]Page, error) {
	pattern := like(query)
	var out []Page
	err := s.withConn(ctx, func(q querier) error {
		var err error
		out, err = queryPages(ctx, q,
			`SELECT `+pageColumns+` FROM pages p
			WHERE p.is_deleted = 0 AND (
				p.title LIKE ? ESCAPE '\'
				OR EXISTS (
					SELECT 1 FROM blocks b
					WHERE b.page_id = p.id AND b.is_deleted = 0 AND b.content LIKE ? ESCAPE '\'))
			ORDER BY p.updated_at DESC`, pattern, pattern)
		return err
	})
	return out, err
}

// SavePageContent replaces a page's content. With snapshot set the new
// content is also recorded as the next page version, in the same
// transaction, and that version number is returned.
func (s *SQLiteStore) SavePageContent(ctx context.Context, id, content string, snapshot bool) (int, error) {
	var version int
	var warn *IndexWarning
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		now := s.now().Unix()
		res, err := tx.ExecContext(ctx,
			`UPDATE pages SET content = ?, updated_at = ? WHERE id = ? AND is_deleted = 0`, content, now, id)
		if err != nil {
			return err
		}
		if err := affected(res); err != nil {
			return err
		}

		if snapshot {
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(version), 0) + 1 FROM page_versions WHERE page_id = ?`, id).Scan(&version); err != nil {
				return fmt.Errorf("next version: %w", err)
			}
			var author *string
			if s.opts.Author != "" {
				author = &s.opts.Author
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO page_versions (id, page_id, content, version, created_at, created_by)
				VALUES (?, ?, ?, ?, ?, ?)`,
				newID(), id, content, version, now, nullString(author)); err != nil {
				return fmt.Errorf("insert version: %w", err)
			}
		}

		warn, err = indexed(ctx, tx, KindPage, id, func() error {
			return indexContent(ctx, tx, KindPage, id, content)
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("save page content %s: %w", id, err)
	}
	return version, warnErr(warn)
}

// PageContent returns a page's body, or DefaultPageContent when it has none.
func (s *SQLiteStore) PageContent(ctx context.Context, id string) (string, error) {
	p, err := s.Page(ctx, id, false)
	if err != nil {
		return "", err
	}
	if p.Content == nil || *p.Content == "" {
		return DefaultPageContent, nil
	}
	return *p.Content, nil
}

const versionColumns = `id, page_id, content, version, created_at, created_by`

func scanPageVersion(sc scanner) (PageVersion, error) {
	var v PageVersion
	var by sql.NullString
	err := sc.Scan(&v.ID, &v.PageID, &v.Content, &v.Version, &v.CreatedAt, &by)
	v.CreatedBy = strPtr(by)
	return v, err
}

// PageVersions lists a page's snapshots, newest first.
func (s *SQLiteStore) PageVersions(ctx context.Context, pageID string) ([]PageVersion, error) {
	var out []PageVersion
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+versionColumns+` FROM page_versions WHERE page_id = ? ORDER BY version DESC`, pageID)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanPageVersion)
		return err
	})
	return out, err
}

// PageVersion returns one snapshot or ErrNotFound.
func (s *SQLiteStore) PageVersion(ctx context.Context, pageID string, version int) (*PageVersion, error) {
	var out *PageVersion
	err := s.withConn(ctx, func(q querier) error {
		v, err := scanPageVersion(q.QueryRowContext(ctx,
			`SELECT `+versionColumns+` FROM page_versions WHERE page_id = ? AND version = ?`, pageID, version))
		out, err = one(v, err, "page version")
		return err
	})
	return out, err
}
