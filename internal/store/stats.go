// stats.go implements read-only aggregate queries: per-family counts and
// the trash listings that vacuum planning relies on. None of them load page
// or card content.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats counts live rows per entity family, plus what sits in the trash.
type Stats struct {
	KnowledgeBases  int   `json:"knowledge_bases"`
	Pages           int   `json:"pages"`
	Blocks          int   `json:"blocks"`
	PageVersions    int   `json:"page_versions"`
	Tags            int   `json:"tags"`
	CardBoxes       int   `json:"card_boxes"`
	Cards           int   `json:"cards"`
	ArchivedCards   int   `json:"archived_cards"`
	Tasks           int   `json:"tasks"`
	Projects        int   `json:"projects"`
	Habits          int   `json:"habits"`
	HabitRecords    int   `json:"habit_records"`
	PasswordEntries int   `json:"password_entries"`
	Conversations   int   `json:"conversations"`
	Messages        int   `json:"messages"`
	Books           int   `json:"books"`
	TimelineEntries int   `json:"timeline_entries"`
	DeletedPages    int   `json:"deleted_pages"`
	DeletedTasks    int   `json:"deleted_tasks"`
	OldestDeletedAt int64 `json:"oldest_deleted_at,omitempty"` // unix seconds, pages only
}

// Stats returns aggregate counts across the store.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	counts := []struct {
		dst   *int
		query string
	}{
		{&st.KnowledgeBases, `SELECT COUNT(*) FROM knowledge_bases`},
		{&st.Pages, `SELECT COUNT(*) FROM pages WHERE is_deleted = 0`},
		{&st.Blocks, `SELECT COUNT(*) FROM blocks WHERE is_deleted = 0`},
		{&st.PageVersions, `SELECT COUNT(*) FROM page_versions`},
		{&st.Tags, `SELECT COUNT(*) FROM tags`},
		{&st.CardBoxes, `SELECT COUNT(*) FROM card_boxes`},
		{&st.Cards, `SELECT COUNT(*) FROM cards WHERE is_archived = 0`},
		{&st.ArchivedCards, `SELECT COUNT(*) FROM cards WHERE is_archived = 1`},
		{&st.Tasks, `SELECT COUNT(*) FROM tasks WHERE deleted_at IS NULL`},
		{&st.Projects, `SELECT COUNT(*) FROM task_projects`},
		{&st.Habits, `SELECT COUNT(*) FROM habits`},
		{&st.HabitRecords, `SELECT COUNT(*) FROM habit_records`},
		{&st.PasswordEntries, `SELECT COUNT(*) FROM password_entries`},
		{&st.Conversations, `SELECT COUNT(*) FROM ai_conversations`},
		{&st.Messages, `SELECT COUNT(*) FROM ai_messages`},
		{&st.Books, `SELECT COUNT(*) FROM books`},
		{&st.TimelineEntries, `SELECT COUNT(*) FROM timeline_entries`},
		{&st.DeletedPages, `SELECT COUNT(*) FROM pages WHERE is_deleted = 1`},
		{&st.DeletedTasks, `SELECT COUNT(*) FROM tasks WHERE deleted_at IS NOT NULL`},
	}
	err := s.withConn(ctx, func(q querier) error {
		for _, c := range counts {
			if err := q.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
				return fmt.Errorf("%s: %w", c.query, err)
			}
		}
		var oldest sql.NullInt64
		if err := q.QueryRowContext(ctx,
			`SELECT MIN(updated_at) FROM pages WHERE is_deleted = 1`).Scan(&oldest); err != nil {
			return err
		}
		st.OldestDeletedAt = oldest.Int64
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

// DeletedPages lists soft-deleted pages of a knowledge base, most recently
// deleted first. An empty kbID lists every knowledge base.
func (s *SQLiteStore) DeletedPages(ctx context.Context, kbID string) ([]Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE is_deleted = 1`
	var args []any
	if kbID != "" {
		query += ` AND kb_id = ?`
		args = append(args, kbID)
	}
	var out []Page
	err := s.withConn(ctx, func(q querier) error {
		var err error
		out, err = queryPages(ctx, q, query+` ORDER BY updated_at DESC`, args...)
		return err
	})
	return out, err
}

// DeletedTasks lists soft-deleted tasks, most recently deleted first.
func (s *SQLiteStore) DeletedTasks(ctx context.Context) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE deleted_at IS NOT NULL ORDER BY deleted_at DESC`)
}

// pageCutoff and taskCutoff convert a vacuum age into each table's
// timestamp representation. A nil age matches everything.
func (s *SQLiteStore) pageCutoff(olderThan *time.Duration) (int64, bool) {
	if olderThan == nil {
		return 0, false
	}
	return s.now().Add(-*olderThan).Unix(), true
}

func (s *SQLiteStore) taskCutoff(olderThan *time.Duration) (string, bool) {
	if olderThan == nil {
		return "", false
	}
	return s.now().UTC().Add(-*olderThan).Format(stampLayout), true
}
