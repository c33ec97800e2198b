package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is the clock used by stores created with setupStore.
var fixedNow = time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

// setupStore creates an initialised store in a temp dir with a fixed clock.
func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return setupStoreAt(t, func() time.Time { return fixedNow })
}

func setupStoreAt(t *testing.T, now func() time.Time) *store.SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(dbPath, store.NewOptions().WithClock(now).WithAuthor("tester"))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// count runs a COUNT query directly, bypassing repository filters.
func count(t *testing.T, s *store.SQLiteStore, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow(query, args...).Scan(&n))
	return n
}

func strp(v string) *string { return &v }

// --- Schema ---

func TestStore_InitIdempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx))

	assert.Equal(t, 4, count(t, s, `SELECT COUNT(*) FROM password_categories`))
	assert.Equal(t, 1, count(t, s,
		`SELECT COUNT(*) FROM pragma_table_info('password_entries') WHERE name = 'app_name'`))
	assert.Equal(t, 1, count(t, s,
		`SELECT COUNT(*) FROM sqlite_master WHERE name = 'search_index'`))
}

func TestStore_InitAddsMissingColumns(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "old.db")

	// A database from before the vault gained its extra fields.
	raw, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE password_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		username TEXT,
		password_encrypted TEXT NOT NULL,
		url TEXT,
		notes TEXT,
		category_id INTEGER,
		tags TEXT,
		is_favorite INTEGER DEFAULT 0,
		last_used_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO password_entries (title, password_encrypted) VALUES ('db', 'x')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := store.Open(dbPath, store.NewOptions())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Init(ctx))

	for _, col := range []string{"ip", "db_type", "db_ip", "db_username", "app_name"} {
		assert.Equal(t, 1, count(t, s,
			`SELECT COUNT(*) FROM pragma_table_info('password_entries') WHERE name = ?`, col), col)
	}
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM password_entries WHERE title = 'db'`))
}

func TestStore_LegacyCategoryMigration(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.DB().Exec(`INSERT INTO password_categories (name, icon) VALUES ('邮箱', 'mail')`)
	require.NoError(t, err)
	var legacyID int64
	require.NoError(t, s.DB().QueryRow(`SELECT id FROM password_categories WHERE name = '邮箱'`).Scan(&legacyID))
	e, err := s.CreatePasswordEntry(ctx, store.NewPasswordEntry{
		Title: "mail", Password: "cipher", CategoryID: &legacyID,
	})
	require.NoError(t, err)
	require.NotNil(t, e.CategoryID)

	require.NoError(t, s.Init(ctx))

	got, err := s.PasswordEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM password_categories WHERE name = '邮箱'`))

	cats, err := s.PasswordCategories(ctx)
	require.NoError(t, err)
	var names []string
	for _, c := range cats {
		names = append(names, c.Name)
	}
	for _, c := range store.CanonicalCategories {
		assert.Contains(t, names, c.Name)
	}
	assert.Len(t, cats, len(store.CanonicalCategories))
}

// --- Connection guard ---

func TestStore_GuardHonoursContext(t *testing.T) {
	s := setupStore(t)

	held := make(chan struct{})
	releaseTx := make(chan struct{})
	go func() {
		_ = s.Tx(context.Background(), func(tx *sql.Tx) error {
			close(held)
			<-releaseTx
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.KnowledgeBases(ctx)
	assert.ErrorIs(t, err, store.ErrLock)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(releaseTx)
	_, err = s.KnowledgeBases(context.Background())
	assert.NoError(t, err)
}

func TestStore_GuardAfterClose(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.Close())

	_, err := s.Tasks(context.Background())
	assert.ErrorIs(t, err, store.ErrLock)
	assert.NoError(t, s.Close(), "second close is a no-op")
}

func TestStore_TxRollback(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO timeline_entries (date, time, content) VALUES ('2024-01-01', '09:00', 'x')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM timeline_entries`))
}

// --- Maintenance ---

func TestStore_StatsAndVacuum(t *testing.T) {
	now := fixedNow
	s := setupStoreAt(t, func() time.Time { return now })
	ctx := context.Background()

	kb, err := s.CreateKnowledgeBase(ctx, store.NewKnowledgeBase{Name: "Notes"})
	require.NoError(t, err)
	keep, err := s.CreatePage(ctx, store.NewPage{KBID: kb.ID, Title: "keep"})
	require.NoError(t, err)
	gone, err := s.CreatePage(ctx, store.NewPage{KBID: kb.ID, Title: "gone"})
	require.NoError(t, err)
	_, err = s.CreateBlock(ctx, store.NewBlock{PageID: gone.ID, Type: "paragraph", Content: "bye"})
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, store.NewTask{Title: "old"})
	require.NoError(t, err)

	_, err = s.DeletePage(ctx, gone.ID)
	require.NoError(t, err)
	require.NoError(t, s.DeleteTask(ctx, task.ID, false))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Pages)
	assert.Equal(t, 1, st.DeletedPages)
	assert.Equal(t, 1, st.DeletedTasks)
	assert.Equal(t, 0, st.Tasks)

	// Nothing is old enough yet.
	week := 7 * 24 * time.Hour
	n, err := s.Vacuum(ctx, &week)
	require.NoError(t, err)
	assert.Zero(t, n)

	now = fixedNow.Add(8 * 24 * time.Hour)
	n, err = s.Vacuum(ctx, &week)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM pages WHERE id = ?`, gone.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM blocks WHERE page_id = ?`, gone.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM tasks`))
	_, err = s.Page(ctx, keep.ID, false)
	assert.NoError(t, err)

	require.NoError(t, s.Checkpoint(ctx))
}

func TestStore_VacuumReportsIndexWarning(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)
	p, err := s.CreatePage(ctx, store.NewPage{KBID: kb.ID, Title: "scrap"})
	require.NoError(t, err)
	_, err = s.DeletePage(ctx, p.ID)
	require.NoError(t, err)

	_, err = s.DB().Exec(`DROP TABLE search_index`)
	require.NoError(t, err)

	n, err := s.Vacuum(ctx, nil)
	require.Error(t, err)
	assert.True(t, store.IsIndexWarning(err))
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM pages WHERE id = ?`, p.ID))
}
