// migrate.go brings an existing database of any prior shape to the current
// schema. It runs on every Init inside a single transaction: either every step
// applies or none does, and a failure is reported as a *SchemaError.
//
// Steps run in a fixed order:
//
//  1. drop legacy tables superseded by the knowledge base
//  2. create tables (sql/tables)
//  3. add columns introduced after a table first shipped
//  4. create the search index, indexes and triggers (sql/indexes)
//  5. consolidate and seed password categories

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// legacyTables are removed unconditionally. Their features no longer exist.
var legacyTables = []string{"note_tags", "folders", "notes"}

// addedColumns lists columns that older databases may lack. Identifiers come
// from this fixed list only; DDL cannot bind them as parameters.
var addedColumns = []struct {
	table, column, def string
}{
	{"pages", "is_deleted", "BOOLEAN DEFAULT 0"},
	{"blocks", "is_deleted", "BOOLEAN DEFAULT 0"},
	{"password_settings", "test_encrypted_data", "TEXT"},
	{"password_entries", "ip", "TEXT"},
	{"password_entries", "db_type", "TEXT"},
	{"password_entries", "db_ip", "TEXT"},
	{"password_entries", "db_username", "TEXT"},
	{"password_entries", "app_name", "TEXT"},
}

// LegacyCategoryNames are the password categories replaced by the canonical set.
var LegacyCategoryNames = []string{"邮箱", "社交媒体", "金融理财", "其他", "网站账号"}

// CanonicalCategories are always present after Init.
var CanonicalCategories = []PasswordCategory{
	{Name: "网站", Icon: "BrowserChrome", Color: ptr("#10B981")},
	{Name: "应用软件", Icon: "AllApplication", Color: ptr("#3B82F6")},
	{Name: "服务器", Icon: "CodeComputer", Color: ptr("#F59E0B")},
	{Name: "数据库", Icon: "DataLock", Color: ptr("#8B5CF6")},
}

const searchIndexDDL = `CREATE VIRTUAL TABLE search_index USING fts5(
	id UNINDEXED,
	type UNINDEXED,
	title,
	content,
	tokenize = 'unicode61'
)`

func (s *SQLiteStore) migrate(ctx context.Context, db *sql.DB) error {
	return runTx(ctx, db, func(tx *sql.Tx) error {
		steps := []struct {
			name string
			fn   func(context.Context, querier) error
		}{
			{"drop legacy tables", dropLegacyTables},
			{"create tables", func(ctx context.Context, q querier) error {
				return ExecEmbedded(ctx, q, schemas, "sql/tables")
			}},
			{"add columns", addMissingColumns},
			{"create search index", ensureSearchIndex},
			{"create indexes", func(ctx context.Context, q querier) error {
				return ExecEmbedded(ctx, q, schemas, "sql/indexes")
			}},
			{"seed categories", seedCategories},
		}
		for _, step := range steps {
			if err := step.fn(ctx, tx); err != nil {
				return &SchemaError{Step: step.name, Err: err}
			}
		}
		return nil
	})
}

func dropLegacyTables(ctx context.Context, q querier) error {
	for _, t := range legacyTables {
		if _, err := q.ExecContext(ctx, `DROP TABLE IF EXISTS `+t); err != nil {
			return fmt.Errorf("drop %s: %w", t, err)
		}
	}
	return nil
}

// columnExists inspects pragma_table_info, which accepts the table name as a
// bound argument.
func columnExists(ctx context.Context, q querier, table, column string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func addMissingColumns(ctx context.Context, q querier) error {
	for _, c := range addedColumns {
		ok, err := columnExists(ctx, q, c.table, c.column)
		if err != nil {
			return fmt.Errorf("inspect %s.%s: %w", c.table, c.column, err)
		}
		if ok {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, c.table, c.column, c.def)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.column, err)
		}
		slog.Info("added column", "table", c.table, "column", c.column)
	}
	return nil
}

func ensureSearchIndex(ctx context.Context, q querier) error {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'search_index'`).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = q.ExecContext(ctx, searchIndexDDL)
	return err
}

// seedCategories replaces legacy password categories with the canonical set.
// Entries pointing at a removed category become uncategorised first so no
// entry is left referencing a deleted row.
func seedCategories(ctx context.Context, q querier) error {
	args := make([]any, len(LegacyCategoryNames))
	for i, n := range LegacyCategoryNames {
		args[i] = n
	}
	var legacy int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM password_categories WHERE name IN (`+placeholders(len(args))+`)`,
		args...).Scan(&legacy)
	if err != nil {
		return fmt.Errorf("count legacy categories: %w", err)
	}

	if legacy > 0 {
		if _, err := q.ExecContext(ctx, `UPDATE password_entries SET category_id = NULL`); err != nil {
			return fmt.Errorf("detach entries: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM password_categories`); err != nil {
			return fmt.Errorf("delete legacy categories: %w", err)
		}
		slog.Info("consolidated password categories", "legacy", legacy)
	}

	for _, c := range CanonicalCategories {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO password_categories (name, icon, color) VALUES (?, ?, ?)`,
			c.Name, c.Icon, nullString(c.Color))
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

func ptr[T any](v T) *T { return &v }
