// vault.go stores password categories, password entries and the vault
// settings row. Secrets arrive already encrypted by internal/vault; the
// store treats them as opaque strings and never sees plaintext.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// PasswordCategory groups password entries.
type PasswordCategory struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Color     *string `json:"color,omitempty"`
	CreatedAt string  `json:"created_at"`
	Entries   int     `json:"entries"`
}

// NewPasswordCategory holds the fields for CreatePasswordCategory.
type NewPasswordCategory struct {
	Name  string  `json:"name" validate:"notblank"`
	Icon  string  `json:"icon"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// PasswordCategoryPatch lists the fields UpdatePasswordCategory may change.
type PasswordCategoryPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,notblank"`
	Icon  *string `json:"icon,omitempty"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// PasswordEntry is a stored credential. Password holds ciphertext and is
// omitted from listings; PasswordSecret returns it.
type PasswordEntry struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Username   *string  `json:"username,omitempty"`
	Password   string   `json:"-"`
	URL        *string  `json:"url,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
	CategoryID *int64   `json:"category_id,omitempty"`
	Tags       []string `json:"tags"`
	IsFavorite bool     `json:"is_favorite"`
	IP         *string  `json:"ip,omitempty"`
	DBType     *string  `json:"db_type,omitempty"`
	DBIP       *string  `json:"db_ip,omitempty"`
	DBUsername *string  `json:"db_username,omitempty"`
	AppName    *string  `json:"app_name,omitempty"`
	LastUsedAt *string  `json:"last_used_at,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// NewPasswordEntry holds the fields for CreatePasswordEntry. Password is the
// encrypted value.
type NewPasswordEntry struct {
	Title      string   `json:"title" validate:"notblank"`
	Username   *string  `json:"username,omitempty"`
	Password   string   `json:"password" validate:"required"`
	URL        *string  `json:"url,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
	CategoryID *int64   `json:"category_id,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	IsFavorite bool     `json:"is_favorite"`
	IP         *string  `json:"ip,omitempty"`
	DBType     *string  `json:"db_type,omitempty"`
	DBIP       *string  `json:"db_ip,omitempty"`
	DBUsername *string  `json:"db_username,omitempty"`
	AppName    *string  `json:"app_name,omitempty"`
}

// PasswordEntryPatch lists the fields UpdatePasswordEntry may change. A zero
// CategoryID clears the category.
type PasswordEntryPatch struct {
	Title      *string   `json:"title,omitempty" validate:"omitempty,notblank"`
	Username   *string   `json:"username,omitempty"`
	Password   *string   `json:"password,omitempty" validate:"omitempty,min=1"`
	URL        *string   `json:"url,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	CategoryID *int64    `json:"category_id,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	IsFavorite *bool     `json:"is_favorite,omitempty"`
	IP         *string   `json:"ip,omitempty"`
	DBType     *string   `json:"db_type,omitempty"`
	DBIP       *string   `json:"db_ip,omitempty"`
	DBUsername *string   `json:"db_username,omitempty"`
	AppName    *string   `json:"app_name,omitempty"`
}

// VaultSettings is the single settings row: the key-derivation salt and an
// encrypted check value used to verify the master password.
type VaultSettings struct {
	Salt      string `json:"master_password_salt"`
	Check     string `json:"test_encrypted_data"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

const defaultCategoryIcon = "🔐"

const categoryColumns = `c.id, c.name, COALESCE(c.icon, ''), c.color, COALESCE(c.created_at, ''),
	(SELECT COUNT(*) FROM password_entries e WHERE e.category_id = c.id)`

const entryColumns = `id, title, username, password_encrypted, url, notes, category_id, tags,
	COALESCE(is_favorite, 0), ip, db_type, db_ip, db_username, app_name, last_used_at,
	COALESCE(created_at, ''), COALESCE(updated_at, '')`

func scanCategory(sc scanner) (PasswordCategory, error) {
	var c PasswordCategory
	var color sql.NullString
	err := sc.Scan(&c.ID, &c.Name, &c.Icon, &color, &c.CreatedAt, &c.Entries)
	c.Color = strPtr(color)
	return c, err
}

func scanEntry(sc scanner) (PasswordEntry, error) {
	var e PasswordEntry
	var user, url, notes, tags, ip, dbType, dbIP, dbUser, app, used sql.NullString
	var cat sql.NullInt64
	err := sc.Scan(&e.ID, &e.Title, &user, &e.Password, &url, &notes, &cat, &tags,
		&e.IsFavorite, &ip, &dbType, &dbIP, &dbUser, &app, &used, &e.CreatedAt, &e.UpdatedAt)
	e.Username, e.URL, e.Notes = strPtr(user), strPtr(url), strPtr(notes)
	e.IP, e.DBType, e.DBIP, e.DBUsername, e.AppName = strPtr(ip), strPtr(dbType), strPtr(dbIP), strPtr(dbUser), strPtr(app)
	e.LastUsedAt = strPtr(used)
	e.CategoryID = int64Ptr(cat)
	e.Tags = decodeTags(tags)
	return e, err
}

func getCategory(ctx context.Context, q querier, id int64) (*PasswordCategory, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM password_categories c WHERE c.id = ?`, id))
	return one(c, err, "password category")
}

func getEntry(ctx context.Context, q querier, id int64) (*PasswordEntry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM password_entries WHERE id = ?`, id))
	return one(e, err, "password entry")
}

func nullCategory(id *int64) sql.NullInt64 {
	if id == nil || *id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// PasswordCategories lists categories by name with their entry counts.
func (s *SQLiteStore) PasswordCategories(ctx context.Context) ([]PasswordCategory, error) {
	var out []PasswordCategory
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+categoryColumns+` FROM password_categories c ORDER BY c.name`)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanCategory)
		return err
	})
	return out, err
}

// CreatePasswordCategory inserts a category. Names are unique.
func (s *SQLiteStore) CreatePasswordCategory(ctx context.Context, in NewPasswordCategory) (*PasswordCategory, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Icon == "" {
		in.Icon = defaultCategoryIcon
	}
	var c *PasswordCategory
	err := s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO password_categories (name, icon, color, created_at) VALUES (?, ?, ?, ?)`,
			in.Name, in.Icon, nullString(in.Color), s.stamp())
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c, err = getCategory(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create password category: %w", err)
	}
	return c, nil
}

// UpdatePasswordCategory applies the non-nil fields of patch.
func (s *SQLiteStore) UpdatePasswordCategory(ctx context.Context, id int64, patch PasswordCategoryPatch) (*PasswordCategory, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	var c *PasswordCategory
	err := s.withConn(ctx, func(q querier) error {
		var a assignments
		setIf(&a, "name", patch.Name)
		setIf(&a, "icon", patch.Icon)
		setNullable(&a, "color", patch.Color)
		if a.empty() {
			var err error
			c, err = getCategory(ctx, q, id)
			return err
		}
		// password_categories has no updated_at column.
		if err := a.apply(ctx, q, "password_categories", "", nil, "id", id, ""); err != nil {
			return err
		}
		var err error
		c, err = getCategory(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update password category %d: %w", id, err)
	}
	return c, nil
}

// DeletePasswordCategory removes a category. Its entries become
// uncategorised.
func (s *SQLiteStore) DeletePasswordCategory(ctx context.Context, id int64) error {
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE password_entries SET category_id = NULL WHERE category_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM password_categories WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
	if err != nil {
		return fmt.Errorf("delete password category %d: %w", id, err)
	}
	return nil
}

// CreatePasswordEntry stores a credential whose password is already
// encrypted.
func (s *SQLiteStore) CreatePasswordEntry(ctx context.Context, in NewPasswordEntry) (*PasswordEntry, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	var e *PasswordEntry
	err = s.withConn(ctx, func(q querier) error {
		if cat := nullCategory(in.CategoryID); cat.Valid {
			if _, err := getCategory(ctx, q, cat.Int64); err != nil {
				return fmt.Errorf("category %d: %w", cat.Int64, err)
			}
		}
		now := s.stamp()
		res, err := q.ExecContext(ctx,
			`INSERT INTO password_entries (title, username, password_encrypted, url, notes, category_id, tags,
				is_favorite, ip, db_type, db_ip, db_username, app_name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Title, nullString(in.Username), in.Password, nullString(in.URL), nullString(in.Notes),
			nullCategory(in.CategoryID), tags, boolInt(in.IsFavorite),
			nullString(in.IP), nullString(in.DBType), nullString(in.DBIP), nullString(in.DBUsername),
			nullString(in.AppName), now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		e, err = getEntry(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create password entry: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]PasswordEntry, error) {
	var out []PasswordEntry
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanEntry)
		return err
	})
	return out, err
}

// PasswordEntries lists entries, favourites first, then by title.
func (s *SQLiteStore) PasswordEntries(ctx context.Context) ([]PasswordEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM password_entries ORDER BY is_favorite DESC, title`)
}

// PasswordEntriesByCategory lists the entries of one category. A nil id
// lists uncategorised entries.
func (s *SQLiteStore) PasswordEntriesByCategory(ctx context.Context, categoryID *int64) ([]PasswordEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM password_entries WHERE category_id IS ?
		ORDER BY is_favorite DESC, title`, nullCategory(categoryID))
}

// PasswordEntry returns one entry or ErrNotFound.
func (s *SQLiteStore) PasswordEntry(ctx context.Context, id int64) (*PasswordEntry, error) {
	var e *PasswordEntry
	err := s.withConn(ctx, func(q querier) error {
		var err error
		e, err = getEntry(ctx, q, id)
		return err
	})
	return e, err
}

// UpdatePasswordEntry applies the non-nil fields of patch in one statement.
func (s *SQLiteStore) UpdatePasswordEntry(ctx context.Context, id int64, patch PasswordEntryPatch) (*PasswordEntry, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	var a assignments
	setIf(&a, "title", patch.Title)
	setNullable(&a, "username", patch.Username)
	setIf(&a, "password_encrypted", patch.Password)
	setNullable(&a, "url", patch.URL)
	setNullable(&a, "notes", patch.Notes)
	if patch.CategoryID != nil {
		a.set("category_id", nullCategory(patch.CategoryID))
	}
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return nil, err
		}
		a.set("tags", tags)
	}
	if patch.IsFavorite != nil {
		a.set("is_favorite", boolInt(*patch.IsFavorite))
	}
	setNullable(&a, "ip", patch.IP)
	setNullable(&a, "db_type", patch.DBType)
	setNullable(&a, "db_ip", patch.DBIP)
	setNullable(&a, "db_username", patch.DBUsername)
	setNullable(&a, "app_name", patch.AppName)

	var e *PasswordEntry
	err := s.withConn(ctx, func(q querier) error {
		if cat := nullCategory(patch.CategoryID); cat.Valid {
			if _, err := getCategory(ctx, q, cat.Int64); err != nil {
				return fmt.Errorf("category %d: %w", cat.Int64, err)
			}
		}
		if err := a.apply(ctx, q, "password_entries", "updated_at", s.stamp(), "id", id, ""); err != nil {
			return err
		}
		var err error
		e, err = getEntry(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update password entry %d: %w", id, err)
	}
	return e, nil
}

// DeletePasswordEntry removes an entry.
func (s *SQLiteStore) DeletePasswordEntry(ctx context.Context, id int64) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM password_entries WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete password entry %d: %w", id, err)
		}
		return affected(res)
	})
}

// SearchPasswordEntries matches entries by substring across their
// descriptive fields, ordered by title. The encrypted password is never
// searched.
func (s *SQLiteStore) SearchPasswordEntries(ctx context.Context, query string) ([]PasswordEntry, error) {
	fields := []string{"title", "username", "url", "notes", "ip", "db_type", "db_ip", "db_username", "app_name"}
	pat := like(query)
	cond := ""
	args := make([]any, 0, len(fields))
	for i, f := range fields {
		if i > 0 {
			cond += " OR "
		}
		cond += f + ` LIKE ? ESCAPE '\'`
		args = append(args, pat)
	}
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM password_entries WHERE `+cond+` ORDER BY title`, args...)
}

// PasswordSecret returns the encrypted password of an entry and stamps
// last_used_at in the same transaction.
func (s *SQLiteStore) PasswordSecret(ctx context.Context, id int64) (string, error) {
	var secret string
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT password_encrypted FROM password_entries WHERE id = ?`, id).Scan(&secret)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE password_entries SET last_used_at = ? WHERE id = ?`, s.stamp(), id)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("password secret %d: %w", id, err)
	}
	return secret, nil
}

// VaultSettings returns the settings row, or ErrVaultNotConfigured before
// the vault has been set up.
func (s *SQLiteStore) VaultSettings(ctx context.Context) (*VaultSettings, error) {
	var v VaultSettings
	err := s.withConn(ctx, func(q querier) error {
		var check sql.NullString
		err := q.QueryRowContext(ctx,
			`SELECT master_password_salt, test_encrypted_data, COALESCE(created_at, ''), COALESCE(updated_at, '')
			FROM password_settings WHERE id = 1`).Scan(&v.Salt, &check, &v.CreatedAt, &v.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVaultNotConfigured
		}
		v.Check = check.String
		return err
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SaveVaultSettings writes the salt and check value, replacing any earlier
// settings.
func (s *SQLiteStore) SaveVaultSettings(ctx context.Context, salt, check string) error {
	return s.withConn(ctx, func(q querier) error {
		now := s.stamp()
		_, err := q.ExecContext(ctx,
			`INSERT INTO password_settings (id, master_password_salt, test_encrypted_data, created_at, updated_at)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				master_password_salt = excluded.master_password_salt,
				test_encrypted_data = excluded.test_encrypted_data,
				updated_at = excluded.updated_at`, salt, check, now, now)
		if err != nil {
			return fmt.Errorf("save vault settings: %w", err)
		}
		return nil
	})
}

// RewriteSecrets re-encrypts every stored password with rewrite and saves
// the new salt and check value, all in one transaction. It backs a master
// password change: either every entry moves to the new key or none does.
func (s *SQLiteStore) RewriteSecrets(ctx context.Context, salt, check string, rewrite func(string) (string, error)) (int, error) {
	var n int
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, password_encrypted FROM password_entries`)
		if err != nil {
			return err
		}
		type secret struct {
			id    int64
			value string
		}
		secrets, err := collect(rows, func(sc scanner) (secret, error) {
			var v secret
			return v, sc.Scan(&v.id, &v.value)
		})
		if err != nil {
			return err
		}
		for _, sec := range secrets {
			next, err := rewrite(sec.value)
			if err != nil {
				return fmt.Errorf("entry %d: %w", sec.id, err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE password_entries SET password_encrypted = ? WHERE id = ?`, next, sec.id); err != nil {
				return err
			}
		}
		n = len(secrets)
		_, err = tx.ExecContext(ctx,
			`UPDATE password_settings SET master_password_salt = ?, test_encrypted_data = ?, updated_at = ?
			WHERE id = 1`, salt, check, s.stamp())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("rewrite secrets: %w", err)
	}
	return n, nil
}
