package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_EntryLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	cat, err := s.CreatePasswordCategory(ctx, store.NewPasswordCategory{Name: "Work"})
	require.NoError(t, err)
	assert.Equal(t, "🔐", cat.Icon)

	e, err := s.CreatePasswordEntry(ctx, store.NewPasswordEntry{
		Title:      "build server",
		Username:   strp("ci"),
		Password:   "cipher-1",
		CategoryID: &cat.ID,
		IP:         strp("10.0.0.7"),
		Tags:       []string{"infra"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"infra"}, e.Tags)

	_, err = s.CreatePasswordEntry(ctx, store.NewPasswordEntry{Title: "x", Password: "c", CategoryID: new(int64)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.SearchPasswordEntries(ctx, "10.0.0")
	require.NoError(t, err)
	require.Len(t, found, 1)
	found, err = s.SearchPasswordEntries(ctx, "cipher")
	require.NoError(t, err)
	assert.Empty(t, found, "ciphertext is not searchable")

	secret, err := s.PasswordSecret(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "cipher-1", secret)
	got, err := s.PasswordEntry(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)

	fav := true
	got, err = s.UpdatePasswordEntry(ctx, e.ID, store.PasswordEntryPatch{IsFavorite: &fav, CategoryID: new(int64)})
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)
	assert.Nil(t, got.CategoryID)

	loose, err := s.PasswordEntriesByCategory(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, loose, 1)

	require.NoError(t, s.DeletePasswordEntry(ctx, e.ID))
	_, err = s.PasswordSecret(ctx, e.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestVault_DeleteCategoryKeepsEntries(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	cat, err := s.CreatePasswordCategory(ctx, store.NewPasswordCategory{Name: "Temp"})
	require.NoError(t, err)
	e, err := s.CreatePasswordEntry(ctx, store.NewPasswordEntry{Title: "a", Password: "c", CategoryID: &cat.ID})
	require.NoError(t, err)

	cats, err := s.PasswordCategories(ctx)
	require.NoError(t, err)
	for _, c := range cats {
		if c.ID == cat.ID {
			assert.Equal(t, 1, c.Entries)
		}
	}

	require.NoError(t, s.DeletePasswordCategory(ctx, cat.ID))
	got, err := s.PasswordEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestVault_Settings(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.VaultSettings(ctx)
	assert.ErrorIs(t, err, store.ErrVaultNotConfigured)

	require.NoError(t, s.SaveVaultSettings(ctx, "salt-1", "check-1"))
	require.NoError(t, s.SaveVaultSettings(ctx, "salt-2", "check-2"))
	v, err := s.VaultSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "salt-2", v.Salt)
	assert.Equal(t, "check-2", v.Check)
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM password_settings`))
}

func TestVault_RewriteSecretsIsAtomic(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveVaultSettings(ctx, "old-salt", "old-check"))
	for _, title := range []string{"a", "b", "c"} {
		_, err := s.CreatePasswordEntry(ctx, store.NewPasswordEntry{Title: title, Password: "old:" + title})
		require.NoError(t, err)
	}

	boom := errors.New("bad ciphertext")
	calls := 0
	_, err := s.RewriteSecrets(ctx, "new-salt", "new-check", func(v string) (string, error) {
		calls++
		if calls == 2 {
			return "", boom
		}
		return strings.Replace(v, "old:", "new:", 1), nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, count(t, s, `SELECT COUNT(*) FROM password_entries WHERE password_encrypted LIKE 'old:%'`))
	v, err := s.VaultSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old-salt", v.Salt)

	n, err := s.RewriteSecrets(ctx, "new-salt", "new-check", func(v string) (string, error) {
		return strings.Replace(v, "old:", "new:", 1), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, count(t, s, `SELECT COUNT(*) FROM password_entries WHERE password_encrypted LIKE 'new:%'`))
	v, err = s.VaultSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-salt", v.Salt)
}
