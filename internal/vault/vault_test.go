package vault_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap keeps Argon2id fast in tests.
var cheap = vault.Params{Time: 1, Memory: 8 * 1024, Threads: 1}

func setup(t *testing.T) (*vault.Service, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.NewOptions())
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return vault.New(s, cheap), s
}

func TestSetupAndUnlock(t *testing.T) {
	v, s := setup(t)
	ctx := context.Background()

	ok, err := v.IsSetup(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, v.Setup(ctx, "a", "correct horse"))
	assert.True(t, v.Unlocked("a"))
	assert.ErrorIs(t, v.Setup(ctx, "a", "again"), vault.ErrAlreadySetup)

	set, err := s.VaultSettings(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(set.Salt, "argon2id$t=1$m=8192$p=1$"))

	assert.ErrorIs(t, v.Unlock(ctx, "b", "wrong"), vault.ErrWrongPassword)
	assert.False(t, v.Unlocked("b"))
	require.NoError(t, v.Unlock(ctx, "b", "correct horse"))

	// A service with other cost settings still opens the vault.
	other := vault.New(s, vault.DefaultParams())
	require.NoError(t, other.Unlock(ctx, "c", "correct horse"))
}

func TestEncryptDecryptPerSession(t *testing.T) {
	v, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, v.Setup(ctx, "a", "master"))

	ct, err := v.Encrypt("a", "s3cret")
	require.NoError(t, err)
	assert.NotContains(t, ct, "s3cret")

	again, err := v.Encrypt("a", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, ct, again, "nonce is random")

	plain, err := v.Decrypt("a", ct)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", plain)

	_, err = v.Decrypt("b", ct)
	assert.ErrorIs(t, err, vault.ErrLocked)

	_, err = v.Decrypt("a", ct[:len(ct)-4]+"AAAA")
	assert.ErrorIs(t, err, vault.ErrCiphertext)

	v.Lock("a")
	_, err = v.Encrypt("a", "x")
	assert.ErrorIs(t, err, vault.ErrLocked)
}

func TestLockAll(t *testing.T) {
	v, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, v.Setup(ctx, "a", "master"))
	require.NoError(t, v.Unlock(ctx, "b", "master"))

	v.LockAll()
	assert.False(t, v.Unlocked("a"))
	assert.False(t, v.Unlocked("b"))
}

func TestChangeMaster(t *testing.T) {
	v, s := setup(t)
	ctx := context.Background()
	require.NoError(t, v.Setup(ctx, "a", "old"))
	require.NoError(t, v.Unlock(ctx, "b", "old"))

	ct, err := v.Encrypt("a", "hunter2")
	require.NoError(t, err)
	e, err := s.CreatePasswordEntry(ctx, store.NewPasswordEntry{Title: "mail", Password: ct})
	require.NoError(t, err)

	_, err = v.ChangeMaster(ctx, "a", "nope", "new")
	assert.ErrorIs(t, err, vault.ErrWrongPassword)

	n, err := v.ChangeMaster(ctx, "a", "old", "new")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, v.Unlocked("b"))

	stored, err := s.PasswordSecret(ctx, e.ID)
	require.NoError(t, err)
	assert.NotEqual(t, ct, stored)
	plain, err := v.Decrypt("a", stored)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)

	assert.ErrorIs(t, v.Unlock(ctx, "c", "old"), vault.ErrWrongPassword)
	require.NoError(t, v.Unlock(ctx, "c", "new"))
}

func TestGeneratePassword(t *testing.T) {
	pw, err := vault.GeneratePassword(vault.DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Len(t, pw, vault.DefaultLength)

	pw, err = vault.GeneratePassword(vault.GenerateOptions{Length: 32, Digits: true})
	require.NoError(t, err)
	assert.Len(t, pw, 32)
	assert.Equal(t, "", strings.Trim(pw, "0123456789"))

	_, err = vault.GeneratePassword(vault.GenerateOptions{Length: 2})
	assert.ErrorIs(t, err, vault.ErrLength)
}

func TestStrength(t *testing.T) {
	tests := []struct {
		pw   string
		want int
	}{
		{"", 0},
		{"weak", 15},
		{"password", 40},
		{"Password1", 70},
		{"StrongPassword123!", 100},
	}
	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			assert.Equal(t, tt.want, vault.Strength(tt.pw))
		})
	}
}
