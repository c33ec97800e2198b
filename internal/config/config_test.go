package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var c Config
	assert.Equal(t, "info", c.LogLevel())
	assert.Equal(t, DefaultBreadcrumbDepth, c.BreadcrumbDepth())
	assert.Equal(t, DefaultSearchResults, c.SearchResults())
	assert.Equal(t, DefaultPreviewLines, c.PreviewLines())
	assert.Equal(t, uint32(DefaultKDFTime), c.KDFTime())
	assert.False(t, c.IsSet("limits.search_results"))
	assert.Len(t, c.All(), len(ValidKeys()))
}

func TestSet(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    error
	}{
		{"author.name", "ada", nil},
		{"log.level", "debug", nil},
		{"log.level", "loud", ErrInvalidValue},
		{"limits.search_results", "50", nil},
		{"limits.search_results", "0", ErrInvalidValue},
		{"limits.search_results", "5000", ErrInvalidValue},
		{"limits.preview_lines", "abc", ErrInvalidValue},
		{"vault.kdf_memory", "1024", ErrInvalidValue},
		{"vault.kdf_memory", "65536", nil},
		{"sync.files", "true", ErrUnknownKey},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			var c Config
			err := c.Set(tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, c.IsSet(tt.key))
			got, err := c.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestLoadLocalOverGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	t.Chdir(work)

	global := &Config{scope: ScopeGlobal}
	require.NoError(t, global.Set("author.name", "global"))
	require.NoError(t, global.Save())
	assert.FileExists(t, filepath.Join(home, ".pim", "config.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "global", cfg.Author.Name)

	local := &Config{scope: ScopeLocal}
	require.NoError(t, local.Set("author.name", "local"))
	require.NoError(t, local.Save())

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Author.Name)
	assert.Equal(t, ScopeLocal, cfg.Scope())
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(".pim", 0755))
	require.NoError(t, os.WriteFile(LocalPath(), []byte("limits:\n  preview_lines: 0\n"), 0644))

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidValue)

	require.NoError(t, os.WriteFile(LocalPath(), []byte("limits: [\n"), 0644))
	_, err = Load()
	assert.ErrorContains(t, err, "malformed config file")
}

func TestDataDir(t *testing.T) {
	t.Setenv("PIM_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("HOME", "/home/ada")

	var c Config
	got, err := c.DataDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "pim"), got)

	c.Data.Dir = "/from/config"
	got, _ = c.DataDir("")
	assert.Equal(t, "/from/config", got)

	t.Setenv("PIM_DIR", "/from/env")
	got, _ = c.DataDir("")
	assert.Equal(t, "/from/env", got)

	got, _ = c.DataDir("/from/flag")
	assert.Equal(t, "/from/flag", got)
}
