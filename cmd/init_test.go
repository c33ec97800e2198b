package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	t.Run("creates database", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := os.Stat(filepath.Join(env.dataDir(), "database.db"))
		assert.NoError(t, err)
	})

	t.Run("refuses existing database", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.runErr("init")
		assert.Error(t, err)
		env.contains(out, "already exists")
	})

	t.Run("force recreates", func(t *testing.T) {
		env := newTestEnv(t)
		env.run("task", "add", "Before reinit")

		env.run("init", "--force")

		out := env.run("task", "ls")
		env.notContains(out, "Before reinit")
	})

	t.Run("dir flag wins over env", func(t *testing.T) {
		env := newTestEnv(t)
		other := filepath.Join(env.dir, "other")
		env.run("init", "--dir", other)
		_, err := os.Stat(filepath.Join(other, "database.db"))
		assert.NoError(t, err)
	})
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.run("version")
	env.contains(out, "Schema:")
}
