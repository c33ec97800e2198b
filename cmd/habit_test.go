package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHabit(t *testing.T) {
	t.Run("record and stats", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("habit", "create", "Read", "--frequency", "daily")

		for _, d := range []string{"2026-02-01", "2026-02-02", "2026-02-03", "2026-02-05"} {
			env.run("habit", "record", id, "--date", d)
		}

		var show map[string]any
		env.runJSON(&show, "habit", "show", id)
		stats, ok := show["stats"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 4, stats["completed_days"])
		assert.EqualValues(t, 3, stats["longest_streak"])
	})

	t.Run("record replaces same date", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("habit", "create", "Water")
		env.run("habit", "record", id, "--date", "2026-02-01", "--count", "2")
		env.run("habit", "record", id, "--date", "2026-02-01", "--count", "5")

		var rs []map[string]any
		env.runJSON(&rs, "habit", "records", id)
		require.Len(t, rs, 1)
		assert.EqualValues(t, 5, rs[0]["completed_count"])
	})

	t.Run("unrecord", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("habit", "create", "Stretch")
		env.run("habit", "record", id, "--date", "2026-02-01")
		env.run("habit", "unrecord", id, "--date", "2026-02-01")

		var rs []map[string]any
		env.runJSON(&rs, "habit", "records", id)
		assert.Empty(t, rs)
	})

	t.Run("inactive hidden", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("habit", "create", "Jog")
		env.run("habit", "update", id, "--active=false")

		out := env.run("habit", "ls")
		env.notContains(out, "Jog")
		out = env.run("habit", "ls", "--all")
		env.contains(out, "Jog")
	})

	t.Run("rm removes records", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("habit", "create", "Meditate")
		env.run("habit", "record", id, "--date", "2026-02-01")
		env.run("habit", "rm", id, "--force")

		_, err := env.runErr("habit", "show", id)
		assert.Error(t, err)
	})

	t.Run("invalid frequency", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.runErr("habit", "create", "Odd", "--frequency", "hourly")
		assert.Error(t, err)
	})
}
