package journal_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jpl-au/pim/internal/journal"
	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `---
date: "2024-01-01"
day: Monday
weather: sunny
mood: good
---

## 10:30
Coffee with Sam.

## 12:00
Lunch.
Second line.
`

func TestParse(t *testing.T) {
	d, err := journal.Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", d.Meta.Date)
	assert.Equal(t, "sunny", d.Meta.Weather)
	require.Len(t, d.Entries, 2)
	assert.Equal(t, journal.Entry{Time: "12:00", Content: "Lunch.\nSecond line."}, d.Entries[1])

	_, err = journal.Parse([]byte("## 10:30\nno front matter"))
	assert.ErrorIs(t, err, journal.ErrNoFrontMatter)
}

func TestAppendAndRead(t *testing.T) {
	j := journal.New(t.TempDir())
	at := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

	_, err := j.Read("2024-01-01")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, j.Append(at, "woke up", "rain", ""))
	require.NoError(t, j.Append(at.Add(time.Hour), "tea", "sun", "calm"))
	assert.Error(t, j.Append(at, "   ", "", ""))

	d, err := j.Read("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "Monday", d.Meta.Day)
	assert.Equal(t, "rain", d.Meta.Weather, "first weather wins")
	assert.Equal(t, "calm", d.Meta.Mood)
	require.Len(t, d.Entries, 2)
	assert.Equal(t, "10:15", d.Entries[1].Time)

	dates, err := j.Dates()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, dates)
}

func TestImportJournal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-01-01.md"), []byte(sample), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.NewOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	files := 0
	n, err := journal.ImportJournal(ctx, dir, s, func() { files++ })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, files)

	n, err = journal.ImportJournal(ctx, dir, s, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "second import skips existing entries")

	day, err := s.TimelineByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "Lunch.\nSecond line.", day[0].Content)
	require.NotNil(t, day[0].Mood)
	assert.Equal(t, "good", *day[0].Mood)
}
