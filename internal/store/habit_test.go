package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHabit_Defaults(t *testing.T) {
	s := setupStore(t)
	h, err := s.CreateHabit(context.Background(), store.NewHabit{Name: "Read"})
	require.NoError(t, err)
	assert.Equal(t, "✅", h.Icon)
	assert.Equal(t, "#3B82F6", h.Color)
	assert.Equal(t, store.FrequencyDaily, h.Frequency)
	assert.Equal(t, 1, h.TargetCount)
	assert.True(t, h.IsActive)

	_, err = s.CreateHabit(context.Background(), store.NewHabit{Name: "x", Frequency: "hourly"})
	assert.Error(t, err)
}

func TestHabit_RecordIsUpsert(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	h, err := s.CreateHabit(ctx, store.NewHabit{Name: "Walk"})
	require.NoError(t, err)

	first, err := s.RecordHabit(ctx, h.ID, "", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", first.Date)

	second, err := s.RecordHabit(ctx, h.ID, "2024-01-01", 3, strp("long one"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.CompletedCount)
	assert.Equal(t, "long one", *second.Notes)
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM habit_records WHERE habit_id = ?`, h.ID))

	_, err = s.RecordHabit(ctx, h.ID, "yesterday", 1, nil)
	assert.Error(t, err)
	_, err = s.RecordHabit(ctx, 999, "2024-01-01", 1, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteHabitRecordByDate(ctx, h.ID, "2024-01-01"))
	assert.ErrorIs(t, s.DeleteHabitRecordByDate(ctx, h.ID, "2024-01-01"), store.ErrNotFound)
}

func TestHabit_Stats(t *testing.T) {
	now := fixedNow
	s := setupStoreAt(t, func() time.Time { return now })
	ctx := context.Background()

	h, err := s.CreateHabit(ctx, store.NewHabit{Name: "Stretch"})
	require.NoError(t, err)

	now = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	for _, d := range []string{"2024-01-05", "2024-01-08", "2024-01-09", "2024-01-10"} {
		_, err := s.RecordHabit(ctx, h.ID, d, 1, nil)
		require.NoError(t, err)
	}

	st, err := s.HabitStats(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, st.TotalDays)
	assert.Equal(t, 4, st.CompletedDays)
	assert.Equal(t, 3, st.CurrentStreak)
	assert.Equal(t, 3, st.LongestStreak)
	assert.InDelta(t, 40.0, st.CompletionRate, 0.001)
	assert.Equal(t, 4, st.ThisWeekCompletion)
	assert.Equal(t, 4, st.ThisMonthCompletion)

	recs, err := s.HabitRecords(ctx, h.ID, strp("2024-01-08"), strp("2024-01-09"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2024-01-09", recs[0].Date)
}

func TestHabit_ActiveFilterAndDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	a, err := s.CreateHabit(ctx, store.NewHabit{Name: "a"})
	require.NoError(t, err)
	b, err := s.CreateHabit(ctx, store.NewHabit{Name: "b"})
	require.NoError(t, err)

	off := false
	_, err = s.UpdateHabit(ctx, b.ID, store.HabitPatch{IsActive: &off})
	require.NoError(t, err)

	active, err := s.Habits(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
	all, err := s.Habits(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.RecordHabit(ctx, a.ID, "2024-01-01", 1, nil)
	require.NoError(t, err)
	require.NoError(t, s.DeleteHabit(ctx, a.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM habit_records`))
}

func TestHabit_RecordAndStatsUseLocalDate(t *testing.T) {
	s := setupStoreAt(t, func() time.Time { return aheadOfUTC })
	ctx := context.Background()

	h, err := s.CreateHabit(ctx, store.NewHabit{Name: "Swim"})
	require.NoError(t, err)
	rec, err := s.RecordHabit(ctx, h.ID, "", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", rec.Date)

	st, err := s.HabitStats(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalDays)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.InDelta(t, 100.0, st.CompletionRate, 0.001)
}
