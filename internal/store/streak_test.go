package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreaks(t *testing.T) {
	today := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		name        string
		frequency   string
		target      int
		counts      map[string]int
		wantCurrent int
		wantLongest int
	}{
		{
			name:      "empty",
			frequency: FrequencyDaily,
			counts:    nil,
		},
		{
			name:        "daily run ending today",
			frequency:   FrequencyDaily,
			counts:      map[string]int{"2024-01-08": 1, "2024-01-09": 1, "2024-01-10": 1},
			wantCurrent: 3,
			wantLongest: 3,
		},
		{
			name:        "today not done yet keeps yesterday's run",
			frequency:   FrequencyDaily,
			counts:      map[string]int{"2024-01-08": 1, "2024-01-09": 1},
			wantCurrent: 2,
			wantLongest: 2,
		},
		{
			name:      "gap breaks current",
			frequency: FrequencyDaily,
			counts: map[string]int{
				"2024-01-01": 1, "2024-01-02": 1, "2024-01-03": 1, "2024-01-04": 1,
				"2024-01-08": 1,
			},
			wantCurrent: 0,
			wantLongest: 4,
		},
		{
			name:        "target not met",
			frequency:   FrequencyDaily,
			target:      2,
			counts:      map[string]int{"2024-01-09": 1, "2024-01-10": 2},
			wantCurrent: 1,
			wantLongest: 1,
		},
		{
			name:        "weekly sums within the week",
			frequency:   FrequencyWeekly,
			target:      3,
			counts:      map[string]int{"2024-01-01": 2, "2024-01-03": 1, "2023-12-27": 3, "2024-01-09": 1},
			wantCurrent: 2,
			wantLongest: 2,
		},
		{
			name:        "monthly across a year boundary",
			frequency:   FrequencyMonthly,
			counts:      map[string]int{"2023-11-15": 1, "2023-12-01": 1, "2024-01-02": 1},
			wantCurrent: 3,
			wantLongest: 3,
		},
		{
			name:        "bad dates ignored",
			frequency:   FrequencyDaily,
			counts:      map[string]int{"garbage": 5, "2024-01-10": 1},
			wantCurrent: 1,
			wantLongest: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, long := Streaks(tt.frequency, tt.target, tt.counts, today)
			assert.Equal(t, tt.wantCurrent, cur, "current")
			assert.Equal(t, tt.wantLongest, long, "longest")
		})
	}
}

func TestHabitStats_ClampsRate(t *testing.T) {
	h := &Habit{ID: 1, Frequency: FrequencyDaily, TargetCount: 1, CreatedAt: "2024-01-10 09:00:00"}
	recs := []HabitRecord{{Date: "2024-01-08", CompletedCount: 1}, {Date: "2024-01-10", CompletedCount: 1}}

	st := habitStats(h, recs, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, st.TotalDays)
	assert.Equal(t, 2, st.CompletedDays)
	assert.InDelta(t, 100.0, st.CompletionRate, 0.001)
	assert.Equal(t, 1, st.CurrentStreak)
}
