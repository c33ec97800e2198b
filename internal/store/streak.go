package store

import (
	"sort"
	"time"
)

// Habit frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// period maps a date onto the start of its daily, ISO-weekly or monthly
// period and steps between periods.
type period string

func (p period) start(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case FrequencyWeekly:
		return t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
	case FrequencyMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

func (p period) step(t time.Time, n int) time.Time {
	switch p {
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7*n)
	case FrequencyMonthly:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Streaks walks completed periods. counts maps "YYYY-MM-DD" to the number of
// completions recorded that day; a period is complete when the counts within
// it reach target. The current streak ends at the period containing today,
// or at the one before it when today's period is not complete yet. Dates
// that do not parse are ignored.
func Streaks(frequency string, target int, counts map[string]int, today time.Time) (current, longest int) {
	if target < 1 {
		target = 1
	}
	p := period(frequency)
	sums := map[time.Time]int{}
	for d, n := range counts {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			continue
		}
		sums[p.start(t)] += n
	}
	var done []time.Time
	for t, n := range sums {
		if n >= target {
			done = append(done, t)
		}
	}
	if len(done) == 0 {
		return 0, 0
	}
	sort.Slice(done, func(i, j int) bool { return done[i].Before(done[j]) })

	run := 0
	for i, t := range done {
		if i > 0 && p.step(done[i-1], 1).Equal(t) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	complete := func(t time.Time) bool { return sums[t] >= target }
	cur := p.start(today)
	if !complete(cur) {
		cur = p.step(cur, -1)
	}
	for complete(cur) {
		current++
		cur = p.step(cur, -1)
	}
	return current, longest
}
