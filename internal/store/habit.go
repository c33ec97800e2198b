// habit.go implements habits and their daily records. A habit has at most
// one record per date; RecordHabit replaces it.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jpl-au/pim/internal/validate"
)

// Habit is a recurring goal.
type Habit struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Icon        string  `json:"icon"`
	Color       string  `json:"color"`
	Frequency   string  `json:"frequency"`
	TargetCount int     `json:"target_count"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// NewHabit holds the fields for CreateHabit. Zero values take the column
// defaults.
type NewHabit struct {
	Name        string  `json:"name" validate:"notblank"`
	Description *string `json:"description,omitempty"`
	Icon        string  `json:"icon"`
	Color       string  `json:"color" validate:"omitempty,hexcolor"`
	Frequency   string  `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	TargetCount int     `json:"target_count" validate:"gte=0"`
}

// HabitPatch lists the fields UpdateHabit may change.
type HabitPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Frequency   *string `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	TargetCount *int    `json:"target_count,omitempty" validate:"omitempty,gte=1"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// HabitRecord is the completion count of a habit on one date.
type HabitRecord struct {
	ID             int64   `json:"id"`
	HabitID        int64   `json:"habit_id"`
	Date           string  `json:"date"`
	CompletedCount int     `json:"completed_count"`
	Notes          *string `json:"notes,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// HabitStats summarises a habit's history as of the store clock.
type HabitStats struct {
	HabitID             int64   `json:"habit_id"`
	TotalDays           int     `json:"total_days"`
	CompletedDays       int     `json:"completed_days"`
	CurrentStreak       int     `json:"current_streak"`
	LongestStreak       int     `json:"longest_streak"`
	CompletionRate      float64 `json:"completion_rate"`
	ThisWeekCompletion  int     `json:"this_week_completion"`
	ThisMonthCompletion int     `json:"this_month_completion"`
}

const (
	defaultHabitIcon  = "✅"
	defaultHabitColor = "#3B82F6"
)

const habitColumns = `id, name, description, icon, color, frequency, target_count, is_active,
	COALESCE(created_at, ''), COALESCE(updated_at, '')`

const habitRecordColumns = `id, habit_id, date, completed_count, notes,
	COALESCE(created_at, ''), COALESCE(updated_at, '')`

func scanHabit(sc scanner) (Habit, error) {
	var h Habit
	var desc sql.NullString
	err := sc.Scan(&h.ID, &h.Name, &desc, &h.Icon, &h.Color, &h.Frequency, &h.TargetCount,
		&h.IsActive, &h.CreatedAt, &h.UpdatedAt)
	h.Description = strPtr(desc)
	return h, err
}

func scanHabitRecord(sc scanner) (HabitRecord, error) {
	var r HabitRecord
	var notes sql.NullString
	err := sc.Scan(&r.ID, &r.HabitID, &r.Date, &r.CompletedCount, &notes, &r.CreatedAt, &r.UpdatedAt)
	r.Notes = strPtr(notes)
	return r, err
}

func getHabit(ctx context.Context, q querier, id int64) (*Habit, error) {
	h, err := scanHabit(q.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id))
	return one(h, err, "habit")
}

// CreateHabit inserts a habit.
func (s *SQLiteStore) CreateHabit(ctx context.Context, in NewHabit) (*Habit, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Icon == "" {
		in.Icon = defaultHabitIcon
	}
	if in.Color == "" {
		in.Color = defaultHabitColor
	}
	if in.Frequency == "" {
		in.Frequency = FrequencyDaily
	}
	if in.TargetCount == 0 {
		in.TargetCount = 1
	}
	var h *Habit
	err := s.withConn(ctx, func(q querier) error {
		now := s.stamp()
		res, err := q.ExecContext(ctx,
			`INSERT INTO habits (name, description, icon, color, frequency, target_count, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			in.Name, nullString(in.Description), in.Icon, in.Color, in.Frequency, in.TargetCount, now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		h, err = getHabit(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return h, nil
}

// Habits lists habits, newest first. activeOnly hides paused habits.
func (s *SQLiteStore) Habits(ctx context.Context, activeOnly bool) ([]Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	var out []Habit
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query+` ORDER BY created_at DESC, id DESC`)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanHabit)
		return err
	})
	return out, err
}

// Habit returns one habit or ErrNotFound.
func (s *SQLiteStore) Habit(ctx context.Context, id int64) (*Habit, error) {
	var h *Habit
	err := s.withConn(ctx, func(q querier) error {
		var err error
		h, err = getHabit(ctx, q, id)
		return err
	})
	return h, err
}

// UpdateHabit applies the non-nil fields of patch in one statement.
func (s *SQLiteStore) UpdateHabit(ctx context.Context, id int64, patch HabitPatch) (*Habit, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	var a assignments
	setIf(&a, "name", patch.Name)
	setNullable(&a, "description", patch.Description)
	setIf(&a, "icon", patch.Icon)
	setIf(&a, "color", patch.Color)
	setIf(&a, "frequency", patch.Frequency)
	setIf(&a, "target_count", patch.TargetCount)
	if patch.IsActive != nil {
		a.set("is_active", boolInt(*patch.IsActive))
	}
	var h *Habit
	err := s.withConn(ctx, func(q querier) error {
		if err := a.apply(ctx, q, "habits", "updated_at", s.stamp(), "id", id, ""); err != nil {
			return err
		}
		var err error
		h, err = getHabit(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update habit %d: %w", id, err)
	}
	return h, nil
}

// DeleteHabit removes a habit and, by cascade, its records.
func (s *SQLiteStore) DeleteHabit(ctx context.Context, id int64) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete habit %d: %w", id, err)
		}
		return affected(res)
	})
}

// RecordHabit sets the completion count for a habit on a date, replacing
// any record already there. An empty date means today.
func (s *SQLiteStore) RecordHabit(ctx context.Context, habitID int64, date string, count int, notes *string) (*HabitRecord, error) {
	if date == "" {
		date = s.today()
	}
	if !validate.Date(date) {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", validate.ErrInvalid, date)
	}
	if count < 1 {
		count = 1
	}
	var r *HabitRecord
	err := s.withConn(ctx, func(q querier) error {
		if _, err := getHabit(ctx, q, habitID); err != nil {
			return err
		}
		now := s.stamp()
		if _, err := q.ExecContext(ctx,
			`INSERT INTO habit_records (habit_id, date, completed_count, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(habit_id, date) DO UPDATE SET
				completed_count = excluded.completed_count,
				notes = excluded.notes,
				updated_at = excluded.updated_at`,
			habitID, date, count, nullString(notes), now, now); err != nil {
			return err
		}
		rec, err := scanHabitRecord(q.QueryRowContext(ctx,
			`SELECT `+habitRecordColumns+` FROM habit_records WHERE habit_id = ? AND date = ?`, habitID, date))
		r, err = one(rec, err, "habit record")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record habit %d: %w", habitID, err)
	}
	return r, nil
}

// HabitRecords lists a habit's records within [start, end], newest first.
// Nil bounds are open.
func (s *SQLiteStore) HabitRecords(ctx context.Context, habitID int64, start, end *string) ([]HabitRecord, error) {
	query := `SELECT ` + habitRecordColumns + ` FROM habit_records WHERE habit_id = ?`
	args := []any{habitID}
	if start != nil {
		query += ` AND date >= ?`
		args = append(args, *start)
	}
	if end != nil {
		query += ` AND date <= ?`
		args = append(args, *end)
	}
	var out []HabitRecord
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query+` ORDER BY date DESC`, args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanHabitRecord)
		return err
	})
	return out, err
}

// DeleteHabitRecord removes one record by id.
func (s *SQLiteStore) DeleteHabitRecord(ctx context.Context, id int64) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM habit_records WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete habit record %d: %w", id, err)
		}
		return affected(res)
	})
}

// DeleteHabitRecordByDate removes a habit's record for one date.
func (s *SQLiteStore) DeleteHabitRecordByDate(ctx context.Context, habitID int64, date string) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`DELETE FROM habit_records WHERE habit_id = ? AND date = ?`, habitID, date)
		if err != nil {
			return fmt.Errorf("delete habit record %d@%s: %w", habitID, date, err)
		}
		return affected(res)
	})
}

// HabitStats computes streaks and completion for a habit from its records.
func (s *SQLiteStore) HabitStats(ctx context.Context, id int64) (*HabitStats, error) {
	var h *Habit
	var recs []HabitRecord
	err := s.withConn(ctx, func(q querier) error {
		var err error
		if h, err = getHabit(ctx, q, id); err != nil {
			return err
		}
		rows, err := q.QueryContext(ctx,
			`SELECT `+habitRecordColumns+` FROM habit_records WHERE habit_id = ? ORDER BY date DESC`, id)
		if err != nil {
			return err
		}
		recs, err = collect(rows, scanHabitRecord)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("habit stats %d: %w", id, err)
	}
	return habitStats(h, recs, s.now()), nil
}

func habitStats(h *Habit, recs []HabitRecord, now time.Time) *HabitStats {
	st := &HabitStats{HabitID: h.ID, CompletedDays: len(recs)}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	days := 0
	if created, err := time.Parse(stampLayout, h.CreatedAt); err == nil {
		created = created.In(now.Location())
		created = time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
		days = int(today.Sub(created).Hours() / 24)
	}
	st.TotalDays = max(1, days+1)

	counts := make(map[string]int, len(recs))
	weekAgo := today.AddDate(0, 0, -7).Format(dateLayout)
	monthAgo := today.AddDate(0, -1, 0).Format(dateLayout)
	for _, r := range recs {
		counts[r.Date] += r.CompletedCount
		if r.Date >= weekAgo {
			st.ThisWeekCompletion++
		}
		if r.Date >= monthAgo {
			st.ThisMonthCompletion++
		}
	}
	st.CurrentStreak, st.LongestStreak = Streaks(h.Frequency, h.TargetCount, counts, today)

	rate := float64(st.CompletedDays) / float64(st.TotalDays) * 100
	st.CompletionRate = min(100, max(0, rate))
	return st
}
