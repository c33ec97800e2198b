package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jpl-au/pim/internal/validate"
)

// TimelineEntry is one journal line. Date is "YYYY-MM-DD", Time is "HH:MM"
// and Timestamp is milliseconds.
type TimelineEntry struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date" validate:"date"`
	Time      string  `json:"time" validate:"required"`
	Content   string  `json:"content" validate:"notblank"`
	Weather   *string `json:"weather,omitempty"`
	Mood      *string `json:"mood,omitempty"`
	Timestamp int64   `json:"timestamp"`
	CreatedAt string  `json:"created_at"`
}

const timelineColumns = `id, date, time, content, weather, mood, COALESCE(timestamp, 0), COALESCE(created_at, '')`

func scanTimeline(sc scanner) (TimelineEntry, error) {
	var e TimelineEntry
	var weather, mood sql.NullString
	err := sc.Scan(&e.ID, &e.Date, &e.Time, &e.Content, &weather, &mood, &e.Timestamp, &e.CreatedAt)
	e.Weather, e.Mood = strPtr(weather), strPtr(mood)
	return e, err
}

// fill defaults an entry's date, time and timestamp from the store clock.
func (s *SQLiteStore) fill(e *TimelineEntry) {
	now := s.now()
	if e.Date == "" {
		e.Date = s.today()
	}
	if e.Time == "" {
		e.Time = now.Format("15:04")
	}
	if e.Timestamp == 0 {
		if t, err := time.ParseInLocation(dateLayout+" 15:04", e.Date+" "+e.Time, now.Location()); err == nil {
			e.Timestamp = t.UnixMilli()
		} else {
			e.Timestamp = now.UnixMilli()
		}
	}
}

func (s *SQLiteStore) insertTimeline(ctx context.Context, q querier, e *TimelineEntry) error {
	e.CreatedAt = s.stamp()
	res, err := q.ExecContext(ctx,
		`INSERT INTO timeline_entries (date, time, content, weather, mood, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Date, e.Time, e.Content, nullString(e.Weather), nullString(e.Mood), e.Timestamp, e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// CreateTimelineEntry inserts an entry and returns its row id. Empty date
// and time default to now.
func (s *SQLiteStore) CreateTimelineEntry(ctx context.Context, e TimelineEntry) (int64, error) {
	s.fill(&e)
	if err := validate.Struct(e); err != nil {
		return 0, err
	}
	err := s.withConn(ctx, func(q querier) error {
		return s.insertTimeline(ctx, q, &e)
	})
	if err != nil {
		return 0, fmt.Errorf("create timeline entry: %w", err)
	}
	return e.ID, nil
}

func (s *SQLiteStore) queryTimeline(ctx context.Context, query string, args ...any) ([]TimelineEntry, error) {
	var out []TimelineEntry
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanTimeline)
		return err
	})
	return out, err
}

// TimelineByDate lists a day's entries, latest first.
func (s *SQLiteStore) TimelineByDate(ctx context.Context, date string) ([]TimelineEntry, error) {
	return s.queryTimeline(ctx,
		`SELECT `+timelineColumns+` FROM timeline_entries WHERE date = ? ORDER BY timestamp DESC, id DESC`, date)
}

// RecentTimeline lists the latest entries across all days.
func (s *SQLiteStore) RecentTimeline(ctx context.Context, limit int) ([]TimelineEntry, error) {
	if limit <= 0 {
		limit = s.opts.SearchLimit
	}
	return s.queryTimeline(ctx,
		`SELECT `+timelineColumns+` FROM timeline_entries ORDER BY date DESC, time DESC, id DESC LIMIT ?`, limit)
}

// DeleteTimelineEntry removes an entry.
func (s *SQLiteStore) DeleteTimelineEntry(ctx context.Context, id int64) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM timeline_entries WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete timeline entry %d: %w", id, err)
		}
		return affected(res)
	})
}

// ImportTimeline inserts entries in one transaction, skipping any whose date,
// time and content already exist. Returns the number inserted.
func (s *SQLiteStore) ImportTimeline(ctx context.Context, entries []TimelineEntry) (int, error) {
	for i := range entries {
		s.fill(&entries[i])
		if err := validate.Struct(entries[i]); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	var n int
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		for i := range entries {
			e := &entries[i]
			var exists int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM timeline_entries WHERE date = ? AND time = ? AND content = ?`,
				e.Date, e.Time, e.Content).Scan(&exists); err != nil {
				return err
			}
			if exists > 0 {
				continue
			}
			if err := s.insertTimeline(ctx, tx, e); err != nil {
				return fmt.Errorf("entry %s %s: %w", e.Date, e.Time, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import timeline: %w", err)
	}
	return n, nil
}
