// sortkey.go computes fractional sort keys for sibling ordering.
//
// Pages, blocks, cards and card boxes order siblings by a REAL sort_order.
// Inserting between two siblings takes the midpoint of their keys so no
// other row is rewritten. Appending takes max+1 within the sibling scope.
// When repeated halving exhausts float precision the scope is renumbered
// 1..n in place before the new key is computed.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPlacement is returned when After does not sort before Before.
var ErrInvalidPlacement = errors.New("invalid placement")

// Placement positions an item among its siblings. Key, when set, is used
// verbatim. Otherwise After and Before name sibling ids; with neither set the
// item is appended.
type Placement struct {
	After  string
	Before string
	Key    *float64
}

// Between returns a key strictly between lo and hi. ok is false when no
// representable value exists between them.
func Between(lo, hi float64) (key float64, ok bool) {
	if lo > hi {
		lo, hi = hi, lo
	}
	mid := lo + (hi-lo)/2
	if mid <= lo || mid >= hi || math.IsInf(mid, 0) || math.IsNaN(mid) {
		return mid, false
	}
	return mid, true
}

// siblings describes one ordering scope: the rows of table matching where.
// table and where are package constants; only args carry caller data.
type siblings struct {
	table   string
	where   string
	args    []any
	exclude string // id of the item being moved, if any
}

func (sc siblings) cond() (string, []any) {
	w := sc.where
	args := append([]any(nil), sc.args...)
	if sc.exclude != "" {
		w += ` AND id != ?`
		args = append(args, sc.exclude)
	}
	return w, args
}

// keyOf loads the sort key of a sibling inside the scope.
func (sc siblings) keyOf(ctx context.Context, q querier, id string) (float64, error) {
	w, args := sc.cond()
	var k sql.NullFloat64
	err := q.QueryRowContext(ctx,
		`SELECT sort_order FROM `+sc.table+` WHERE `+w+` AND id = ?`,
		append(args, id)...).Scan(&k)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sibling %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	return k.Float64, nil
}

func (sc siblings) aggregate(ctx context.Context, q querier, agg, extra string, extraArgs ...any) (sql.NullFloat64, error) {
	w, args := sc.cond()
	var k sql.NullFloat64
	err := q.QueryRowContext(ctx,
		`SELECT `+agg+`(sort_order) FROM `+sc.table+` WHERE `+w+extra,
		append(args, extraArgs...)...).Scan(&k)
	return k, err
}

// renumber rewrites the scope's keys to 1..n preserving order.
func (sc siblings) renumber(ctx context.Context, q querier) error {
	w, args := sc.cond()
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM `+sc.table+` WHERE `+w+` ORDER BY sort_order, created_at`, args...)
	if err != nil {
		return err
	}
	ids, err := collect(rows, func(sc scanner) (string, error) {
		var id string
		return id, sc.Scan(&id)
	})
	if err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := q.ExecContext(ctx,
			`UPDATE `+sc.table+` SET sort_order = ? WHERE id = ?`, float64(i+1), id); err != nil {
			return err
		}
	}
	return nil
}

// place resolves p to a concrete key within the scope.
func (sc siblings) place(ctx context.Context, q querier, p Placement) (float64, error) {
	if p.Key != nil {
		return *p.Key, nil
	}
	for attempt := 0; ; attempt++ {
		key, ok, err := sc.try(ctx, q, p)
		if err != nil || ok {
			return key, err
		}
		if attempt > 0 {
			return 0, fmt.Errorf("%w: keys exhausted", ErrInvalidPlacement)
		}
		if err := sc.renumber(ctx, q); err != nil {
			return 0, fmt.Errorf("renumber %s: %w", sc.table, err)
		}
	}
}

func (sc siblings) try(ctx context.Context, q querier, p Placement) (float64, bool, error) {
	switch {
	case p.After != "" && p.Before != "":
		lo, err := sc.keyOf(ctx, q, p.After)
		if err != nil {
			return 0, false, err
		}
		hi, err := sc.keyOf(ctx, q, p.Before)
		if err != nil {
			return 0, false, err
		}
		if lo >= hi {
			return 0, false, ErrInvalidPlacement
		}
		k, ok := Between(lo, hi)
		return k, ok, nil

	case p.After != "":
		lo, err := sc.keyOf(ctx, q, p.After)
		if err != nil {
			return 0, false, err
		}
		next, err := sc.aggregate(ctx, q, "MIN", ` AND sort_order > ?`, lo)
		if err != nil {
			return 0, false, err
		}
		if !next.Valid {
			return lo + 1, true, nil
		}
		k, ok := Between(lo, next.Float64)
		return k, ok, nil

	case p.Before != "":
		hi, err := sc.keyOf(ctx, q, p.Before)
		if err != nil {
			return 0, false, err
		}
		prev, err := sc.aggregate(ctx, q, "MAX", ` AND sort_order < ?`, hi)
		if err != nil {
			return 0, false, err
		}
		if !prev.Valid {
			return hi - 1, true, nil
		}
		k, ok := Between(prev.Float64, hi)
		return k, ok, nil

	default:
		top, err := sc.aggregate(ctx, q, "MAX", "")
		if err != nil {
			return 0, false, err
		}
		return top.Float64 + 1, true, nil
	}
}
