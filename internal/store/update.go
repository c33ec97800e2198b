package store

import (
	"context"
	"strings"
)

// assignments accumulates the columns a partial update touches. Every
// repository Update builds one of these and issues a single parameterized
// UPDATE, so a multi-field update is atomic and bumps updated_at once.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) set(col string, v any) {
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, v)
}

// setIf assigns col only when p is non-nil.
func setIf[T any](a *assignments, col string, p *T) {
	if p != nil {
		a.set(col, *p)
	}
}

// setNullable assigns col, storing NULL when p points at an empty string.
func setNullable(a *assignments, col string, p *string) {
	if p == nil {
		return
	}
	if *p == "" {
		a.set(col, nil)
		return
	}
	a.set(col, *p)
}

func (a *assignments) empty() bool { return len(a.cols) == 0 }

// apply runs UPDATE table SET ... , stampCol = stamp WHERE key = id [AND cond].
// With no assignments it only verifies the row exists. ErrNotFound is
// returned when nothing matched.
func (a *assignments) apply(ctx context.Context, q querier, table, stampCol string, stamp any, key string, id any, cond string) error {
	if stampCol != "" {
		a.set(stampCol, stamp)
	}
	var b strings.Builder
	b.WriteString(`UPDATE `)
	b.WriteString(table)
	b.WriteString(` SET `)
	b.WriteString(strings.Join(a.cols, ", "))
	b.WriteString(` WHERE `)
	b.WriteString(key)
	b.WriteString(` = ?`)
	if cond != "" {
		b.WriteString(` AND `)
		b.WriteString(cond)
	}
	res, err := q.ExecContext(ctx, b.String(), append(a.args, id)...)
	if err != nil {
		return err
	}
	return affected(res)
}
