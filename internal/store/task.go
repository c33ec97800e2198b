// task.go implements the task repository. Tasks are soft-deleted through
// deleted_at and every listing excludes them. Dates are "YYYY-MM-DD" text and
// timestamps are UTC "YYYY-MM-DD HH:MM:SS" text, both taken from the store
// clock so filters are testable.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jpl-au/pim/internal/validate"
)

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Task filters accepted by TasksByFilter.
const (
	FilterToday     = "today"
	FilterWeek      = "week"
	FilterPending   = "pending"
	FilterHigh      = "high"
	FilterCompleted = "completed"
)

// Task is a to-do item, optionally filed under a project.
type Task struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
	ProjectID   *int64  `json:"project_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	DeletedAt   *string `json:"deleted_at,omitempty"`
}

// NewTask holds the fields for CreateTask. Empty status and priority
// default to todo and medium.
type NewTask struct {
	Title       string  `json:"title" validate:"notblank"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status" validate:"omitempty,oneof=todo in_progress completed cancelled"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *string `json:"due_date,omitempty" validate:"omitempty,date"`
	ProjectID   *int64  `json:"project_id,omitempty"`
}

// TaskPatch lists the fields UpdateTask may change. An empty DueDate or
// CompletedAt clears the column.
type TaskPatch struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,notblank"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress completed cancelled"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *string `json:"due_date,omitempty" validate:"omitempty,date"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

const taskColumns = `id, title, description, status, priority, due_date, completed_at, project_id,
	COALESCE(created_at, ''), COALESCE(updated_at, ''), deleted_at`

// priorityRank orders urgent first and low last.
const priorityRank = `CASE priority
	WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END`

func scanTask(sc scanner) (Task, error) {
	var t Task
	var desc, due, done, deleted sql.NullString
	var project sql.NullInt64
	err := sc.Scan(&t.ID, &t.Title, &desc, &t.Status, &t.Priority, &due, &done, &project,
		&t.CreatedAt, &t.UpdatedAt, &deleted)
	t.Description, t.DueDate, t.CompletedAt, t.DeletedAt = strPtr(desc), strPtr(due), strPtr(done), strPtr(deleted)
	t.ProjectID = int64Ptr(project)
	return t, err
}

func getTask(ctx context.Context, q querier, id int64, includeDeleted bool) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	t, err := scanTask(q.QueryRowContext(ctx, query, id))
	return one(t, err, "task")
}

func (s *SQLiteStore) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	var out []Task
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanTask)
		return err
	})
	return out, err
}

func checkProject(ctx context.Context, q querier, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := getProject(ctx, q, *id); err != nil {
		return fmt.Errorf("project %d: %w", *id, err)
	}
	return nil
}

// CreateTask inserts a task and returns it with its new id.
func (s *SQLiteStore) CreateTask(ctx context.Context, in NewTask) (*Task, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	var t *Task
	err := s.withConn(ctx, func(q querier) error {
		if err := checkProject(ctx, q, in.ProjectID); err != nil {
			return err
		}
		now := s.stamp()
		var completed sql.NullString
		if in.Status == StatusCompleted {
			completed = sql.NullString{String: now, Valid: true}
		}
		var project sql.NullInt64
		if in.ProjectID != nil {
			project = sql.NullInt64{Int64: *in.ProjectID, Valid: true}
		}
		res, err := q.ExecContext(ctx,
			`INSERT INTO tasks (title, description, status, priority, due_date, completed_at, project_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Title, nullString(in.Description), in.Status, in.Priority, nullString(in.DueDate),
			completed, project, now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t, err = getTask(ctx, q, id, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Tasks lists live tasks, newest first.
func (s *SQLiteStore) Tasks(ctx context.Context) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE deleted_at IS NULL ORDER BY created_at DESC, id DESC`)
}

// TasksByStatus lists live tasks with the given status.
func (s *SQLiteStore) TasksByStatus(ctx context.Context, status string) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE deleted_at IS NULL AND status = ?
		ORDER BY created_at DESC, id DESC`, status)
}

// TasksByProject lists live tasks of a project. A nil id lists tasks with no
// project.
func (s *SQLiteStore) TasksByProject(ctx context.Context, projectID *int64) ([]Task, error) {
	var project sql.NullInt64
	if projectID != nil {
		project = sql.NullInt64{Int64: *projectID, Valid: true}
	}
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE deleted_at IS NULL AND project_id IS ?
		ORDER BY created_at DESC, id DESC`, project)
}

// TasksByDateRange lists live tasks whose due date lies within [start, end].
// A nil bound is open.
func (s *SQLiteStore) TasksByDateRange(ctx context.Context, start, end *string) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL AND due_date IS NOT NULL`
	var args []any
	if start != nil {
		query += ` AND due_date >= ?`
		args = append(args, *start)
	}
	if end != nil {
		query += ` AND due_date <= ?`
		args = append(args, *end)
	}
	return s.queryTasks(ctx, query+` ORDER BY due_date ASC, `+priorityRank, args...)
}

// weekBounds returns the Monday and Sunday of the week containing t.
func weekBounds(t time.Time) (string, string) {
	offset := (int(t.Weekday()) + 6) % 7
	mon := t.AddDate(0, 0, -offset)
	return mon.Format(dateLayout), mon.AddDate(0, 0, 6).Format(dateLayout)
}

// TasksByFilter returns at most FilterLimit live tasks for a named filter,
// ordered by priority, then due date (undated last), then most recently
// updated. Unknown filters return ErrInvalidFilter.
func (s *SQLiteStore) TasksByFilter(ctx context.Context, filter string) ([]Task, error) {
	now := s.now()
	var cond string
	var args []any
	switch filter {
	case FilterToday:
		cond = `due_date = ?`
		args = append(args, s.today())
	case FilterWeek:
		mon, sun := weekBounds(now)
		cond = `due_date >= ? AND due_date <= ?`
		args = append(args, mon, sun)
	case FilterPending:
		cond = `status IN ('todo', 'in_progress')`
	case FilterHigh:
		cond = `priority IN ('high', 'urgent')`
	case FilterCompleted:
		cond = `status = 'completed' AND completed_at >= ?`
		args = append(args, now.UTC().AddDate(0, 0, -7).Format(stampLayout))
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}
	args = append(args, FilterLimit)
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE deleted_at IS NULL AND `+cond+`
		ORDER BY `+priorityRank+`, due_date IS NULL, due_date ASC, updated_at DESC
		LIMIT ?`, args...)
}

// PendingTasks returns up to limit unfinished tasks, most urgent first.
func (s *SQLiteStore) PendingTasks(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = FilterLimit
	}
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE deleted_at IS NULL AND status IN ('todo', 'in_progress')
		ORDER BY `+priorityRank+`, due_date IS NULL, due_date ASC, created_at DESC
		LIMIT ?`, limit)
}

// Task returns one live task or ErrNotFound.
func (s *SQLiteStore) Task(ctx context.Context, id int64) (*Task, error) {
	var t *Task
	err := s.withConn(ctx, func(q querier) error {
		var err error
		t, err = getTask(ctx, q, id, false)
		return err
	})
	return t, err
}

// UpdateTask applies the non-nil fields of patch in one statement. Moving a
// task to completed stamps completed_at unless the patch sets it; moving it
// out of completed clears it.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (*Task, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	now := s.stamp()
	var a assignments
	setIf(&a, "title", patch.Title)
	setNullable(&a, "description", patch.Description)
	setIf(&a, "status", patch.Status)
	setIf(&a, "priority", patch.Priority)
	setNullable(&a, "due_date", patch.DueDate)
	switch {
	case patch.CompletedAt != nil:
		setNullable(&a, "completed_at", patch.CompletedAt)
	case patch.Status != nil && *patch.Status == StatusCompleted:
		a.set("completed_at", now)
	case patch.Status != nil:
		a.set("completed_at", nil)
	}

	var t *Task
	err := s.withConn(ctx, func(q querier) error {
		if err := a.apply(ctx, q, "tasks", "updated_at", now, "id", id, "deleted_at IS NULL"); err != nil {
			return err
		}
		var err error
		t, err = getTask(ctx, q, id, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	return t, nil
}

// MoveTask files a task under a project, or removes it from any project
// when projectID is nil.
func (s *SQLiteStore) MoveTask(ctx context.Context, id int64, projectID *int64) (*Task, error) {
	var t *Task
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if err := checkProject(ctx, tx, projectID); err != nil {
			return err
		}
		var project sql.NullInt64
		if projectID != nil {
			project = sql.NullInt64{Int64: *projectID, Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET project_id = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
			project, s.stamp(), id)
		if err != nil {
			return err
		}
		if err := affected(res); err != nil {
			return err
		}
		t, err = getTask(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("move task %d: %w", id, err)
	}
	return t, nil
}

// DeleteTask soft-deletes a task, or removes it outright when hard is set.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64, hard bool) error {
	return s.withConn(ctx, func(q querier) error {
		var res sql.Result
		var err error
		if hard {
			res, err = q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		} else {
			now := s.stamp()
			res, err = q.ExecContext(ctx,
				`UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now, now, id)
		}
		if err != nil {
			return fmt.Errorf("delete task %d: %w", id, err)
		}
		return affected(res)
	})
}

// RestoreTask undoes a soft delete.
func (s *SQLiteStore) RestoreTask(ctx context.Context, id int64) (*Task, error) {
	var t *Task
	err := s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE tasks SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`,
			s.stamp(), id)
		if err != nil {
			return err
		}
		if err := affected(res); err != nil {
			return err
		}
		t, err = getTask(ctx, q, id, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("restore task %d: %w", id, err)
	}
	return t, nil
}

// SearchTasks matches live tasks by title or description. Title matches
// sort ahead of description-only matches.
func (s *SQLiteStore) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	pat := like(query)
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE deleted_at IS NULL AND (title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')
		ORDER BY CASE WHEN title LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, updated_at DESC`,
		pat, pat, pat)
}
