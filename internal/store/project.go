package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// Project groups tasks.
type Project struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// NewProject holds the fields for CreateProject.
type NewProject struct {
	Name        string  `json:"name" validate:"notblank"`
	Icon        string  `json:"icon"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Description *string `json:"description,omitempty"`
}

// ProjectPatch lists the fields UpdateProject may change.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Description *string `json:"description,omitempty"`
}

// ProjectStats summarises the live tasks of a project.
type ProjectStats struct {
	ProjectID int64 `json:"project_id"`
	Total     int   `json:"total"`
	Completed int   `json:"completed"`
	Overdue   int   `json:"overdue"`
}

const defaultProjectIcon = "📋"

const projectColumns = `id, name, COALESCE(icon, ''), color, description,
	COALESCE(created_at, ''), COALESCE(updated_at, '')`

func scanProject(sc scanner) (Project, error) {
	var p Project
	var color, desc sql.NullString
	err := sc.Scan(&p.ID, &p.Name, &p.Icon, &color, &desc, &p.CreatedAt, &p.UpdatedAt)
	p.Color, p.Description = strPtr(color), strPtr(desc)
	return p, err
}

func getProject(ctx context.Context, q querier, id int64) (*Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM task_projects WHERE id = ?`, id))
	return one(p, err, "project")
}

// CreateProject inserts a project.
func (s *SQLiteStore) CreateProject(ctx context.Context, in NewProject) (*Project, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Icon == "" {
		in.Icon = defaultProjectIcon
	}
	var p *Project
	err := s.withConn(ctx, func(q querier) error {
		now := s.stamp()
		res, err := q.ExecContext(ctx,
			`INSERT INTO task_projects (name, icon, color, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			in.Name, in.Icon, nullString(in.Color), nullString(in.Description), now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p, err = getProject(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// Projects lists projects by name.
func (s *SQLiteStore) Projects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, `SELECT `+projectColumns+` FROM task_projects ORDER BY name`)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanProject)
		return err
	})
	return out, err
}

// Project returns one project or ErrNotFound.
func (s *SQLiteStore) Project(ctx context.Context, id int64) (*Project, error) {
	var p *Project
	err := s.withConn(ctx, func(q querier) error {
		var err error
		p, err = getProject(ctx, q, id)
		return err
	})
	return p, err
}

// UpdateProject applies the non-nil fields of patch in one statement.
func (s *SQLiteStore) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (*Project, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	var p *Project
	err := s.withConn(ctx, func(q querier) error {
		var a assignments
		setIf(&a, "name", patch.Name)
		setIf(&a, "icon", patch.Icon)
		setNullable(&a, "color", patch.Color)
		setNullable(&a, "description", patch.Description)
		if err := a.apply(ctx, q, "task_projects", "updated_at", s.stamp(), "id", id, ""); err != nil {
			return err
		}
		var err error
		p, err = getProject(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	}
	return p, nil
}

// DeleteProject detaches the project's tasks and deletes it in one
// transaction. The tasks themselves are kept.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id int64) error {
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET project_id = NULL, updated_at = ? WHERE project_id = ?`, s.stamp(), id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM task_projects WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return nil
}

// ProjectStats counts the live tasks of a project. A task is overdue when
// its due date is before today and it is not completed.
func (s *SQLiteStore) ProjectStats(ctx context.Context, id int64) (*ProjectStats, error) {
	st := &ProjectStats{ProjectID: id}
	err := s.withConn(ctx, func(q querier) error {
		if _, err := getProject(ctx, q, id); err != nil {
			return err
		}
		return q.QueryRowContext(ctx,
			`SELECT COUNT(*),
				COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN status != 'completed' AND due_date IS NOT NULL AND due_date < ? THEN 1 ELSE 0 END), 0)
			FROM tasks WHERE project_id = ? AND deleted_at IS NULL`, s.today(), id).
			Scan(&st.Total, &st.Completed, &st.Overdue)
	})
	if err != nil {
		return nil, fmt.Errorf("project stats %d: %w", id, err)
	}
	return st, nil
}
