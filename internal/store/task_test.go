package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(t *testing.T, s *store.SQLiteStore, in store.NewTask) *store.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), in)
	require.NoError(t, err)
	return task
}

func taskTitles(tasks []store.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestTask_FilterToday(t *testing.T) {
	s := setupStore(t)

	newTask(t, s, store.NewTask{Title: "due today", DueDate: strp("2024-01-01")})
	newTask(t, s, store.NewTask{Title: "due tomorrow", DueDate: strp("2024-01-02")})
	newTask(t, s, store.NewTask{Title: "no date"})

	got, err := s.TasksByFilter(context.Background(), store.FilterToday)
	require.NoError(t, err)
	assert.Equal(t, []string{"due today"}, taskTitles(got))
}

func TestTask_Filters(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	newTask(t, s, store.NewTask{Title: "low sunday", Priority: "low", DueDate: strp("2024-01-07")})
	newTask(t, s, store.NewTask{Title: "urgent friday", Priority: "urgent", DueDate: strp("2024-01-05")})
	newTask(t, s, store.NewTask{Title: "high later", Priority: "high", DueDate: strp("2024-02-01")})
	newTask(t, s, store.NewTask{Title: "done", Status: store.StatusCompleted})
	newTask(t, s, store.NewTask{Title: "dropped", Status: store.StatusCancelled, Priority: "urgent"})

	week, err := s.TasksByFilter(ctx, store.FilterWeek)
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent friday", "low sunday"}, taskTitles(week))

	high, err := s.TasksByFilter(ctx, store.FilterHigh)
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent friday", "dropped", "high later"}, taskTitles(high))

	pending, err := s.TasksByFilter(ctx, store.FilterPending)
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent friday", "high later", "low sunday"}, taskTitles(pending))

	completed, err := s.TasksByFilter(ctx, store.FilterCompleted)
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, taskTitles(completed))

	_, err = s.TasksByFilter(ctx, "someday")
	assert.ErrorIs(t, err, store.ErrInvalidFilter)
}

func TestTask_CompletedAtFollowsStatus(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	task := newTask(t, s, store.NewTask{Title: "x"})
	assert.Equal(t, store.StatusTodo, task.Status)
	assert.Equal(t, "medium", task.Priority)
	assert.Nil(t, task.CompletedAt)

	done := store.StatusCompleted
	got, err := s.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &done})
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, "2024-01-01 10:30:00", *got.CompletedAt)

	todo := store.StatusTodo
	got, err = s.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &todo})
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)

	_, err = s.UpdateTask(ctx, task.ID, store.TaskPatch{Priority: strp("whenever")})
	assert.Error(t, err)
	_, err = s.UpdateTask(ctx, task.ID, store.TaskPatch{DueDate: strp("01/02/2024")})
	assert.Error(t, err)

	got, err = s.UpdateTask(ctx, task.ID, store.TaskPatch{DueDate: strp("2024-03-01")})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", *got.DueDate)
	got, err = s.UpdateTask(ctx, task.ID, store.TaskPatch{DueDate: strp("")})
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
}

func TestTask_SoftDeleteAndRestore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	task := newTask(t, s, store.NewTask{Title: "ghost"})

	require.NoError(t, s.DeleteTask(ctx, task.ID, false))
	_, err := s.Task(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	found, err := s.SearchTasks(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM tasks WHERE id = ?`, task.ID))

	trash, err := s.DeletedTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, trash, 1)

	back, err := s.RestoreTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, back.DeletedAt)

	require.NoError(t, s.DeleteTask(ctx, task.ID, true))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM tasks`))
	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID, true), store.ErrNotFound)
}

func TestTask_Search(t *testing.T) {
	s := setupStore(t)
	desc := "remember the 100% juice"
	newTask(t, s, store.NewTask{Title: "shopping", Description: &desc})
	newTask(t, s, store.NewTask{Title: "juice press repair"})

	got, err := s.SearchTasks(context.Background(), "juice")
	require.NoError(t, err)
	assert.Equal(t, []string{"juice press repair", "shopping"}, taskTitles(got))

	got, err = s.SearchTasks(context.Background(), "100%")
	require.NoError(t, err)
	assert.Equal(t, []string{"shopping"}, taskTitles(got))
}

func TestTask_DateRange(t *testing.T) {
	s := setupStore(t)
	newTask(t, s, store.NewTask{Title: "jan", DueDate: strp("2024-01-15")})
	newTask(t, s, store.NewTask{Title: "feb", DueDate: strp("2024-02-15")})
	newTask(t, s, store.NewTask{Title: "undated"})

	got, err := s.TasksByDateRange(context.Background(), strp("2024-02-01"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"feb"}, taskTitles(got))

	got, err = s.TasksByDateRange(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"jan", "feb"}, taskTitles(got))
}

func TestProject_Lifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, store.NewProject{Name: "Home"})
	require.NoError(t, err)

	newTask(t, s, store.NewTask{Title: "late", DueDate: strp("2023-12-01"), ProjectID: &p.ID})
	newTask(t, s, store.NewTask{Title: "done late", DueDate: strp("2023-12-01"), Status: store.StatusCompleted, ProjectID: &p.ID})
	loose := newTask(t, s, store.NewTask{Title: "loose"})

	_, err = s.CreateTask(ctx, store.NewTask{Title: "orphan", ProjectID: new(int64)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	moved, err := s.MoveTask(ctx, loose.ID, &p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, *moved.ProjectID)

	st, err := s.ProjectStats(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ProjectStats{ProjectID: p.ID, Total: 3, Completed: 1, Overdue: 1}, *st)

	unfiled, err := s.TasksByProject(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, unfiled)

	require.NoError(t, s.DeleteProject(ctx, p.ID))
	unfiled, err = s.TasksByProject(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, unfiled, 3, "tasks outlive their project")

	_, err = s.ProjectStats(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// aheadOfUTC is a clock whose local date is one day ahead of its UTC date.
var aheadOfUTC = time.Date(2024, 1, 1, 8, 0, 0, 0, time.FixedZone("AEST", 10*3600))

func TestTask_FiltersUseLocalDate(t *testing.T) {
	s := setupStoreAt(t, func() time.Time { return aheadOfUTC })
	ctx := context.Background()

	newTask(t, s, store.NewTask{Title: "new year", DueDate: strp("2024-01-01")})
	newTask(t, s, store.NewTask{Title: "sunday", DueDate: strp("2024-01-07")})
	newTask(t, s, store.NewTask{Title: "last year", DueDate: strp("2023-12-31")})

	today, err := s.TasksByFilter(ctx, store.FilterToday)
	require.NoError(t, err)
	assert.Equal(t, []string{"new year"}, taskTitles(today))

	week, err := s.TasksByFilter(ctx, store.FilterWeek)
	require.NoError(t, err)
	assert.Equal(t, []string{"new year", "sunday"}, taskTitles(week))
}

func TestProject_OverdueUsesLocalDate(t *testing.T) {
	s := setupStoreAt(t, func() time.Time { return aheadOfUTC })
	ctx := context.Background()

	p, err := s.CreateProject(ctx, store.NewProject{Name: "Move"})
	require.NoError(t, err)
	newTask(t, s, store.NewTask{Title: "due now", DueDate: strp("2024-01-01"), ProjectID: &p.ID})
	newTask(t, s, store.NewTask{Title: "late", DueDate: strp("2023-12-31"), ProjectID: &p.ID})

	st, err := s.ProjectStats(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Overdue)
}
