package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/storage/database/inmem"
)

var now = time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) (*task.Service, []task.Task) {
	t.Helper()
	svc := task.NewService(inmemdb.NewTaskRepository(inmemdb.Open()))
	ctx := context.Background()

	var tasks []task.Task
	for _, nt := range []task.NewTask{
		{Description: "Notify guardian", TaskType: task.TypeGuardianNotification, DueDate: now.Add(-time.Hour), Priority: task.PriorityHigh},
		{Description: "Review report", TaskType: task.TypeReview, DueDate: now.Add(time.Hour)},
		{Description: "Submit to district", TaskType: task.TypeDistrictSubmission, DueDate: now.Add(-48 * time.Hour), Priority: task.PriorityUrgent},
	} {
		tk, err := svc.Create(ctx, nt)
		require.NoError(t, err)
		tasks = append(tasks, tk)
	}
	return svc, tasks
}

func TestService_Create_defaults(t *testing.T) {
	_, tasks := seed(t)
	assert.Equal(t, task.StatusPending, tasks[1].Status)
	assert.Equal(t, task.PriorityMedium, tasks[1].Priority)
	assert.Nil(t, tasks[1].CompletedAt)
}

func TestService_MarkOverdue(t *testing.T) {
	svc, tasks := seed(t)
	ctx := context.Background()

	_, err := svc.Complete(ctx, tasks[2].ID)
	require.NoError(t, err)

	n, err := svc.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "completed tasks are never overdue")

	got, err := svc.Get(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusOverdue, got.Status)

	n, err = svc.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.Stats{Pending: 1, Overdue: 1, Completed: 1}, stats)
}

func TestService_close(t *testing.T) {
	svc, tasks := seed(t)
	ctx := context.Background()

	done, err := svc.Complete(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, err = svc.Complete(ctx, tasks[0].ID)
	assert.Equal(t, task.ErrAlreadyClosed, err)
	_, err = svc.Archive(ctx, tasks[0].ID)
	assert.Equal(t, task.ErrAlreadyClosed, err)

	_, err = svc.Complete(ctx, "missing")
	assert.Equal(t, task.ErrNotFound, err)

	// reopening clears the completion time
	reopened, err := svc.Update(ctx, tasks[0].ID, task.UpdateTask{Status: task.StatusInProgress})
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)
}

func TestService_Query(t *testing.T) {
	svc, tasks := seed(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter task.QueryFilter
		want   []string
	}{
		{name: "due date ascending", want: []string{tasks[2].ID, tasks[0].ID, tasks[1].ID}},
		{name: "priority", filter: task.QueryFilter{Priority: " HIGH "}, want: []string{tasks[0].ID}},
		{name: "search", filter: task.QueryFilter{Search: "district"}, want: []string{tasks[2].ID}},
		{name: "due before", filter: task.QueryFilter{DueBefore: now}, want: []string{tasks[2].ID, tasks[0].ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, tk := range got {
				ids = append(ids, tk.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
