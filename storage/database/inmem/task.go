package inmemdb

import (
	"context"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/task"
)

var taskOrderings = map[string]comparator[task.Task]{
	"due_date":     func(a, b task.Task) int { return a.DueDate.Compare(b.DueDate) },
	"priority":     func(a, b task.Task) int { return task.PriorityRank(a.Priority) - task.PriorityRank(b.Priority) },
	"status":       func(a, b task.Task) int { return compareStrings(a.Status, b.Status) },
	"student_name": func(a, b task.Task) int { return compareStrings(a.StudentName, b.StudentName) },
	"created_at":   func(a, b task.Task) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type taskRepository struct {
	db *table[task.Task]
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) task.Repository {
	return &taskRepository{db: db.task}
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.insert(t.ID, t)
	return t, nil
}

func (repo *taskRepository) GetTaskByID(_ context.Context, id string) (task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.get(id); ok {
		return t, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) QueryTasks(_ context.Context, filter task.QueryFilter, orderings ...core.DBOrdering) ([]task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tasks := repo.db.filter(filter.Match)
	sortRows(tasks, orderings, taskOrderings)
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.get(t.ID); !ok {
		return task.Task{}, task.ErrNotFound
	}
	repo.db.insert(t.ID, t)
	return t, nil
}

func (repo *taskRepository) DeleteTasksByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.delete(ids...)
	return nil
}
