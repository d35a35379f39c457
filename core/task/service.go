package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/berguardian/core"
)

var (
	// errors
	ErrNotFound      = errors.New("task not found")
	ErrAlreadyClosed = errors.New("task is already completed or archived")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task) (Task, error)
		GetTaskByID(ctx context.Context, id string) (Task, error)
		// QueryTasks applies AND operation on available QueryFilter fields.
		QueryTasks(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		DeleteTasksByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nt NewTask) (Task, error) {
	if err := nt.Validate(); err != nil {
		return Task{}, err
	}
	return svc.repo.CreateTask(ctx, Task{
		ID:          uuid.NewString(),
		ReportID:    nt.ReportID,
		Description: nt.Description,
		TaskType:    nt.TaskType,
		StudentName: nt.StudentName,
		Site:        nt.Site,
		DueDate:     nt.DueDate.UTC(),
		Priority:    nt.Priority,
		AssignedTo:  nt.AssignedTo,
		Status:      StatusPending,
		CreatedAt:   nowFunc(),
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTaskByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Task, error) {
	filter.Clean()
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "due_date", Ascending: true}}
	}
	return svc.repo.QueryTasks(ctx, filter, orderings...)
}

func (svc *Service) Update(ctx context.Context, id string, ut UpdateTask) (Task, error) {
	if err := ut.Validate(); err != nil {
		return Task{}, err
	}
	orig, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	t := ut.apply(orig)
	if t.Status == StatusCompleted && orig.Status != StatusCompleted {
		now := nowFunc()
		t.CompletedAt = &now
	} else if t.Status != StatusCompleted {
		t.CompletedAt = nil
	}
	return svc.repo.UpdateTask(ctx, t)
}

func (svc *Service) close(ctx context.Context, id, status string) (Task, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if !t.IsOpen() {
		return Task{}, ErrAlreadyClosed
	}
	t.Status = status
	if status == StatusCompleted {
		now := nowFunc()
		t.CompletedAt = &now
	}
	return svc.repo.UpdateTask(ctx, t)
}

func (svc *Service) Complete(ctx context.Context, id string) (Task, error) {
	return svc.close(ctx, id, StatusCompleted)
}

func (svc *Service) Archive(ctx context.Context, id string) (Task, error) {
	return svc.close(ctx, id, StatusArchived)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteTasksByID(ctx, ids...)
}

// MarkOverdue flags the pending and in-progress tasks due before now as overdue.
// It returns the number of tasks flagged.
func (svc *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	due, err := svc.repo.QueryTasks(ctx, QueryFilter{
		Statuses:  []string{StatusPending, StatusInProgress},
		DueBefore: now.UTC(),
	})
	if err != nil {
		return 0, err
	}
	for _, t := range due {
		t.Status = StatusOverdue
		if _, err := svc.repo.UpdateTask(ctx, t); err != nil {
			return 0, err
		}
	}
	return len(due), nil
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	tasks, err := svc.repo.QueryTasks(ctx, QueryFilter{})
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			stats.Pending++
		case StatusInProgress:
			stats.InProgress++
		case StatusOverdue:
			stats.Overdue++
		case StatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}
