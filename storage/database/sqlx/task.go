package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/task"
)

const taskColumns = "id, report_id, description, task_type, student_name, site, due_date, priority, " +
	"assigned_to, status, completed_at, created_at"

var taskOrderings = map[string]string{
	"due_date":     "due_date",
	"priority":     priorityRankExpr(),
	"status":       "status",
	"student_name": "LOWER(student_name)",
	"created_at":   "created_at",
}

// priorityRankExpr ranks the priority column the way task.PriorityRank does.
func priorityRankExpr() string {
	var b strings.Builder
	b.WriteString("CASE priority")
	for i, p := range task.Priorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, i)
	}
	b.WriteString(" ELSE -1 END")
	return b.String()
}

type taskRow struct {
	ID          string    `db:"id"`
	ReportID    string    `db:"report_id"`
	Description string    `db:"description"`
	TaskType    string    `db:"task_type"`
	StudentName string    `db:"student_name"`
	Site        string    `db:"site"`
	DueDate     time.Time `db:"due_date"`
	Priority    string    `db:"priority"`
	AssignedTo  string    `db:"assigned_to"`
	Status      string    `db:"status"`
	CompletedAt null.Time `db:"completed_at"`
	CreatedAt   time.Time `db:"created_at"`
}

func toTaskRow(t task.Task) taskRow {
	return taskRow{
		ID:          t.ID,
		ReportID:    t.ReportID,
		Description: t.Description,
		TaskType:    t.TaskType,
		StudentName: t.StudentName,
		Site:        t.Site,
		DueDate:     t.DueDate.UTC(),
		Priority:    t.Priority,
		AssignedTo:  t.AssignedTo,
		Status:      t.Status,
		CompletedAt: null.TimeFromPtr(t.CompletedAt),
		CreatedAt:   t.CreatedAt.UTC(),
	}
}

func (r taskRow) task() task.Task {
	return task.Task{
		ID:          r.ID,
		ReportID:    r.ReportID,
		Description: r.Description,
		TaskType:    r.TaskType,
		StudentName: r.StudentName,
		Site:        r.Site,
		DueDate:     r.DueDate.UTC(),
		Priority:    r.Priority,
		AssignedTo:  r.AssignedTo,
		Status:      r.Status,
		CompletedAt: utcPtr(r.CompletedAt),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) task.Repository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES "+
			"(:id, :report_id, :description, :task_type, :student_name, :site, :due_date, :priority, "+
			":assigned_to, :status, :completed_at, :created_at)",
		toTaskRow(t),
	)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo *taskRepository) GetTaskByID(ctx context.Context, id string) (task.Task, error) {
	var row taskRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+taskColumns+" FROM tasks WHERE id = ?"), id); err != nil {
		return task.Task{}, notFoundOr(err, task.ErrNotFound)
	}
	return row.task(), nil
}

func (repo *taskRepository) QueryTasks(ctx context.Context, filter task.QueryFilter, orderings ...core.DBOrdering) ([]task.Task, error) {
	var w where
	w.search(filter.Search, "description", "student_name", "site")
	if filter.ReportID != "" {
		w.add("report_id = ?", filter.ReportID)
	}
	w.in("status", filter.Statuses)
	if filter.Priority != "" {
		w.add("priority = ?", filter.Priority)
	}
	if filter.AssignedTo != "" {
		w.add("assigned_to = ?", filter.AssignedTo)
	}
	if !filter.DueBefore.IsZero() {
		w.add("due_date < ?", filter.DueBefore.UTC())
	}

	var rows []taskRow
	q := "SELECT " + taskColumns + " FROM tasks" + w.String() +
		core.OrderByClause(orderings, taskOrderings, core.DBOrdering{Field: "due_date", Ascending: true})
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.task())
	}
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	err := namedUpdate(ctx, repo.db,
		"UPDATE tasks SET description = :description, task_type = :task_type, due_date = :due_date, "+
			"priority = :priority, assigned_to = :assigned_to, status = :status, completed_at = :completed_at "+
			"WHERE id = :id",
		toTaskRow(t), task.ErrNotFound,
	)
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (repo *taskRepository) DeleteTasksByID(ctx context.Context, ids ...string) error {
	return deleteByIDs(ctx, repo.db, "tasks", ids)
}
