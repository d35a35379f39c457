package task

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/berguardian/core"
)

// Task types
const (
	TypeGuardianNotification = "guardian_notification"
	TypeDebriefMeeting       = "debrief_meeting"
	TypeDistrictSubmission   = "district_submission"
	TypeFollowUp             = "follow_up"
	TypeReview               = "review"
	TypeOther                = "other"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOverdue    = "overdue"
	StatusArchived   = "archived"
)

var (
	Types      = []string{TypeGuardianNotification, TypeDebriefMeeting, TypeDistrictSubmission, TypeFollowUp, TypeReview, TypeOther}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	Statuses   = []string{StatusPending, StatusInProgress, StatusCompleted, StatusOverdue, StatusArchived}

	taskTypeTag  = "tasktype"
	priorityTag  = "taskpriority"
	statusTag    = "taskstatus"
	invalidText  = "invalid value"
	taskTagLists = map[string][]string{taskTypeTag: Types, priorityTag: Priorities, statusTag: Statuses}
)

func init() {
	for tag, values := range taskTagLists {
		_ = core.Validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return core.StringInSlice(fl.Field().String(), values)
		})
		core.RegisterCustomTranslation(tag, invalidText)
	}
}

type Task struct {
	ID          string     `json:"id"`
	ReportID    string     `json:"report_id"`
	Description string     `json:"description"`
	TaskType    string     `json:"task_type"`
	StudentName string     `json:"student_name"`
	Site        string     `json:"site"`
	DueDate     time.Time  `json:"due_date"` // UTC
	Priority    string     `json:"priority"`
	AssignedTo  string     `json:"assigned_to"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"` // UTC
	CreatedAt   time.Time  `json:"created_at"`   // UTC
}

// IsOpen reports whether the task still awaits completion.
func (t Task) IsOpen() bool {
	return t.Status == StatusPending || t.Status == StatusInProgress || t.Status == StatusOverdue
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	ReportID    string    `json:"report_id"`
	Description string    `json:"description" validate:"required"`
	TaskType    string    `json:"task_type" validate:"required,tasktype"`
	StudentName string    `json:"student_name"`
	Site        string    `json:"site"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Priority    string    `json:"priority" validate:"omitempty,taskpriority"`
	AssignedTo  string    `json:"assigned_to" validate:"omitempty,email"`
}

func (nt *NewTask) Validate() error {
	nt.Description = core.CleanString(nt.Description)
	nt.TaskType = core.CleanString(nt.TaskType, true /* lower */)
	nt.Priority = core.CleanString(nt.Priority, true /* lower */)
	nt.AssignedTo = core.CleanString(nt.AssignedTo, true /* lower */)
	if nt.TaskType == "" {
		nt.TaskType = TypeFollowUp
	}
	if nt.Priority == "" {
		nt.Priority = PriorityMedium
	}
	return core.Validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an existing Task.
// Zero fields keep their current value.
type UpdateTask struct {
	Description string    `json:"description"`
	TaskType    string    `json:"task_type" validate:"omitempty,tasktype"`
	DueDate     time.Time `json:"due_date"`
	Priority    string    `json:"priority" validate:"omitempty,taskpriority"`
	AssignedTo  string    `json:"assigned_to" validate:"omitempty,email"`
	Status      string    `json:"status" validate:"omitempty,taskstatus"`
}

func (ut *UpdateTask) Validate() error {
	ut.Description = core.CleanString(ut.Description)
	ut.TaskType = core.CleanString(ut.TaskType, true /* lower */)
	ut.Priority = core.CleanString(ut.Priority, true /* lower */)
	ut.AssignedTo = core.CleanString(ut.AssignedTo, true /* lower */)
	ut.Status = core.CleanString(ut.Status, true /* lower */)
	return core.Validate.Struct(ut)
}

func (ut UpdateTask) apply(t Task) Task {
	if ut.Description != "" {
		t.Description = ut.Description
	}
	if ut.TaskType != "" {
		t.TaskType = ut.TaskType
	}
	if !ut.DueDate.IsZero() {
		t.DueDate = ut.DueDate.UTC()
	}
	if ut.Priority != "" {
		t.Priority = ut.Priority
	}
	if ut.AssignedTo != "" {
		t.AssignedTo = ut.AssignedTo
	}
	if ut.Status != "" {
		t.Status = ut.Status
	}
	return t
}

type QueryFilter struct {
	Search     string    `query:"search"` // description, student name or site
	ReportID   string    `query:"report_id"`
	Statuses   []string  `query:"status"`
	Priority   string    `query:"priority"`
	AssignedTo string    `query:"assigned_to"`
	DueBefore  time.Time `query:"due_before"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ReportID == "" && qf.Statuses == nil && qf.Priority == "" &&
		qf.AssignedTo == "" && qf.DueBefore.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Priority = core.CleanString(qf.Priority, true /* lower */)
	qf.AssignedTo = core.CleanString(qf.AssignedTo, true /* lower */)
}

func (qf QueryFilter) Match(t Task) bool {
	if qf.ReportID != "" && t.ReportID != qf.ReportID {
		return false
	}
	if len(qf.Statuses) > 0 && !core.StringInSlice(t.Status, qf.Statuses) {
		return false
	}
	if qf.Priority != "" && t.Priority != qf.Priority {
		return false
	}
	if qf.AssignedTo != "" && t.AssignedTo != qf.AssignedTo {
		return false
	}
	if !qf.DueBefore.IsZero() && !t.DueDate.Before(qf.DueBefore) {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(t.Description), search) ||
			strings.Contains(strings.ToLower(t.StudentName), search) ||
			strings.Contains(strings.ToLower(t.Site), search)
	}
	return true
}

type Stats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
	Completed  int `json:"completed"`
}

// AddSchoolDays returns t moved forward by n school days, skipping Saturdays and Sundays.
func AddSchoolDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}

// PriorityRank orders priorities from low (0) to urgent; unknown priorities rank lowest.
func PriorityRank(priority string) int {
	for i, p := range Priorities {
		if p == priority {
			return i
		}
	}
	return -1
}
