package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/audit"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/wizard"
)

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

// fields a draft needs to be saved
var draftRequired = []string{"report_type", "student_id"}

type (
	Repository interface {
		CreateReport(ctx context.Context, rec Record) (Record, error)
		GetReportByID(ctx context.Context, id string) (Record, error)
		// QueryReports applies AND operation on available QueryFilter fields.
		QueryReports(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Record, error)
		UpdateReport(ctx context.Context, rec Record) (Record, error)
		DeleteReportsByID(ctx context.Context, ids ...string) error
	}

	StudentGetter interface {
		Get(ctx context.Context, id string) (student.Student, error)
	}

	TaskStore interface {
		Create(ctx context.Context, nt task.NewTask) (task.Task, error)
		Query(ctx context.Context, filter task.QueryFilter, orderings ...core.DBOrdering) ([]task.Task, error)
	}

	AuditRecorder interface {
		Record(ctx context.Context, ev audit.Event) (audit.Event, error)
	}

	// SaveRequest is a wizard state to persist as a draft or a submitted report.
	// Token identifies the submission of a report that has no id yet.
	SaveRequest struct {
		ID     string           `json:"-"`
		Token  string           `json:"token"`
		State  wizard.FormState `json:"state"`
		Status string           `json:"status"`
	}

	Service struct {
		engine   *wizard.Engine
		repo     Repository
		students StudentGetter
		tasks    TaskStore
		audit    AuditRecorder
		mailSvc  core.EmailService
		logger   core.Logger

		mu       sync.Mutex
		inFlight map[string]struct{}
	}
)

func NewService(
	engine *wizard.Engine,
	repo Repository,
	students StudentGetter,
	tasks TaskStore,
	auditor AuditRecorder,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		engine:   engine,
		repo:     repo,
		students: students,
		tasks:    tasks,
		audit:    auditor,
		mailSvc:  mailSvc,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// acquire marks key as being saved; the returned func releases it.
func (svc *Service) acquire(key string) (func(), error) {
	if key == "" {
		return func() {}, nil
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if _, busy := svc.inFlight[key]; busy {
		return nil, ErrSubmitInProgress
	}
	svc.inFlight[key] = struct{}{}
	return func() {
		svc.mu.Lock()
		delete(svc.inFlight, key)
		svc.mu.Unlock()
	}, nil
}

func (svc *Service) validate(state wizard.FormState, status string) error {
	if status == StatusSubmitted {
		return svc.engine.ValidateAll(state).Err()
	}
	cfg := svc.engine.Config()
	fields := make([]wizard.Field, 0, len(draftRequired))
	for _, key := range draftRequired {
		if f, ok := cfg.Field(key); ok {
			f := *f
			f.Required = true
			fields = append(fields, f)
		}
	}
	return svc.engine.ValidateStep(fields, state).Err()
}

// Save validates and persists a wizard state. Submitting a report for the first time creates its
// follow-up tasks. On failure the caller keeps its state and may retry.
func (svc *Service) Save(ctx context.Context, actor string, req SaveRequest) (Record, error) {
	if req.Status == "" {
		req.Status = StatusDraft
	}
	if req.Status != StatusDraft && req.Status != StatusSubmitted {
		return Record{}, core.NewValidationError(ErrInvalidStatus, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}

	key := req.ID
	if key == "" {
		key = req.Token
	}
	release, err := svc.acquire(key)
	if err != nil {
		return Record{}, err
	}
	defer release()

	state := svc.engine.Initialize(req.State)
	if err := svc.validate(state, req.Status); err != nil {
		return Record{}, err
	}

	rec, err := ToPersisted(state)
	if err != nil {
		return Record{}, core.NewValidationError(err, core.FieldError{Field: "report_type", Error: err.Error()})
	}
	common := rec.Common()

	stu, err := svc.students.Get(ctx, common.StudentID)
	switch {
	case err == nil:
		common.StudentName = stu.DisplayName()
		if common.Site == "" {
			common.Site = stu.Site
		}
	case err == student.ErrNotFound:
		return Record{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
	default:
		return Record{}, errors.Wrap(err, "resolving student")
	}

	now := nowFunc()
	common.UpdatedAt = now

	var prevStatus string
	if req.ID == "" {
		common.ID = uuid.NewString()
		common.CreatedBy = actor
		common.CreatedAt = now
	} else {
		orig, err := svc.repo.GetReportByID(ctx, req.ID)
		if err != nil {
			return Record{}, err
		}
		origCommon := orig.Common()
		prevStatus = origCommon.Status
		common.ID = origCommon.ID
		common.CreatedBy = origCommon.CreatedBy
		common.CreatedAt = origCommon.CreatedAt
	}

	// a first submission keeps its previous status until the follow-up tasks exist
	submitting := req.Status == StatusSubmitted && prevStatus != StatusSubmitted
	common.Status = req.Status
	if submitting {
		common.Status = prevStatus
		if common.Status == "" {
			common.Status = StatusDraft
		}
	}

	action := audit.ActionUpdated
	if req.ID == "" {
		action = audit.ActionCreated
		if rec, err = svc.repo.CreateReport(ctx, rec); err != nil {
			return Record{}, errors.Wrap(err, "creating report")
		}
	} else if rec, err = svc.repo.UpdateReport(ctx, rec); err != nil {
		return Record{}, errors.Wrap(err, "updating report")
	}

	if submitting {
		if err := svc.createFollowUpTasks(ctx, rec, now); err != nil {
			svc.record(ctx, rec.ID(), action, actor, fmt.Sprintf("%s saved as %s, submission failed", rec.Type.Label(), rec.Common().Status))
			return rec, err
		}
		held := rec.Common().Status
		rec.Common().Status = StatusSubmitted
		submitted, err := svc.repo.UpdateReport(ctx, rec)
		if err != nil {
			rec.Common().Status = held
			return rec, errors.Wrap(err, "submitting report")
		}
		rec = submitted
		action = audit.ActionSubmitted
	}
	svc.record(ctx, rec.ID(), action, actor, fmt.Sprintf("%s saved as %s", rec.Type.Label(), req.Status))
	return rec, nil
}

func (svc *Service) createFollowUpTasks(ctx context.Context, rec Record, now time.Time) error {
	c := rec.Common()
	followUps := []task.NewTask{
		{
			ReportID:    c.ID,
			Description: "Notify guardian of incident",
			TaskType:    task.TypeGuardianNotification,
			StudentName: c.StudentName,
			Site:        c.Site,
			DueDate:     now.AddDate(0, 0, 1),
			Priority:    task.PriorityHigh,
		},
		{
			ReportID:    c.ID,
			Description: fmt.Sprintf("Review submitted %s", rec.Type.Label()),
			TaskType:    task.TypeReview,
			StudentName: c.StudentName,
			Site:        c.Site,
			DueDate:     task.AddSchoolDays(now, 1),
			Priority:    task.PriorityHigh,
		},
	}
	// tasks left by an earlier failed submission are kept
	existing, err := svc.tasks.Query(ctx, task.QueryFilter{ReportID: c.ID})
	if err != nil {
		return errors.Wrap(err, "listing follow-up tasks")
	}
	have := make(map[string]bool, len(existing))
	for _, tk := range existing {
		have[tk.TaskType] = true
	}
	for _, nt := range followUps {
		if have[nt.TaskType] {
			continue
		}
		if _, err := svc.tasks.Create(ctx, nt); err != nil {
			return errors.Wrapf(err, "creating %s task", nt.TaskType)
		}
	}
	return nil
}

// record stores an audit event; failures are logged, never returned.
func (svc *Service) record(ctx context.Context, reportID, action, actor, details string) {
	if _, err := svc.audit.Record(ctx, audit.Event{ReportID: reportID, Action: action, Actor: actor, Details: details}); err != nil {
		svc.logger.Error(fmt.Sprintf("recording audit event %q for report %s: %v", action, reportID, err), err)
	}
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetReportByID(ctx, id)
}

// Form returns the wizard state to edit a persisted report with.
func (svc *Service) Form(ctx context.Context, id string) (wizard.FormState, error) {
	rec, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.engine.Initialize(FromPersisted(rec)), nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Record, error) {
	filter.Clean()
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "incident_date", Ascending: false}}
	}
	return svc.repo.QueryReports(ctx, filter, orderings...)
}

// ReviewQueue lists the submitted reports of both types, latest incident first.
func (svc *Service) ReviewQueue(ctx context.Context) ([]Record, error) {
	return svc.repo.QueryReports(
		ctx,
		QueryFilter{Statuses: []string{StatusSubmitted}},
		core.DBOrdering{Field: "incident_date", Ascending: false},
	)
}

func (svc *Service) UpdateStatus(ctx context.Context, actor, id, status string) (Record, error) {
	status = core.CleanString(status, true /* lower */)
	if !IsValidStatus(status) {
		return Record{}, core.NewValidationError(ErrInvalidStatus, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}
	rec, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	common := rec.Common()
	prev := common.Status
	if prev == status {
		return rec, nil
	}
	common.Status = status
	common.UpdatedAt = nowFunc()
	if rec, err = svc.repo.UpdateReport(ctx, rec); err != nil {
		return Record{}, errors.Wrap(err, "updating report status")
	}
	svc.record(ctx, id, audit.ActionStatusChanged, actor, fmt.Sprintf("%s -> %s", prev, status))
	return rec, nil
}

func (svc *Service) Delete(ctx context.Context, actor string, ids ...string) error {
	if err := svc.repo.DeleteReportsByID(ctx, ids...); err != nil {
		return err
	}
	for _, id := range ids {
		svc.record(ctx, id, audit.ActionDeleted, actor, "")
	}
	return nil
}
