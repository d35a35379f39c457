// Package audit keeps the trail of what happened to a report and who did it.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Actions
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionSubmitted     = "submitted"
	ActionStatusChanged = "status_changed"
	ActionEmailed       = "emailed"
	ActionDeleted       = "deleted"
)

var (
	ErrMissingReport = errors.New("audit event without report")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Event struct {
		ID       string    `json:"id"`
		ReportID string    `json:"report_id"`
		Action   string    `json:"action"`
		Actor    string    `json:"actor"` // user email
		At       time.Time `json:"at"`    // UTC
		Details  string    `json:"details"`
	}

	Repository interface {
		CreateEvent(ctx context.Context, ev Event) (Event, error)
		// QueryEventsByReport returns the events of a report, oldest first.
		QueryEventsByReport(ctx context.Context, reportID string) ([]Event, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record stores ev, stamping its id and time when unset.
func (svc *Service) Record(ctx context.Context, ev Event) (Event, error) {
	if ev.ReportID == "" {
		return Event{}, ErrMissingReport
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = nowFunc()
	}
	return svc.repo.CreateEvent(ctx, ev)
}

func (svc *Service) ListByReport(ctx context.Context, reportID string) ([]Event, error) {
	return svc.repo.QueryEventsByReport(ctx, reportID)
}
