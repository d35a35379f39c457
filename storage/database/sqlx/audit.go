package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core/audit"
)

type eventRow struct {
	ID       string    `db:"id"`
	ReportID string    `db:"report_id"`
	Action   string    `db:"action"`
	Actor    string    `db:"actor"`
	At       time.Time `db:"at"`
	Details  string    `db:"details"`
}

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateEvent(ctx context.Context, ev audit.Event) (audit.Event, error) {
	row := eventRow(ev)
	row.At = row.At.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO audit_events (id, report_id, action, actor, at, details) "+
			"VALUES (:id, :report_id, :action, :actor, :at, :details)",
		row,
	)
	if err != nil {
		return audit.Event{}, errors.Wrap(err, "inserting audit event")
	}
	return ev, nil
}

func (repo *auditRepository) QueryEventsByReport(ctx context.Context, reportID string) ([]audit.Event, error) {
	var rows []eventRow
	q := repo.db.Rebind("SELECT id, report_id, action, actor, at, details FROM audit_events WHERE report_id = ? ORDER BY at")
	if err := repo.db.SelectContext(ctx, &rows, q, reportID); err != nil {
		return nil, errors.Wrap(err, "selecting audit events")
	}
	events := make([]audit.Event, 0, len(rows))
	for _, row := range rows {
		ev := audit.Event(row)
		ev.At = ev.At.UTC()
		events = append(events, ev)
	}
	return events, nil
}
