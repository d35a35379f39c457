package inmemdb

import (
	"context"

	"github.com/trezcool/berguardian/core/audit"
)

type auditRepository struct {
	db *table[audit.Event]
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEvent(_ context.Context, ev audit.Event) (audit.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.insert(ev.ID, ev)
	return ev, nil
}

// QueryEventsByReport relies on insertion order: events are recorded as they happen.
func (repo *auditRepository) QueryEventsByReport(_ context.Context, reportID string) ([]audit.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.db.filter(func(ev audit.Event) bool { return ev.ReportID == reportID }), nil
}
