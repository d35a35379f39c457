package inmemdb

import (
	"context"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/report"
)

func reportField(get func(c *report.Common) string) comparator[report.Record] {
	return func(a, b report.Record) int { return compareStrings(get(a.Common()), get(b.Common())) }
}

var reportOrderings = map[string]comparator[report.Record]{
	"incident_date": reportField(func(c *report.Common) string { return c.IncidentDate }),
	"student_name":  reportField(func(c *report.Common) string { return c.StudentName }),
	"site":          reportField(func(c *report.Common) string { return c.Site }),
	"status":        reportField(func(c *report.Common) string { return c.Status }),
	"report_type": func(a, b report.Record) int {
		return compareStrings(string(a.Type), string(b.Type))
	},
	"created_at": func(a, b report.Record) int { return a.Common().CreatedAt.Compare(b.Common().CreatedAt) },
	"updated_at": func(a, b report.Record) int { return a.Common().UpdatedAt.Compare(b.Common().UpdatedAt) },
}

type reportRepository struct {
	db *table[report.Record]
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db.report}
}

// detach deep-copies rec so callers never share it with the table.
func detach(rec report.Record) report.Record {
	return rec.Clone()
}

func (repo *reportRepository) CreateReport(_ context.Context, rec report.Record) (report.Record, error) {
	if rec.Common() == nil {
		return report.Record{}, report.ErrEmptyRecord
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	rec = detach(rec)
	repo.db.insert(rec.ID(), rec)
	return detach(rec), nil
}

func (repo *reportRepository) GetReportByID(_ context.Context, id string) (report.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.get(id); ok {
		return detach(rec), nil
	}
	return report.Record{}, report.ErrNotFound
}

func (repo *reportRepository) QueryReports(
	_ context.Context,
	filter report.QueryFilter,
	orderings ...core.DBOrdering,
) ([]report.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := repo.db.filter(filter.Match)
	for i := range recs {
		recs[i] = detach(recs[i])
	}
	sortRows(recs, orderings, reportOrderings)
	return recs, nil
}

func (repo *reportRepository) UpdateReport(_ context.Context, rec report.Record) (report.Record, error) {
	if rec.Common() == nil {
		return report.Record{}, report.ErrEmptyRecord
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.get(rec.ID()); !ok {
		return report.Record{}, report.ErrNotFound
	}
	rec = detach(rec)
	repo.db.insert(rec.ID(), rec)
	return detach(rec), nil
}

func (repo *reportRepository) DeleteReportsByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.delete(ids...)
	return nil
}
