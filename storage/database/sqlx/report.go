package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/report"
)

var reportOrderings = map[string]string{
	"incident_date": "incident_date",
	"student_name":  "LOWER(student_name)",
	"site":          "site",
	"status":        "status",
	"report_type":   "report_type",
	"created_at":    "created_at",
	"updated_at":    "updated_at",
}

// reportRow keeps the filterable columns next to the JSON document of the whole record.
type reportRow struct {
	ID           string    `db:"id"`
	ReportType   string    `db:"report_type"`
	Status       string    `db:"status"`
	StudentID    string    `db:"student_id"`
	StudentName  string    `db:"student_name"`
	Site         string    `db:"site"`
	Location     string    `db:"location"`
	IncidentDate string    `db:"incident_date"`
	CreatedBy    string    `db:"created_by"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	Data         string    `db:"data"`
}

func toReportRow(rec report.Record) (reportRow, error) {
	c := rec.Common()
	if c == nil {
		return reportRow{}, report.ErrEmptyRecord
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return reportRow{}, errors.Wrap(err, "encoding report")
	}
	return reportRow{
		ID:           c.ID,
		ReportType:   string(rec.Type),
		Status:       c.Status,
		StudentID:    c.StudentID,
		StudentName:  c.StudentName,
		Site:         c.Site,
		Location:     c.Location,
		IncidentDate: c.IncidentDate,
		CreatedBy:    c.CreatedBy,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
		Data:         string(data),
	}, nil
}

func (r reportRow) record() (report.Record, error) {
	var rec report.Record
	if err := json.Unmarshal([]byte(r.Data), &rec); err != nil {
		return report.Record{}, errors.Wrapf(err, "decoding report %s", r.ID)
	}
	return rec, nil
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(ctx context.Context, rec report.Record) (report.Record, error) {
	row, err := toReportRow(rec)
	if err != nil {
		return report.Record{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		"INSERT INTO reports (id, report_type, status, student_id, student_name, site, location, incident_date, "+
			"created_by, created_at, updated_at, data) VALUES (:id, :report_type, :status, :student_id, :student_name, "+
			":site, :location, :incident_date, :created_by, :created_at, :updated_at, :data)",
		row,
	)
	if err != nil {
		return report.Record{}, errors.Wrap(err, "inserting report")
	}
	return rec, nil
}

func (repo *reportRepository) GetReportByID(ctx context.Context, id string) (report.Record, error) {
	var row reportRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM reports WHERE id = ?"), id); err != nil {
		return report.Record{}, notFoundOr(err, report.ErrNotFound)
	}
	return row.record()
}

func (repo *reportRepository) QueryReports(
	ctx context.Context,
	filter report.QueryFilter,
	orderings ...core.DBOrdering,
) ([]report.Record, error) {
	var w where
	w.search(filter.Search, "student_name", "site", "location")
	if filter.Type != "" {
		w.add("report_type = ?", string(filter.Type))
	}
	w.in("status", filter.Statuses)
	if filter.Student != "" {
		w.add("student_id = ?", filter.Student)
	}
	if filter.From != "" {
		w.add("incident_date >= ?", filter.From)
	}
	if filter.To != "" {
		w.add("incident_date < ?", filter.UpperDate())
	}

	var rows []reportRow
	q := "SELECT * FROM reports" + w.String() +
		core.OrderByClause(orderings, reportOrderings, core.DBOrdering{Field: "incident_date", Ascending: false})
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting reports")
	}
	recs := make([]report.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo *reportRepository) UpdateReport(ctx context.Context, rec report.Record) (report.Record, error) {
	row, err := toReportRow(rec)
	if err != nil {
		return report.Record{}, err
	}
	err = namedUpdate(ctx, repo.db,
		"UPDATE reports SET report_type = :report_type, status = :status, student_id = :student_id, "+
			"student_name = :student_name, site = :site, location = :location, incident_date = :incident_date, "+
			"updated_at = :updated_at, data = :data WHERE id = :id",
		row, report.ErrNotFound,
	)
	if err != nil {
		return report.Record{}, err
	}
	return rec, nil
}

func (repo *reportRepository) DeleteReportsByID(ctx context.Context, ids ...string) error {
	return deleteByIDs(ctx, repo.db, "reports", ids)
}
