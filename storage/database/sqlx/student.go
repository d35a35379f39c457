package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/student"
)

const studentColumns = "id, student_id, first_name, last_name, dob, grade_level, site, iep_status, " +
	"emergency_contact, emergency_phone, active, archived_date, archived_reason, created_at, updated_at"

var studentOrderings = map[string]string{
	"student_id":  "student_id",
	"first_name":  "LOWER(first_name)",
	"last_name":   "LOWER(last_name)",
	"grade_level": "grade_level",
	"site":        "site",
	"active":      "active",
	"created_at":  "created_at",
}

type studentRow struct {
	ID               string    `db:"id"`
	StudentID        string    `db:"student_id"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	DOB              string    `db:"dob"`
	GradeLevel       string    `db:"grade_level"`
	Site             string    `db:"site"`
	IEPStatus        bool      `db:"iep_status"`
	EmergencyContact string    `db:"emergency_contact"`
	EmergencyPhone   string    `db:"emergency_phone"`
	Active           bool      `db:"active"`
	ArchivedDate     null.Time `db:"archived_date"`
	ArchivedReason   string    `db:"archived_reason"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func toStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:               s.ID,
		StudentID:        s.StudentID,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		DOB:              s.DOB,
		GradeLevel:       s.GradeLevel,
		Site:             s.Site,
		IEPStatus:        s.IEPStatus,
		EmergencyContact: s.EmergencyContact,
		EmergencyPhone:   s.EmergencyPhone,
		Active:           s.Active,
		ArchivedDate:     null.TimeFromPtr(s.ArchivedDate),
		ArchivedReason:   s.ArchivedReason,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:               r.ID,
		StudentID:        r.StudentID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		DOB:              r.DOB,
		GradeLevel:       r.GradeLevel,
		Site:             r.Site,
		IEPStatus:        r.IEPStatus,
		EmergencyContact: r.EmergencyContact,
		EmergencyPhone:   r.EmergencyPhone,
		Active:           r.Active,
		ArchivedDate:     utcPtr(r.ArchivedDate),
		ArchivedReason:   r.ArchivedReason,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckStudentIDUniqueness(ctx context.Context, studentID, excludedID string) error {
	if studentID == "" {
		return nil
	}
	found, err := exists(ctx, repo.db, "SELECT 1 FROM students WHERE student_id = ? AND id <> ?", studentID, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking student id uniqueness")
	}
	if found {
		return student.ErrStudentIDExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO students ("+studentColumns+") VALUES "+
			"(:id, :student_id, :first_name, :last_name, :dob, :grade_level, :site, :iep_status, "+
			":emergency_contact, :emergency_phone, :active, :archived_date, :archived_reason, :created_at, :updated_at)",
		toStudentRow(s),
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+studentColumns+" FROM students WHERE id = ?"), id); err != nil {
		return student.Student{}, notFoundOr(err, student.ErrNotFound)
	}
	return row.student(), nil
}

func (repo *studentRepository) QueryStudents(
	ctx context.Context,
	filter student.QueryFilter,
	orderings ...core.DBOrdering,
) ([]student.Student, error) {
	var w where
	w.search(filter.Search, "student_id", "first_name", "last_name")
	if filter.Site != "" {
		w.add("site = ?", filter.Site)
	}
	if filter.Active != nil {
		w.add("active = ?", *filter.Active)
	}

	var rows []studentRow
	q := "SELECT " + studentColumns + " FROM students" + w.String() +
		core.OrderByClause(orderings, studentOrderings, core.DBOrdering{Field: "LOWER(last_name)", Ascending: true})
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	err := namedUpdate(ctx, repo.db,
		"UPDATE students SET student_id = :student_id, first_name = :first_name, last_name = :last_name, "+
			"dob = :dob, grade_level = :grade_level, site = :site, iep_status = :iep_status, "+
			"emergency_contact = :emergency_contact, emergency_phone = :emergency_phone, active = :active, "+
			"archived_date = :archived_date, archived_reason = :archived_reason, updated_at = :updated_at "+
			"WHERE id = :id",
		toStudentRow(s), student.ErrNotFound,
	)
	if err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	return deleteByIDs(ctx, repo.db, "students", ids)
}
