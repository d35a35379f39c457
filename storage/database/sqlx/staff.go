package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/staff"
)

const staffColumns = "id, staff_id, first_name, last_name, role, site, email, phone, active, created_at, updated_at"

var staffOrderings = map[string]string{
	"staff_id":   "staff_id",
	"first_name": "LOWER(first_name)",
	"last_name":  "LOWER(last_name)",
	"role":       "role",
	"site":       "site",
	"active":     "active",
	"created_at": "created_at",
}

type staffRow struct {
	ID        string    `db:"id"`
	StaffID   string    `db:"staff_id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Role      string    `db:"role"`
	Site      string    `db:"site"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r staffRow) member() staff.Member {
	m := staff.Member(r)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m
}

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sqlx.DB) staff.Repository {
	return &staffRepository{db: db}
}

func (repo *staffRepository) CreateMember(ctx context.Context, m staff.Member) (staff.Member, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO staff ("+staffColumns+") VALUES "+
			"(:id, :staff_id, :first_name, :last_name, :role, :site, :email, :phone, :active, :created_at, :updated_at)",
		staffRow(m),
	)
	if err != nil {
		return staff.Member{}, errors.Wrap(err, "inserting staff member")
	}
	return m, nil
}

func (repo *staffRepository) GetMemberByID(ctx context.Context, id string) (staff.Member, error) {
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+staffColumns+" FROM staff WHERE id = ?"), id); err != nil {
		return staff.Member{}, notFoundOr(err, staff.ErrNotFound)
	}
	return row.member(), nil
}

func (repo *staffRepository) QueryMembers(ctx context.Context, filter staff.QueryFilter, orderings ...core.DBOrdering) ([]staff.Member, error) {
	var w where
	w.search(filter.Search, "first_name", "last_name", "email")
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.Site != "" {
		w.add("site = ?", filter.Site)
	}
	if filter.Active != nil {
		w.add("active = ?", *filter.Active)
	}

	var rows []staffRow
	q := "SELECT " + staffColumns + " FROM staff" + w.String() +
		core.OrderByClause(orderings, staffOrderings, core.DBOrdering{Field: "LOWER(last_name)", Ascending: true})
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting staff")
	}
	members := make([]staff.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.member())
	}
	return members, nil
}

func (repo *staffRepository) UpdateMember(ctx context.Context, m staff.Member) (staff.Member, error) {
	err := namedUpdate(ctx, repo.db,
		"UPDATE staff SET staff_id = :staff_id, first_name = :first_name, last_name = :last_name, role = :role, "+
			"site = :site, email = :email, phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id",
		staffRow(m), staff.ErrNotFound,
	)
	if err != nil {
		return staff.Member{}, err
	}
	return m, nil
}

func (repo *staffRepository) DeleteMembersByID(ctx context.Context, ids ...string) error {
	return deleteByIDs(ctx, repo.db, "staff", ids)
}
