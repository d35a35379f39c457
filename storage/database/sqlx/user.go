package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/user"
)

const userColumns = "id, full_name, email, role, is_active, password_hash, created_at, updated_at, last_login"

var userOrderings = map[string]string{
	"full_name":  "LOWER(full_name)",
	"email":      "email",
	"role":       "role",
	"is_active":  "is_active",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string    `db:"id"`
	FullName     string    `db:"full_name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func toUserRow(u user.User) userRow {
	return userRow{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		IsActive:     u.IsActive,
		PasswordHash: string(u.PasswordHash),
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
		LastLogin:    null.TimeFromPtr(u.LastLogin),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		FullName:     r.FullName,
		Email:        r.Email,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: []byte(r.PasswordHash),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    utcPtr(r.LastLogin),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email, excludedID string) error {
	found, err := exists(ctx, repo.db, "SELECT 1 FROM users WHERE email = ? AND id <> ?", email, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if found {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES "+
			"(:id, :full_name, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)",
		toUserRow(usr),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) get(ctx context.Context, col, val string) (user.User, error) {
	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + col + " = ?")
	if err := repo.db.GetContext(ctx, &row, q, val); err != nil {
		return user.User{}, notFoundOr(err, user.ErrNotFound)
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.get(ctx, "id", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, "email", email)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	var w where
	w.search(filter.Search, "full_name", "email")
	w.in("role", filter.Roles)
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at < ?", filter.CreatedTo.UTC())
	}

	var rows []userRow
	q := "SELECT " + userColumns + " FROM users" + w.String() + core.OrderByClause(orderings, userOrderings)
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := namedUpdate(ctx, repo.db,
		"UPDATE users SET full_name = :full_name, email = :email, role = :role, is_active = :is_active, "+
			"password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login WHERE id = :id",
		toUserRow(usr), user.ErrNotFound,
	)
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	return deleteByIDs(ctx, repo.db, "users", ids)
}
