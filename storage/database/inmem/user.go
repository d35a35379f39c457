package inmemdb

import (
	"context"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/user"
)

var userOrderings = map[string]comparator[user.User]{
	"full_name":  func(a, b user.User) int { return compareStrings(a.FullName, b.FullName) },
	"email":      func(a, b user.User) int { return compareStrings(a.Email, b.Email) },
	"role":       func(a, b user.User) int { return compareStrings(a.Role, b.Role) },
	"is_active":  func(a, b user.User) int { return compareBools(a.IsActive, b.IsActive) },
	"created_at": func(a, b user.User) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type userRepository struct {
	db *table[user.User]
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.any(func(u user.User) bool { return u.Email == email && u.ID != excludedID }) {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.insert(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.get(id); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if users := repo.db.filter(func(u user.User) bool { return u.Email == email }); len(users) > 0 {
		return users[0], nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.db.filter(filter.Match)
	sortRows(users, orderings, userOrderings)
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.get(usr.ID); !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.insert(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.delete(ids...)
	return nil
}
