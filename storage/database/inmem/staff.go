package inmemdb

import (
	"context"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/staff"
)

var staffOrderings = map[string]comparator[staff.Member]{
	"staff_id":   func(a, b staff.Member) int { return compareStrings(a.StaffID, b.StaffID) },
	"first_name": func(a, b staff.Member) int { return compareStrings(a.FirstName, b.FirstName) },
	"last_name":  func(a, b staff.Member) int { return compareStrings(a.LastName, b.LastName) },
	"role":       func(a, b staff.Member) int { return compareStrings(a.Role, b.Role) },
	"site":       func(a, b staff.Member) int { return compareStrings(a.Site, b.Site) },
	"active":     func(a, b staff.Member) int { return compareBools(a.Active, b.Active) },
	"created_at": func(a, b staff.Member) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type staffRepository struct {
	db *table[staff.Member]
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) staff.Repository {
	return &staffRepository{db: db.staff}
}

func (repo *staffRepository) CreateMember(_ context.Context, m staff.Member) (staff.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.insert(m.ID, m)
	return m, nil
}

func (repo *staffRepository) GetMemberByID(_ context.Context, id string) (staff.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.get(id); ok {
		return m, nil
	}
	return staff.Member{}, staff.ErrNotFound
}

func (repo *staffRepository) QueryMembers(_ context.Context, filter staff.QueryFilter, orderings ...core.DBOrdering) ([]staff.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := repo.db.filter(filter.Match)
	sortRows(members, orderings, staffOrderings)
	return members, nil
}

func (repo *staffRepository) UpdateMember(_ context.Context, m staff.Member) (staff.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.get(m.ID); !ok {
		return staff.Member{}, staff.ErrNotFound
	}
	repo.db.insert(m.ID, m)
	return m, nil
}

func (repo *staffRepository) DeleteMembersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.delete(ids...)
	return nil
}
