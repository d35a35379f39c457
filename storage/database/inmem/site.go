package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/site"
)

var siteOrderings = map[string]comparator[site.Site]{
	"name":       func(a, b site.Site) int { return compareStrings(a.Name, b.Name) },
	"code":       func(a, b site.Site) int { return compareStrings(a.Code, b.Code) },
	"active":     func(a, b site.Site) int { return compareBools(a.Active, b.Active) },
	"created_at": func(a, b site.Site) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type siteRepository struct {
	db *table[site.Site]
}

var _ site.Repository = (*siteRepository)(nil) // interface compliance check

func NewSiteRepository(db *DB) site.Repository {
	return &siteRepository{db: db.site}
}

func (repo *siteRepository) CheckNameUniqueness(_ context.Context, name, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.any(func(s site.Site) bool { return strings.EqualFold(s.Name, name) && s.ID != excludedID }) {
		return site.ErrNameExists
	}
	return nil
}

func (repo *siteRepository) CreateSite(_ context.Context, s site.Site) (site.Site, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.insert(s.ID, s)
	return s, nil
}

func (repo *siteRepository) GetSiteByID(_ context.Context, id string) (site.Site, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.get(id); ok {
		return s, nil
	}
	return site.Site{}, site.ErrNotFound
}

func (repo *siteRepository) QuerySites(_ context.Context, filter site.QueryFilter, orderings ...core.DBOrdering) ([]site.Site, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sites := repo.db.filter(filter.Match)
	sortRows(sites, orderings, siteOrderings)
	return sites, nil
}

func (repo *siteRepository) UpdateSite(_ context.Context, s site.Site) (site.Site, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.get(s.ID); !ok {
		return site.Site{}, site.ErrNotFound
	}
	repo.db.insert(s.ID, s)
	return s, nil
}

func (repo *siteRepository) DeleteSitesByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.delete(ids...)
	return nil
}
