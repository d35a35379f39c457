package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/site"
)

const siteColumns = "id, name, code, address, principal, phone, active, created_at, updated_at"

var siteOrderings = map[string]string{
	"name":       "LOWER(name)",
	"code":       "code",
	"active":     "active",
	"created_at": "created_at",
}

type siteRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	Address   string    `db:"address"`
	Principal string    `db:"principal"`
	Phone     string    `db:"phone"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r siteRow) site() site.Site {
	s := site.Site(r)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s
}

type siteRepository struct {
	db *sqlx.DB
}

var _ site.Repository = (*siteRepository)(nil) // interface compliance check

func NewSiteRepository(db *sqlx.DB) site.Repository {
	return &siteRepository{db: db}
}

func (repo *siteRepository) CheckNameUniqueness(ctx context.Context, name, excludedID string) error {
	found, err := exists(ctx, repo.db, "SELECT 1 FROM sites WHERE LOWER(name) = LOWER(?) AND id <> ?", name, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking site name uniqueness")
	}
	if found {
		return site.ErrNameExists
	}
	return nil
}

func (repo *siteRepository) CreateSite(ctx context.Context, s site.Site) (site.Site, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO sites ("+siteColumns+") VALUES "+
			"(:id, :name, :code, :address, :principal, :phone, :active, :created_at, :updated_at)",
		siteRow(s),
	)
	if err != nil {
		return site.Site{}, errors.Wrap(err, "inserting site")
	}
	return s, nil
}

func (repo *siteRepository) GetSiteByID(ctx context.Context, id string) (site.Site, error) {
	var row siteRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+siteColumns+" FROM sites WHERE id = ?"), id); err != nil {
		return site.Site{}, notFoundOr(err, site.ErrNotFound)
	}
	return row.site(), nil
}

func (repo *siteRepository) QuerySites(ctx context.Context, filter site.QueryFilter, orderings ...core.DBOrdering) ([]site.Site, error) {
	var w where
	w.search(filter.Search, "name", "code")
	if filter.Active != nil {
		w.add("active = ?", *filter.Active)
	}

	var rows []siteRow
	q := "SELECT " + siteColumns + " FROM sites" + w.String() +
		core.OrderByClause(orderings, siteOrderings, core.DBOrdering{Field: "LOWER(name)", Ascending: true})
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting sites")
	}
	sites := make([]site.Site, 0, len(rows))
	for _, row := range rows {
		sites = append(sites, row.site())
	}
	return sites, nil
}

func (repo *siteRepository) UpdateSite(ctx context.Context, s site.Site) (site.Site, error) {
	err := namedUpdate(ctx, repo.db,
		"UPDATE sites SET name = :name, code = :code, address = :address, principal = :principal, "+
			"phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id",
		siteRow(s), site.ErrNotFound,
	)
	if err != nil {
		return site.Site{}, err
	}
	return s, nil
}

func (repo *siteRepository) DeleteSitesByID(ctx context.Context, ids ...string) error {
	return deleteByIDs(ctx, repo.db, "sites", ids)
}
