package site

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/berguardian/core"
)

var (
	// errors
	ErrNotFound   = errors.New("site not found")
	ErrNameExists = errors.New("a site with this name already exists")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		// CheckNameUniqueness returns ErrNameExists when another site than excludedID is named name (case-insensitive).
		CheckNameUniqueness(ctx context.Context, name, excludedID string) error
		CreateSite(ctx context.Context, s Site) (Site, error)
		GetSiteByID(ctx context.Context, id string) (Site, error)
		QuerySites(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Site, error)
		UpdateSite(ctx context.Context, s Site) (Site, error)
		DeleteSitesByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, name, excludedID string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excludedID); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSite) (Site, error) {
	if err := ns.Validate(); err != nil {
		return Site{}, err
	}
	if err := svc.checkUniqueness(ctx, ns.Name, ""); err != nil {
		return Site{}, err
	}
	now := nowFunc()
	return svc.repo.CreateSite(ctx, Site{
		ID:        uuid.NewString(),
		Name:      ns.Name,
		Code:      ns.Code,
		Address:   ns.Address,
		Principal: ns.Principal,
		Phone:     ns.Phone,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Site, error) {
	return svc.repo.GetSiteByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Site, error) {
	filter.Clean()
	return svc.repo.QuerySites(ctx, filter, orderings...)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSite) (Site, error) {
	if err := us.Validate(); err != nil {
		return Site{}, err
	}
	orig, err := svc.repo.GetSiteByID(ctx, id)
	if err != nil {
		return Site{}, err
	}
	s := us.apply(orig)
	if s.Name != orig.Name {
		if err := svc.checkUniqueness(ctx, s.Name, id); err != nil {
			return Site{}, err
		}
	}
	s.UpdatedAt = nowFunc()
	return svc.repo.UpdateSite(ctx, s)
}

// SetActive activates or deactivates a site.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) (Site, error) {
	s, err := svc.repo.GetSiteByID(ctx, id)
	if err != nil {
		return Site{}, err
	}
	s.Active = active
	s.UpdatedAt = nowFunc()
	return svc.repo.UpdateSite(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteSitesByID(ctx, ids...)
}
