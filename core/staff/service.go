package staff

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/berguardian/core"
)

var (
	// errors
	ErrNotFound = errors.New("staff member not found")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateMember(ctx context.Context, m Member) (Member, error)
		GetMemberByID(ctx context.Context, id string) (Member, error)
		// QueryMembers applies AND operation on available QueryFilter fields.
		QueryMembers(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Member, error)
		UpdateMember(ctx context.Context, m Member) (Member, error)
		DeleteMembersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nm NewMember) (Member, error) {
	if err := nm.Validate(); err != nil {
		return Member{}, err
	}
	now := nowFunc()
	return svc.repo.CreateMember(ctx, Member{
		ID:        uuid.NewString(),
		StaffID:   nm.StaffID,
		FirstName: nm.FirstName,
		LastName:  nm.LastName,
		Role:      nm.Role,
		Site:      nm.Site,
		Email:     nm.Email,
		Phone:     nm.Phone,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMemberByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Member, error) {
	filter.Clean()
	return svc.repo.QueryMembers(ctx, filter, orderings...)
}

func (svc *Service) Update(ctx context.Context, id string, um UpdateMember) (Member, error) {
	if err := um.Validate(); err != nil {
		return Member{}, err
	}
	orig, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	m := um.apply(orig)
	m.UpdatedAt = nowFunc()
	return svc.repo.UpdateMember(ctx, m)
}

// SetActive activates or deactivates a member.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) (Member, error) {
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	m.Active = active
	m.UpdatedAt = nowFunc()
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteMembersByID(ctx, ids...)
}
