package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/berguardian/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInactive           = errors.New("user account is disabled")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists when another user than excludedID holds email.
		CheckEmailUniqueness(ctx context.Context, email, excludedID string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, email, excludedID string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedID); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email, ""); err != nil {
		return User{}, err
	}

	now := nowFunc()
	usr := User{
		ID:        uuid.NewString(),
		FullName:  nu.FullName,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate returns the active user matching creds and stamps its last login.
func (svc *Service) Authenticate(ctx context.Context, creds LoginCredentials) (User, error) {
	if err := creds.Validate(); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := usr.CheckPassword(creds.Password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrInactive
	}
	return svc.SetLastLogin(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := nowFunc()
	usr.LastLogin = &now
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Get(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "full_name", Ascending: true}}
	}
	return svc.repo.QueryUsers(ctx, filter, orderings...)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	orig, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := uu.Validate(orig); err != nil {
		return User{}, err
	}
	if uu.Email != orig.Email {
		if err := svc.checkUniqueness(ctx, uu.Email, id); err != nil {
			return User{}, err
		}
	}

	usr := uu.apply(orig)
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = nowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword replaces the password of the user with email, enforcing the password policy.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	return svc.Update(ctx, usr.ID, UpdateUser{Password: pwd, PasswordConfirm: pwd})
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
