package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/berguardian/core"
)

// Roles
const (
	// Admin
	RoleAdmin         = "admin:"
	RoleAdminDistrict = "admin:district"
	RoleAdminSite     = "admin:site"

	// Staff
	RoleStaff = "staff:"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminDistrict, RoleAdminSite}
	StaffRoles = []string{RoleStaff}
	AllRoles   = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminDistrict: 30,
		RoleAdminSite:     29,
		RoleAdmin:         21,

		// Staff: 20 - 11
		RoleStaff: 11,
	}

	Roles = []Role{
		{Name: "Staff", Value: RoleStaff},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Site Admin", Value: RoleAdminSite},
		{Name: "District Admin", Value: RoleAdminDistrict},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string     `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool {
	return strings.HasPrefix(u.Role, RoleAdmin)
}

// Outranks reports whether u's role has a higher priority than other's.
func (u *User) Outranks(other User) bool {
	return RolePriority(u.Role) > RolePriority(other.Role)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FullName        string `json:"full_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"omitempty,userrole"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate() error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStaff
	}
	return core.Validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"omitempty,userrole"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate cleans uu, filling its empty fields from orig so the password policy sees the final attributes.
func (uu *UpdateUser) Validate(orig User) error {
	if name := core.CleanString(uu.FullName); name != "" {
		uu.FullName = name
	} else {
		uu.FullName = orig.FullName
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = orig.Role
	}
	return core.Validate.Struct(uu)
}

func (uu UpdateUser) apply(orig User) User {
	usr := orig
	usr.FullName = uu.FullName
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	return usr
}

// LoginCredentials are posted to log in.
type LoginCredentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lc *LoginCredentials) Validate() error {
	lc.Email = core.CleanString(lc.Email, true /* lower */)
	return core.Validate.Struct(lc)
}

type QueryFilter struct {
	Search      string    `query:"search"` // full name or email
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func (qf QueryFilter) Match(u User) bool {
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		if !strings.Contains(strings.ToLower(u.FullName), search) && !strings.Contains(u.Email, search) {
			return false
		}
	}
	if len(qf.Roles) > 0 && !core.StringInSlice(u.Role, qf.Roles) {
		return false
	}
	if qf.IsActive != nil && u.IsActive != *qf.IsActive {
		return false
	}
	if !qf.CreatedFrom.IsZero() && u.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && !u.CreatedAt.Before(qf.CreatedTo) {
		return false
	}
	return true
}
