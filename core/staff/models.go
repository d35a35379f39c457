package staff

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/berguardian/core"
)

// Roles
const (
	RoleTeacher      = "teacher"
	RoleAdmin        = "admin"
	RoleCounselor    = "counselor"
	RoleOffice       = "office"
	RoleCook         = "cook"
	RoleParaeducator = "paraeducator"
)

var (
	Roles = []string{RoleTeacher, RoleAdmin, RoleCounselor, RoleOffice, RoleCook, RoleParaeducator}

	staffRoleTag  = "staffrole"
	staffRoleText = "invalid role"
)

func init() {
	_ = core.Validate.RegisterValidation(staffRoleTag, func(fl validator.FieldLevel) bool {
		return core.StringInSlice(fl.Field().String(), Roles)
	})
	core.RegisterCustomTranslation(staffRoleTag, staffRoleText)
}

type Member struct {
	ID        string    `json:"id"`
	StaffID   string    `json:"staff_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	Site      string    `json:"site"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Identifier is how a member is listed among the staff involved in a report.
func (m Member) Identifier() string {
	return fmt.Sprintf("%s (%s)", m.FullName(), m.Role)
}

// NewMember contains information needed to create a new staff Member.
type NewMember struct {
	StaffID   string `json:"staff_id" validate:"omitempty,max=32"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,staffrole"`
	Site      string `json:"site"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

func (nm *NewMember) Validate() error {
	nm.StaffID = core.CleanString(nm.StaffID)
	nm.FirstName = core.CleanString(nm.FirstName)
	nm.LastName = core.CleanString(nm.LastName)
	nm.Role = core.CleanString(nm.Role, true /* lower */)
	nm.Site = core.CleanString(nm.Site)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Phone = core.CleanString(nm.Phone)
	return core.Validate.Struct(nm)
}

// UpdateMember defines what information may be provided to modify an existing Member.
// Empty fields keep their current value.
type UpdateMember struct {
	StaffID   string `json:"staff_id" validate:"omitempty,max=32"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"omitempty,staffrole"`
	Site      string `json:"site"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

func (um *UpdateMember) Validate() error {
	um.Role = core.CleanString(um.Role, true /* lower */)
	um.Email = core.CleanString(um.Email, true /* lower */)
	return core.Validate.Struct(um)
}

func (um UpdateMember) apply(m Member) Member {
	set := func(dst *string, val string) {
		if val = core.CleanString(val); val != "" {
			*dst = val
		}
	}
	set(&m.StaffID, um.StaffID)
	set(&m.FirstName, um.FirstName)
	set(&m.LastName, um.LastName)
	set(&m.Role, um.Role)
	set(&m.Site, um.Site)
	set(&m.Email, um.Email)
	set(&m.Phone, um.Phone)
	return m
}

type QueryFilter struct {
	Search string `query:"search"` // first name, last name or email
	Role   string `query:"role"`
	Site   string `query:"site"`
	Active *bool  `query:"active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.Site == "" && qf.Active == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Site = core.CleanString(qf.Site)
}

func (qf QueryFilter) Match(m Member) bool {
	if qf.Role != "" && m.Role != qf.Role {
		return false
	}
	if qf.Site != "" && m.Site != qf.Site {
		return false
	}
	if qf.Active != nil && m.Active != *qf.Active {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(m.FirstName), search) ||
			strings.Contains(strings.ToLower(m.LastName), search) ||
			strings.Contains(m.Email, search)
	}
	return true
}
