package site

import (
	"strings"
	"time"

	"github.com/trezcool/berguardian/core"
)

type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address"`
	Principal string    `json:"principal"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewSite contains information needed to create a new Site.
type NewSite struct {
	Name      string `json:"name" validate:"required"`
	Code      string `json:"code" validate:"omitempty,alphanum_,max=16"`
	Address   string `json:"address"`
	Principal string `json:"principal"`
	Phone     string `json:"phone"`
}

func (ns *NewSite) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = strings.ToUpper(core.CleanString(ns.Code))
	ns.Address = core.CleanString(ns.Address)
	ns.Principal = core.CleanString(ns.Principal)
	ns.Phone = core.CleanString(ns.Phone)
	return core.Validate.Struct(ns)
}

// UpdateSite defines what information may be provided to modify an existing Site.
// Empty fields keep their current value.
type UpdateSite struct {
	Name      string `json:"name"`
	Code      string `json:"code" validate:"omitempty,alphanum_,max=16"`
	Address   string `json:"address"`
	Principal string `json:"principal"`
	Phone     string `json:"phone"`
}

func (us *UpdateSite) Validate() error {
	us.Code = strings.ToUpper(core.CleanString(us.Code))
	return core.Validate.Struct(us)
}

func (us UpdateSite) apply(s Site) Site {
	set := func(dst *string, val string) {
		if val = core.CleanString(val); val != "" {
			*dst = val
		}
	}
	set(&s.Name, us.Name)
	set(&s.Code, us.Code)
	set(&s.Address, us.Address)
	set(&s.Principal, us.Principal)
	set(&s.Phone, us.Phone)
	return s
}

type QueryFilter struct {
	Search string `query:"search"` // name or code
	Active *bool  `query:"active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Active == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func (qf QueryFilter) Match(s Site) bool {
	if qf.Active != nil && s.Active != *qf.Active {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(s.Name), search) ||
			strings.Contains(strings.ToLower(s.Code), search)
	}
	return true
}
