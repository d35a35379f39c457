package student

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/berguardian/core"
)

type Student struct {
	ID               string     `json:"id"`
	StudentID        string     `json:"student_id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	DOB              string     `json:"dob"` // YYYY-MM-DD
	GradeLevel       string     `json:"grade_level"`
	Site             string     `json:"site"`
	IEPStatus        bool       `json:"iep_status"`
	EmergencyContact string     `json:"emergency_contact"`
	EmergencyPhone   string     `json:"emergency_phone"`
	Active           bool       `json:"active"`
	ArchivedDate     *time.Time `json:"archived_date"` // UTC
	ArchivedReason   string     `json:"archived_reason"`
	CreatedAt        time.Time  `json:"created_at"` // UTC
	UpdatedAt        time.Time  `json:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// DisplayName is the name reports are filed under: "First Last - Grade N".
func (s Student) DisplayName() string {
	if s.GradeLevel == "" {
		return s.FullName()
	}
	return fmt.Sprintf("%s - Grade %s", s.FullName(), s.GradeLevel)
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	StudentID        string `json:"student_id" validate:"required,max=32"`
	FirstName        string `json:"first_name" validate:"required"`
	LastName         string `json:"last_name" validate:"required"`
	DOB              string `json:"dob" validate:"omitempty,date"`
	GradeLevel       string `json:"grade_level"`
	Site             string `json:"site" validate:"required"`
	IEPStatus        bool   `json:"iep_status"`
	EmergencyContact string `json:"emergency_contact"`
	EmergencyPhone   string `json:"emergency_phone"`
}

func (ns *NewStudent) Validate() error {
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.DOB = core.CleanString(ns.DOB)
	ns.GradeLevel = core.CleanString(ns.GradeLevel)
	ns.Site = core.CleanString(ns.Site)
	ns.EmergencyContact = core.CleanString(ns.EmergencyContact)
	ns.EmergencyPhone = core.CleanString(ns.EmergencyPhone)
	return core.Validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields keep their current value.
type UpdateStudent struct {
	StudentID        string `json:"student_id" validate:"omitempty,max=32"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	DOB              string `json:"dob" validate:"omitempty,date"`
	GradeLevel       string `json:"grade_level"`
	Site             string `json:"site"`
	IEPStatus        *bool  `json:"iep_status"`
	EmergencyContact string `json:"emergency_contact"`
	EmergencyPhone   string `json:"emergency_phone"`
}

func (us *UpdateStudent) Validate() error {
	us.StudentID = core.CleanString(us.StudentID)
	us.DOB = core.CleanString(us.DOB)
	return core.Validate.Struct(us)
}

func (us UpdateStudent) apply(s Student) Student {
	set := func(dst *string, val string) {
		if val = core.CleanString(val); val != "" {
			*dst = val
		}
	}
	set(&s.StudentID, us.StudentID)
	set(&s.FirstName, us.FirstName)
	set(&s.LastName, us.LastName)
	set(&s.DOB, us.DOB)
	set(&s.GradeLevel, us.GradeLevel)
	set(&s.Site, us.Site)
	set(&s.EmergencyContact, us.EmergencyContact)
	set(&s.EmergencyPhone, us.EmergencyPhone)
	if us.IEPStatus != nil {
		s.IEPStatus = *us.IEPStatus
	}
	return s
}

type QueryFilter struct {
	Search string `query:"search"` // student id, first or last name
	Site   string `query:"site"`
	Active *bool  `query:"active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Site == "" && qf.Active == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Site = core.CleanString(qf.Site)
}

// Match reports whether s satisfies every set filter field.
func (qf QueryFilter) Match(s Student) bool {
	if qf.Site != "" && s.Site != qf.Site {
		return false
	}
	if qf.Active != nil && s.Active != *qf.Active {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(s.StudentID), search) ||
			strings.Contains(strings.ToLower(s.FirstName), search) ||
			strings.Contains(strings.ToLower(s.LastName), search)
	}
	return true
}
