package report

import (
	"errors"
	"strings"
	"time"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/wizard"
)

// Type tags which of the two persisted models a report is.
type Type string

const (
	TypeBER      Type = "ber"
	TypeIncident Type = "incident_report"
)

// ParseType accepts the form values and labels of the report type ("BER", "Incident Report").
func ParseType(s string) (Type, error) {
	switch t := Type(wizard.Canonical(s)); t {
	case TypeBER, TypeIncident:
		return t, nil
	}
	return "", ErrUnknownType
}

func (t Type) Label() string {
	if t == TypeIncident {
		return "Incident Report"
	}
	return "BER"
}

// Statuses
const (
	StatusDraft       = "draft"
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusArchived    = "archived"
)

const NoPhysicalIntervention = "no_physical_intervention"

var (
	Statuses = []string{StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusArchived}

	// errors
	ErrUnknownType      = errors.New("unknown report type")
	ErrEmptyRecord      = errors.New("report record holds no model")
	ErrNotFound         = errors.New("report not found")
	ErrInvalidStatus    = errors.New("invalid report status")
	ErrSubmitInProgress = errors.New("this report is already being saved")
)

type (
	StaffMember struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}

	Notification struct {
		Name         string `json:"name"`
		Relationship string `json:"relationship"`
		Method       string `json:"method"`
		NotifiedAt   string `json:"notified_at"`
	}

	Witness struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}

	// Common holds what both report models persist.
	Common struct {
		ID                            string              `json:"id"`
		Status                        string              `json:"status"`
		StudentID                     string              `json:"student_id"`
		StudentName                   string              `json:"student_name"`
		DOB                           string              `json:"dob"`
		AgeAtIncident                 *int                `json:"age_at_incident"`
		IncidentDate                  string              `json:"incident_date"` // YYYY-MM-DDTHH:MM
		Location                      string              `json:"location"`
		Setting                       string              `json:"setting"`
		Site                          string              `json:"site"`
		StaffInvolved                 []StaffMember       `json:"staff_involved"`
		ProgressiveDiscipline         []string            `json:"progressive_discipline"`
		RestorativePractices          []string            `json:"restorative_practices"`
		Injuries                      []string            `json:"injuries"`
		MedicalEvaluation             *bool               `json:"medical_evaluation"`
		AdditionalInterventionDetails string              `json:"additional_intervention_details"`
		PostIncidentCare              string              `json:"post_incident_care"`
		BIPInPlace                    *bool               `json:"bip_in_place"`
		BIPDate                       string              `json:"bip_date"`
		EnvironmentalFactors          string              `json:"environmental_factors"`
		Notifications                 []Notification      `json:"notifications"`
		PreSubmissionChecklist        []string            `json:"pre_submission_checklist"`
		Attachments                   []wizard.Attachment `json:"attachments"`
		ProhibitedTechniques          bool                `json:"prohibited_techniques"`
		CreatedBy                     string              `json:"created_by"`
		CreatedAt                     time.Time           `json:"created_at"` // UTC
		UpdatedAt                     time.Time           `json:"updated_at"` // UTC
	}

	// BER is a Behavior Emergency Report.
	BER struct {
		Common

		IncidentNarrative         string   `json:"incident_narrative"`
		CrisisStage               string   `json:"crisis_stage"`
		StaffResponse             string   `json:"staff_response"`
		EnvironmentalArrangements []string `json:"environmental_arrangements"`
		EmergencyIntervention     string   `json:"emergency_intervention"`
		SupportiveStrategies      []string `json:"supportive_strategies"`
		DeescalationAttempts      string   `json:"deescalation_attempts"`
		DirectiveStrategies       []string `json:"directive_strategies"`
		RestraintStart            string   `json:"restraint_start"`
		RestraintEnd              string   `json:"restraint_end"`
		RestraintMinutes          *int     `json:"restraint_minutes"` // derived
		Disengagements            []string `json:"disengagements"`
		HoldsUsed                 []string `json:"holds_used"`
		TherapeuticRapport        []string `json:"therapeutic_rapport"`
		BERFollowup               []string `json:"ber_followup"`
	}

	IncidentReport struct {
		Common

		IncidentType        string    `json:"incident_type"`
		PriorityLevel       string    `json:"priority_level"`
		IncidentDescription string    `json:"incident_description"`
		Antecedent          string    `json:"antecedent"`
		StrategiesUsed      string    `json:"strategies_used"`
		Witnesses           []Witness `json:"witnesses"`
		ActionsTaken        string    `json:"actions_taken"`
		FollowUpRequired    *bool     `json:"follow_up_required"`
		FollowUpNotes       string    `json:"follow_up_notes"`
		EmergencyUsed       *bool     `json:"emergency_used"`
		EmergencyType       string    `json:"emergency_type"`
		SeriousPropDamage   *bool     `json:"serious_prop_damage"`
		MedicalAttention    *bool     `json:"medical_attention"`
		MedicalProvider     string    `json:"medical_provider"`
		RestraintUsed       *bool     `json:"restraint_used"`
		RestraintStart      string    `json:"restraint_start"`
		RestraintEnd        string    `json:"restraint_end"`
		ElopementInvolved   *bool     `json:"elopement_involved"`
		ElopementStartTime  string    `json:"elopement_start_time"`
		ElopementEndTime    string    `json:"elopement_end_time"`
		ParentContacted     *bool     `json:"parent_contacted"`
		ParentContactMethod string    `json:"parent_contact_method"`
		ParentContactTime   string    `json:"parent_contact_time"`
		ParentContactNotes  string    `json:"parent_contact_notes"`

		// derived
		StudentInjuries bool `json:"student_injuries"`
		StaffInjuries   bool `json:"staff_injuries"`
		OtherInjuries   bool `json:"other_injuries"`
	}

	// Record is a persisted report: exactly one of BER and Incident is set, as tagged by Type.
	Record struct {
		Type     Type
		BER      *BER
		Incident *IncidentReport
	}
)

// Common returns the fields shared by both models of the active branch; nil for an empty record.
func (r *Record) Common() *Common {
	switch {
	case r.Type == TypeBER && r.BER != nil:
		return &r.BER.Common
	case r.Type == TypeIncident && r.Incident != nil:
		return &r.Incident.Common
	}
	return nil
}

// ID returns the report id, or "" for an empty record.
func (r Record) ID() string {
	if c := r.Common(); c != nil {
		return c.ID
	}
	return ""
}

// Clone returns a deep copy of r: it shares no model, slice or pointer with r.
func (r Record) Clone() Record {
	if r.BER != nil {
		ber := *r.BER
		ber.Common = ber.Common.clone()
		ber.EnvironmentalArrangements = cloneSlice(ber.EnvironmentalArrangements)
		ber.SupportiveStrategies = cloneSlice(ber.SupportiveStrategies)
		ber.DirectiveStrategies = cloneSlice(ber.DirectiveStrategies)
		ber.RestraintMinutes = clonePtr(ber.RestraintMinutes)
		ber.Disengagements = cloneSlice(ber.Disengagements)
		ber.HoldsUsed = cloneSlice(ber.HoldsUsed)
		ber.TherapeuticRapport = cloneSlice(ber.TherapeuticRapport)
		ber.BERFollowup = cloneSlice(ber.BERFollowup)
		r.BER = &ber
	}
	if r.Incident != nil {
		inc := *r.Incident
		inc.Common = inc.Common.clone()
		inc.Witnesses = cloneSlice(inc.Witnesses)
		inc.FollowUpRequired = clonePtr(inc.FollowUpRequired)
		inc.EmergencyUsed = clonePtr(inc.EmergencyUsed)
		inc.SeriousPropDamage = clonePtr(inc.SeriousPropDamage)
		inc.MedicalAttention = clonePtr(inc.MedicalAttention)
		inc.RestraintUsed = clonePtr(inc.RestraintUsed)
		inc.ElopementInvolved = clonePtr(inc.ElopementInvolved)
		inc.ParentContacted = clonePtr(inc.ParentContacted)
		r.Incident = &inc
	}
	return r
}

func (c Common) clone() Common {
	c.AgeAtIncident = clonePtr(c.AgeAtIncident)
	c.StaffInvolved = cloneSlice(c.StaffInvolved)
	c.ProgressiveDiscipline = cloneSlice(c.ProgressiveDiscipline)
	c.RestorativePractices = cloneSlice(c.RestorativePractices)
	c.Injuries = cloneSlice(c.Injuries)
	c.MedicalEvaluation = clonePtr(c.MedicalEvaluation)
	c.BIPInPlace = clonePtr(c.BIPInPlace)
	c.Notifications = cloneSlice(c.Notifications)
	c.PreSubmissionChecklist = cloneSlice(c.PreSubmissionChecklist)
	c.Attachments = cloneSlice(c.Attachments)
	return c
}

// cloneSlice copies s, keeping nil as nil.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Narrative returns the free-text account of the incident of either model.
func (r Record) Narrative() string {
	switch {
	case r.BER != nil:
		return r.BER.IncidentNarrative
	case r.Incident != nil:
		return r.Incident.IncidentDescription
	}
	return ""
}

func IsValidStatus(status string) bool {
	return core.StringInSlice(status, Statuses)
}

// QueryFilter narrows report listings. Dates are YYYY-MM-DD and compare against the incident date.
type QueryFilter struct {
	Type     Type     `query:"type"`
	Statuses []string `query:"status"`
	Search   string   `query:"search"` // student name, site or location
	From     string   `query:"from"`
	To       string   `query:"to"`
	Student  string   `query:"student_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Type == "" && qf.Statuses == nil && qf.Search == "" && qf.From == "" && qf.To == "" && qf.Student == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.From = core.CleanString(qf.From)
	qf.To = core.CleanString(qf.To)
	if qf.Type != "" {
		if t, err := ParseType(string(qf.Type)); err == nil {
			qf.Type = t
		}
	}
}

// UpperDate returns the exclusive upper bound of the To date, so a whole day is included.
func (qf QueryFilter) UpperDate() string {
	if qf.To == "" {
		return ""
	}
	return qf.To + "U" // sorts after any "YYYY-MM-DDTHH:MM" of that day
}

func (qf QueryFilter) Match(r Record) bool {
	c := r.Common()
	if c == nil {
		return false
	}
	if qf.Type != "" && r.Type != qf.Type {
		return false
	}
	if len(qf.Statuses) > 0 && !core.StringInSlice(c.Status, qf.Statuses) {
		return false
	}
	if qf.Student != "" && c.StudentID != qf.Student {
		return false
	}
	if qf.From != "" && c.IncidentDate < qf.From {
		return false
	}
	if qf.To != "" && c.IncidentDate >= qf.UpperDate() {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(c.StudentName), search) ||
			strings.Contains(strings.ToLower(c.Site), search) ||
			strings.Contains(strings.ToLower(c.Location), search)
	}
	return true
}
