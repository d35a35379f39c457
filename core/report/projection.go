package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/berguardian/core/wizard"
)

// Form keys whose value is persisted by both report models.
var commonKeys = []string{
	"report_type", "student_id", "student_dob", "age_at_incident", "incident_date", "incident_time",
	"location", "setting", "site_id", "staff_involved", "discipline_actions", "restorative_practices",
	"injuries", "medical_evaluation", "additional_intervention_details", "post_incident_care",
	"bip_in_place", "bip_date", "environmental_factors", "notification_recipients",
	"pre_submit_checklist", "attachments", "prohibited_techniques",
}

var berKeys = []string{
	"incident_narrative", "follow_up_actions", "cpi_crisis_stage", "cpi_staff_response",
	"emergency_intervention_used", "restraint_start_time", "restraint_end_time",
	"environmental_arrangements", "supportive_strategies", "deescalation_attempts",
	"directive_strategies", "disengagements", "holds_used", "therapeutic_rapport",
}

var incidentKeys = []string{
	"incident_narrative", "actions_taken", "follow_up_required", "follow_up_notes", "incident_type",
	"antecedent", "strategies_used", "witnesses", "priority_level", "emergency_used", "emergency_type",
	"serious_prop_damage", "medical_attention", "medical_provider", "restraint_used", "restraint_start",
	"restraint_end", "elopement_involved", "elopement_start_time", "elopement_end_time",
	"parent_contacted", "parent_contact_method", "parent_contact_time", "parent_contact_notes",
}

const (
	defaultIncidentType  = "other"
	defaultPriorityLevel = "medium"
	timeLayout           = "15:04"
)

// MeaningfulKeys lists the form keys that survive a round trip through the persisted model of t.
func MeaningfulKeys(t Type) []string {
	keys := append([]string{}, commonKeys...)
	switch t {
	case TypeBER:
		return append(keys, berKeys...)
	case TypeIncident:
		return append(keys, incidentKeys...)
	}
	return keys
}

// ToPersisted projects a wizard state onto the persisted model selected by its report_type.
// Service-set fields (id, status, student name, authorship) are left zero.
func ToPersisted(state wizard.FormState) (Record, error) {
	t, err := ParseType(state.String("report_type"))
	if err != nil {
		return Record{}, err
	}
	str := state.String
	common := toCommon(state)

	if t == TypeBER {
		ber := &BER{
			Common:                    common,
			IncidentNarrative:         str("incident_narrative"),
			CrisisStage:               str("cpi_crisis_stage"),
			StaffResponse:             str("cpi_staff_response"),
			EnvironmentalArrangements: copyStrings(state.Strings("environmental_arrangements")),
			EmergencyIntervention:     str("emergency_intervention_used"),
			SupportiveStrategies:      copyStrings(state.Strings("supportive_strategies")),
			DeescalationAttempts:      str("deescalation_attempts"),
			DirectiveStrategies:       copyStrings(state.Strings("directive_strategies")),
			RestraintStart:            str("restraint_start_time"),
			RestraintEnd:              str("restraint_end_time"),
			Disengagements:            copyStrings(state.Strings("disengagements")),
			HoldsUsed:                 copyStrings(state.Strings("holds_used")),
			TherapeuticRapport:        copyStrings(state.Strings("therapeutic_rapport")),
			BERFollowup:               copyStrings(state.Strings("follow_up_actions")),
		}
		ber.RestraintMinutes = minutesBetween(ber.RestraintStart, ber.RestraintEnd)
		return Record{Type: t, BER: ber}, nil
	}

	incident := &IncidentReport{
		Common:              common,
		IncidentType:        orDefault(str("incident_type"), defaultIncidentType),
		PriorityLevel:       orDefault(str("priority_level"), defaultPriorityLevel),
		IncidentDescription: str("incident_narrative"),
		Antecedent:          str("antecedent"),
		StrategiesUsed:      str("strategies_used"),
		Witnesses:           toWitnesses(state.Items("witnesses")),
		ActionsTaken:        str("actions_taken"),
		FollowUpRequired:    copyBool(state.Bool("follow_up_required")),
		FollowUpNotes:       str("follow_up_notes"),
		EmergencyUsed:       copyBool(state.Bool("emergency_used")),
		EmergencyType:       str("emergency_type"),
		SeriousPropDamage:   copyBool(state.Bool("serious_prop_damage")),
		MedicalAttention:    copyBool(state.Bool("medical_attention")),
		MedicalProvider:     str("medical_provider"),
		RestraintUsed:       copyBool(state.Bool("restraint_used")),
		RestraintStart:      str("restraint_start"),
		RestraintEnd:        str("restraint_end"),
		ElopementInvolved:   copyBool(state.Bool("elopement_involved")),
		ElopementStartTime:  str("elopement_start_time"),
		ElopementEndTime:    str("elopement_end_time"),
		ParentContacted:     copyBool(state.Bool("parent_contacted")),
		ParentContactMethod: str("parent_contact_method"),
		ParentContactTime:   str("parent_contact_time"),
		ParentContactNotes:  str("parent_contact_notes"),
	}
	for _, injury := range common.Injuries {
		switch wizard.Canonical(injury) {
		case "student":
			incident.StudentInjuries = true
		case "staff":
			incident.StaffInjuries = true
		case "other":
			incident.OtherInjuries = true
		}
	}
	return Record{Type: t, Incident: incident}, nil
}

func toCommon(state wizard.FormState) Common {
	str := state.String
	prohibited := state.Bool("prohibited_techniques")
	return Common{
		StudentID:                     str("student_id"),
		DOB:                           str("student_dob"),
		AgeAtIncident:                 parseInt(str("age_at_incident")),
		IncidentDate:                  joinDateTime(str("incident_date"), str("incident_time")),
		Location:                      str("location"),
		Setting:                       str("setting"),
		Site:                          str("site_id"),
		StaffInvolved:                 toStaffMembers(state.Items("staff_involved")),
		ProgressiveDiscipline:         copyStrings(state.Strings("discipline_actions")),
		RestorativePractices:          copyStrings(state.Strings("restorative_practices")),
		Injuries:                      copyStrings(state.Strings("injuries")),
		MedicalEvaluation:             copyBool(state.Bool("medical_evaluation")),
		AdditionalInterventionDetails: str("additional_intervention_details"),
		PostIncidentCare:              str("post_incident_care"),
		BIPInPlace:                    parseYesNo(str("bip_in_place")),
		BIPDate:                       str("bip_date"),
		EnvironmentalFactors:          str("environmental_factors"),
		Notifications:                 toNotifications(state.Items("notification_recipients")),
		PreSubmissionChecklist:        copyStrings(state.Strings("pre_submit_checklist")),
		Attachments:                   append([]wizard.Attachment{}, state.Attachments("attachments")...),
		ProhibitedTechniques:          prohibited != nil && *prohibited,
	}
}

// FromPersisted rebuilds the wizard state of a persisted report. Only the keys meaningful for the
// record's type are set; the engine fills in the others when the state is initialized.
func FromPersisted(rec Record) wizard.FormState {
	c := rec.Common()
	if c == nil {
		return wizard.FormState{}
	}

	date, tm := splitDateTime(c.IncidentDate)
	state := wizard.FormState{
		"report_type":                     string(rec.Type),
		"student_id":                      c.StudentID,
		"student_dob":                     c.DOB,
		"age_at_incident":                 formatInt(c.AgeAtIncident),
		"incident_date":                   date,
		"incident_time":                   tm,
		"location":                        c.Location,
		"setting":                         c.Setting,
		"site_id":                         c.Site,
		"staff_involved":                  fromStaffMembers(c.StaffInvolved),
		"discipline_actions":              copyStrings(c.ProgressiveDiscipline),
		"restorative_practices":           copyStrings(c.RestorativePractices),
		"injuries":                        copyStrings(c.Injuries),
		"medical_evaluation":              copyBool(c.MedicalEvaluation),
		"additional_intervention_details": c.AdditionalInterventionDetails,
		"post_incident_care":              c.PostIncidentCare,
		"bip_in_place":                    formatYesNo(c.BIPInPlace),
		"bip_date":                        c.BIPDate,
		"environmental_factors":           c.EnvironmentalFactors,
		"notification_recipients":         fromNotifications(c.Notifications),
		"pre_submit_checklist":            copyStrings(c.PreSubmissionChecklist),
		"attachments":                     append([]wizard.Attachment{}, c.Attachments...),
		"prohibited_techniques":           wizard.Bool(c.ProhibitedTechniques),
	}

	switch rec.Type {
	case TypeBER:
		ber := rec.BER
		state["incident_narrative"] = ber.IncidentNarrative
		state["follow_up_actions"] = copyStrings(ber.BERFollowup)
		state["cpi_crisis_stage"] = ber.CrisisStage
		state["cpi_staff_response"] = ber.StaffResponse
		state["emergency_intervention_used"] = orDefault(ber.EmergencyIntervention, NoPhysicalIntervention)
		state["restraint_start_time"] = ber.RestraintStart
		state["restraint_end_time"] = ber.RestraintEnd
		state["environmental_arrangements"] = copyStrings(ber.EnvironmentalArrangements)
		state["supportive_strategies"] = copyStrings(ber.SupportiveStrategies)
		state["deescalation_attempts"] = ber.DeescalationAttempts
		state["directive_strategies"] = copyStrings(ber.DirectiveStrategies)
		state["disengagements"] = copyStrings(ber.Disengagements)
		state["holds_used"] = copyStrings(ber.HoldsUsed)
		state["therapeutic_rapport"] = copyStrings(ber.TherapeuticRapport)

	case TypeIncident:
		inc := rec.Incident
		state["incident_narrative"] = inc.IncidentDescription
		state["actions_taken"] = inc.ActionsTaken
		state["follow_up_required"] = copyBool(inc.FollowUpRequired)
		state["follow_up_notes"] = inc.FollowUpNotes
		state["incident_type"] = orDefault(inc.IncidentType, defaultIncidentType)
		state["antecedent"] = inc.Antecedent
		state["strategies_used"] = inc.StrategiesUsed
		state["witnesses"] = fromWitnesses(inc.Witnesses)
		state["priority_level"] = orDefault(inc.PriorityLevel, defaultPriorityLevel)
		state["emergency_used"] = copyBool(inc.EmergencyUsed)
		state["emergency_type"] = inc.EmergencyType
		state["serious_prop_damage"] = copyBool(inc.SeriousPropDamage)
		state["medical_attention"] = copyBool(inc.MedicalAttention)
		state["medical_provider"] = inc.MedicalProvider
		state["restraint_used"] = copyBool(inc.RestraintUsed)
		state["restraint_start"] = inc.RestraintStart
		state["restraint_end"] = inc.RestraintEnd
		state["elopement_involved"] = copyBool(inc.ElopementInvolved)
		state["elopement_start_time"] = inc.ElopementStartTime
		state["elopement_end_time"] = inc.ElopementEndTime
		state["parent_contacted"] = copyBool(inc.ParentContacted)
		state["parent_contact_method"] = inc.ParentContactMethod
		state["parent_contact_time"] = inc.ParentContactTime
		state["parent_contact_notes"] = inc.ParentContactNotes
	}
	return state
}

func toStaffMembers(items []wizard.Item) []StaffMember {
	members := make([]StaffMember, 0, len(items))
	for _, item := range items {
		members = append(members, StaffMember{Name: item["name"], Role: item["role"]})
	}
	return members
}

func fromStaffMembers(members []StaffMember) []wizard.Item {
	items := make([]wizard.Item, 0, len(members))
	for _, m := range members {
		items = append(items, wizard.Item{"name": m.Name, "role": m.Role})
	}
	return items
}

func toWitnesses(items []wizard.Item) []Witness {
	witnesses := make([]Witness, 0, len(items))
	for _, item := range items {
		witnesses = append(witnesses, Witness{Name: item["name"], Role: item["role"]})
	}
	return witnesses
}

func fromWitnesses(witnesses []Witness) []wizard.Item {
	items := make([]wizard.Item, 0, len(witnesses))
	for _, w := range witnesses {
		items = append(items, wizard.Item{"name": w.Name, "role": w.Role})
	}
	return items
}

// toNotifications keeps the recipients that have a name.
func toNotifications(items []wizard.Item) []Notification {
	notifications := make([]Notification, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item["name"]) == "" {
			continue
		}
		notifications = append(notifications, Notification{
			Name:         item["name"],
			Relationship: item["relationship"],
			Method:       item["method"],
			NotifiedAt:   item["notified_at"],
		})
	}
	return notifications
}

func fromNotifications(notifications []Notification) []wizard.Item {
	items := make([]wizard.Item, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, wizard.Item{
			"name":         n.Name,
			"relationship": n.Relationship,
			"method":       n.Method,
			"notified_at":  n.NotifiedAt,
		})
	}
	return items
}

func joinDateTime(date, tm string) string {
	if tm == "" {
		return date
	}
	return date + "T" + tm
}

// splitDateTime splits "YYYY-MM-DDTHH:MM[:SS...]" into its date and "HH:MM" parts.
func splitDateTime(v string) (date, tm string) {
	i := strings.IndexByte(v, 'T')
	if i < 0 {
		return v, ""
	}
	date, tm = v[:i], v[i+1:]
	if len(tm) >= 8 && tm[5] == ':' {
		tm = tm[:5]
	}
	return date, tm
}

func minutesBetween(start, end string) *int {
	s, err := time.Parse(timeLayout, start)
	if err != nil {
		return nil
	}
	e, err := time.Parse(timeLayout, end)
	if err != nil || e.Before(s) {
		return nil
	}
	minutes := int(e.Sub(s).Minutes())
	return &minutes
}

func parseYesNo(v string) *bool {
	switch wizard.Canonical(v) {
	case "yes":
		return wizard.Bool(true)
	case "no":
		return wizard.Bool(false)
	}
	return nil
}

func formatYesNo(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "yes"
	}
	return "no"
}

func parseInt(v string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	return wizard.Bool(*b)
}

func copyStrings(l []string) []string {
	return append([]string{}, l...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
