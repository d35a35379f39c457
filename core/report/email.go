package report

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/audit"
)

const (
	emailFromName   = "BER Guardian System"
	emailTemplate   = "report_completed"
	summaryMaxRunes = 200
)

// EmailRequest asks for a report to be emailed, one message per recipient.
type EmailRequest struct {
	Recipients     []string `json:"recipients" validate:"required,min=1,dive,email"`
	Subject        string   `json:"subject"`
	CustomMessage  string   `json:"custom_message"`
	IncludeDetails bool     `json:"include_details"`
}

func (er *EmailRequest) Validate() error {
	recipients := make([]string, 0, len(er.Recipients))
	for _, r := range er.Recipients {
		for _, addr := range strings.Split(r, ",") {
			if addr = core.CleanString(addr, true /* lower */); addr != "" {
				recipients = append(recipients, addr)
			}
		}
	}
	er.Recipients = recipients
	er.Subject = core.CleanString(er.Subject)
	er.CustomMessage = core.SanitizeText(core.CleanString(er.CustomMessage))
	return core.Validate.Struct(er)
}

type emailData struct {
	Title         string
	Lines         []string
	CustomMessage string
	ReportID      string
	FromName      string
}

// Email sends the summary of a report to each recipient.
func (svc *Service) Email(ctx context.Context, actor, id string, req EmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	rec, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return err
	}
	c := rec.Common()

	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("%s Report Completed - %s", rec.Type.Label(), orDefault(c.StudentName, "Student"))
	}
	data := emailData{
		Title:         reportTitle(rec.Type),
		Lines:         svc.summaryLines(rec, req.IncludeDetails),
		CustomMessage: req.CustomMessage,
		ReportID:      c.ID,
		FromName:      emailFromName,
	}

	var (
		sent, failed []string
		sendErr      error
	)
	for _, to := range req.Recipients {
		msg := &core.EmailMessage{
			To:           []mail.Address{{Address: to}},
			FromName:     emailFromName,
			Subject:      subject,
			TemplateName: emailTemplate,
			TemplateData: data,
		}
		if err := msg.Render(); err != nil {
			return errors.Wrap(err, "rendering report email")
		}
		if err := svc.mailSvc.Send(ctx, msg); err != nil {
			svc.logger.Warn(fmt.Sprintf("emailing report %s to %s: %v", c.ID, to, err), err)
			failed = append(failed, to)
			if sendErr == nil {
				sendErr = err
			}
			continue
		}
		sent = append(sent, to)
	}

	if len(sent) > 0 {
		svc.record(ctx, c.ID, audit.ActionEmailed, actor, strings.Join(sent, ", "))
	}
	if sendErr != nil {
		return core.NewRemoteError("email", errors.Wrapf(sendErr, "sending to %s", strings.Join(failed, ", ")))
	}
	return nil
}

func reportTitle(t Type) string {
	if t == TypeIncident {
		return "Incident Report"
	}
	return "Behavior Emergency Report (BER)"
}

func (svc *Service) summaryLines(rec Record, includeDetails bool) []string {
	c := rec.Common()
	lines := []string{
		"Student: " + c.StudentName,
		"Student ID: " + c.StudentID,
		"Site: " + c.Site,
		"Incident Date: " + formatIncidentDate(c.IncidentDate),
		"Location: " + c.Location,
		"Status: " + strings.ReplaceAll(c.Status, "_", " "),
	}

	if narrative := rec.Narrative(); includeDetails && narrative != "" {
		lines = append(lines, "Incident Summary: "+truncate(narrative, summaryMaxRunes))
	}

	switch {
	case rec.BER != nil:
		if ei := rec.BER.EmergencyIntervention; ei != "" && ei != NoPhysicalIntervention {
			lines = append(lines, "Emergency Intervention Used: "+svc.optionLabel("emergency_intervention_used", ei))
		}
	case rec.Incident != nil:
		if used := rec.Incident.EmergencyUsed; used != nil && *used {
			lines = append(lines, "Emergency Intervention Used: "+
				orDefault(svc.optionLabel("emergency_type", rec.Incident.EmergencyType), "Yes"))
		}
	}

	if len(c.Injuries) > 0 {
		lines = append(lines, "Injuries Occurred: Yes")
	}
	return lines
}

func (svc *Service) optionLabel(key, value string) string {
	if f, ok := svc.engine.Config().Field(key); ok {
		return f.OptionLabel(value)
	}
	return value
}

func formatIncidentDate(v string) string {
	if t, err := time.Parse("2006-01-02T15:04", v); err == nil {
		return t.Format("January 2, 2006, 3:04 PM")
	}
	if t, err := time.Parse(core.DateLayout, v); err == nil {
		return t.Format("January 2, 2006")
	}
	return "N/A"
}

// truncate cuts s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
