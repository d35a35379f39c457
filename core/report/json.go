package report

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

type (
	berJSON struct {
		Type Type `json:"report_type"`
		*BER
	}

	incidentJSON struct {
		Type Type `json:"report_type"`
		*IncidentReport
	}
)

// MarshalJSON flattens the active model, tagged with its report_type.
func (r Record) MarshalJSON() ([]byte, error) {
	switch {
	case r.Type == TypeBER && r.BER != nil:
		return json.Marshal(berJSON{Type: r.Type, BER: r.BER})
	case r.Type == TypeIncident && r.Incident != nil:
		return json.Marshal(incidentJSON{Type: r.Type, IncidentReport: r.Incident})
	}
	return nil, ErrEmptyRecord
}

// UnmarshalJSON decodes a flattened report into the model named by its report_type.
// Without a report_type, a report describing its incident under "incident_description" is
// taken for an IncidentReport, anything else for a BER.
func (r *Record) UnmarshalJSON(data []byte) error {
	var peek struct {
		Type                string          `json:"report_type"`
		IncidentDescription json.RawMessage `json:"incident_description"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return err
	}

	var t Type
	switch {
	case peek.Type != "":
		var err error
		if t, err = ParseType(peek.Type); err != nil {
			return errors.Wrapf(err, "report_type %q", peek.Type)
		}
	case len(bytes.TrimSpace(peek.IncidentDescription)) > 0:
		t = TypeIncident
	default:
		t = TypeBER
	}

	switch t {
	case TypeBER:
		ber := new(BER)
		if err := json.Unmarshal(data, ber); err != nil {
			return err
		}
		*r = Record{Type: t, BER: ber}
	case TypeIncident:
		incident := new(IncidentReport)
		if err := json.Unmarshal(data, incident); err != nil {
			return err
		}
		*r = Record{Type: t, Incident: incident}
	}
	return nil
}
