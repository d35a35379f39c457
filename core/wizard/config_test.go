package wizard

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		problem string
	}{
		{
			name:    "no steps",
			yaml:    `id: x`,
			problem: "no steps",
		},
		{
			name: "duplicate keys",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: text, key: location}
  - id: b
    fields:
      - {kind: textarea, key: location}
`,
			problem: `field "location": duplicate key`,
		},
		{
			name: "condition on unknown field",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: time, key: restraint_start_time, condition: {depends_on: emergency, values: [Both]}}
`,
			problem: `field "restraint_start_time": condition depends on unknown field "emergency"`,
		},
		{
			name: "condition without values",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: boolean, key: medical_attention}
      - {kind: text, key: medical_provider, condition: {depends_on: medical_attention}}
`,
			problem: `field "medical_provider": condition without values`,
		},
		{
			name: "repeater bounds",
			yaml: `
steps:
  - id: a
    fields:
      - kind: repeater
        key: staff_involved
        min: 3
        max: 2
        template:
          - {kind: text, key: name}
`,
			problem: `field "staff_involved": repeater bounds must satisfy 0 <= min (3) <= max (2)`,
		},
		{
			name: "repeater without template",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: repeater, key: witnesses}
`,
			problem: `field "witnesses": repeater needs a template`,
		},
		{
			name: "select without options",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: select, key: setting}
`,
			problem: `field "setting": select needs options or options_from`,
		},
		{
			name: "derived non readonly field",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: date, key: dob}
      - {kind: date, key: at}
      - {kind: text, key: age, derive: {rule: age, from: dob, at: at}}
`,
			problem: `field "age": only readonly fields can be derived`,
		},
		{
			name: "derive from unknown field",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: date, key: at}
      - {kind: readonly, key: age, derive: {rule: age, from: dob, at: at}}
`,
			problem: `field "age": derive source "dob" does not exist`,
		},
		{
			name: "bad boolean default",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: boolean, key: prohibited_techniques, default: maybe}
`,
			problem: `field "prohibited_techniques": boolean default must be true or false`,
		},
		{
			name: "unknown autofill target",
			yaml: `
steps:
  - id: a
    fields:
      - {kind: select, key: student_id, options_from: students, autofill: [dob]}
`,
			problem: `field "student_id": autofill target "dob" does not exist`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			cErr, ok := err.(*ConfigError)
			require.True(t, ok, "ParseConfig() error = %T, want *ConfigError", err)
			assert.Contains(t, cErr.Problems, tt.problem)
		})
	}
}

func TestParseConfig_unknownKind(t *testing.T) {
	_, err := ParseConfig([]byte(`
steps:
  - id: a
    fields:
      - {kind: slider, key: level}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field kind "slider"`)
}

func TestParseConfig_options(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
steps:
  - id: a
    fields:
      - kind: radio
        key: emergency_intervention_used
        options:
          - No physical intervention
          - {label: Both, value: physical_and_seclusion}
      - {kind: repeater, key: staff_involved, template: [{kind: text, key: name}]}
`))
	require.NoError(t, err)

	f, ok := cfg.Field("emergency_intervention_used")
	require.True(t, ok)
	assert.Equal(t, []Option{
		{Label: "No physical intervention", Value: "no_physical_intervention"},
		{Label: "Both", Value: "physical_and_seclusion"},
	}, f.Options)
	assert.Equal(t, "Both", f.OptionLabel("physical_and_seclusion"))

	rep, _ := cfg.Field("staff_involved")
	assert.Equal(t, defaultRepeaterMax, rep.Max)
}

func TestLoadConfig(t *testing.T) {
	fsys := fstest.MapFS{
		"wizards/test.yaml": {Data: []byte(testConfigYAML)},
		"wizards/bad.yaml":  {Data: []byte("steps: []")},
	}

	cfg, err := LoadConfig(fsys, "wizards/test.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.StepCount())
	assert.Len(t, cfg.Fields(), 15)

	_, err = LoadConfig(fsys, "wizards/bad.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizards/bad.yaml")

	_, err = LoadConfig(fsys, "wizards/missing.yaml")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	require.Equal(t, 6, cfg.StepCount())

	rt, ok := cfg.Field("report_type")
	require.True(t, ok)
	assert.Equal(t, []Option{{Label: "BER", Value: "ber"}, {Label: "Incident Report", Value: "incident_report"}}, rt.Options)

	discipline, ok := cfg.Field("discipline_actions")
	require.True(t, ok)
	assert.Len(t, discipline.Groups, 3)
	assert.Contains(t, discipline.Items(), "In-school suspension (ISS)")

	eng := NewEngine(cfg)
	state := eng.Initialize(nil)
	assert.Equal(t, "no_physical_intervention", state.String("emergency_intervention_used"))
	require.NotNil(t, state.Bool("prohibited_techniques"))
	assert.False(t, *state.Bool("prohibited_techniques"))
	assert.Equal(t, []Item{{"name": "", "relationship": "parent/guardian", "method": "phone_call", "notified_at": ""}},
		state.Items("notification_recipients"))
}
