package wizard

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appfs "github.com/trezcool/berguardian/fs"
)

const (
	DefaultConfigPath = "wizards/report.yaml"

	defaultRepeaterMax = 10
)

type (
	Step struct {
		ID          string  `yaml:"id" json:"id"`
		Title       string  `yaml:"title" json:"title"`
		Description string  `yaml:"description" json:"description,omitempty"`
		Fields      []Field `yaml:"fields" json:"fields"`
	}

	// Config is a declarative wizard: ordered steps of ordered fields.
	// Build it with LoadConfig or ParseConfig; the zero value is not usable.
	Config struct {
		ID    string `yaml:"id" json:"id"`
		Title string `yaml:"title" json:"title"`
		Steps []Step `yaml:"steps" json:"steps"`

		index map[string]*Field
		order []*Field
	}

	// ConfigError lists every problem found in a wizard config.
	ConfigError struct {
		Path     string
		Problems []string
	}
)

func (err *ConfigError) Error() string {
	return fmt.Sprintf("invalid wizard config %s: %s", err.Path, strings.Join(err.Problems, "; "))
}

// LoadConfig reads and validates the wizard config at path (YAML or JSON).
func LoadConfig(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrap(err, "reading wizard config")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		if cErr, ok := err.(*ConfigError); ok {
			cErr.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig loads the embedded BER / Incident Report wizard.
func DefaultConfig() (*Config, error) {
	return LoadConfig(appfs.FS, DefaultConfigPath)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "decoding wizard config")
	}
	if err := cfg.build(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// build indexes the fields and checks the config invariants.
func (c *Config) build() error {
	c.index = make(map[string]*Field)
	c.order = nil

	var problems []string
	report := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Steps) == 0 {
		report("no steps")
	}
	stepIDs := make(map[string]bool, len(c.Steps))
	for si := range c.Steps {
		step := &c.Steps[si]
		if step.ID == "" {
			report("step %d: missing id", si+1)
		} else if stepIDs[step.ID] {
			report("step %q: duplicate id", step.ID)
		}
		stepIDs[step.ID] = true

		for fi := range step.Fields {
			fld := &step.Fields[fi]
			if fld.Kind == KindRepeater && fld.Max == 0 {
				fld.Max = defaultRepeaterMax
			}
			if fld.Kind == KindSectionTitle {
				continue
			}
			if fld.Key == "" {
				report("step %q: field %d (%s) has no key", step.ID, fi+1, fld.Kind)
				continue
			}
			if _, dup := c.index[fld.Key]; dup {
				report("field %q: duplicate key", fld.Key)
				continue
			}
			c.index[fld.Key] = fld
			c.order = append(c.order, fld)
		}
	}

	for _, step := range c.Steps {
		for fi := range step.Fields {
			for _, p := range c.checkField(&step.Fields[fi]) {
				report("%s", p)
			}
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func (c *Config) checkField(f *Field) []string {
	var problems []string
	name := f.Key
	if name == "" {
		name = f.Label
	}
	report := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf("field %q: ", name)+fmt.Sprintf(format, args...))
	}

	switch f.Kind {
	case 0:
		report("missing kind")
	case KindSelect, KindRadio:
		if len(f.Options) == 0 && f.OptionsFrom == "" {
			report("%s needs options or options_from", f.Kind)
		}
	case KindCheckboxes:
		if len(f.Options) == 0 && len(f.Groups) == 0 {
			report("checkboxes need options or groups")
		}
	case KindRepeater:
		if len(f.Template) == 0 {
			report("repeater needs a template")
		}
		if f.Min < 0 || f.Min > f.Max {
			report("repeater bounds must satisfy 0 <= min (%d) <= max (%d)", f.Min, f.Max)
		}
		seen := make(map[string]bool, len(f.Template))
		for _, sub := range f.Template {
			switch {
			case sub.Key == "":
				report("template field without key")
			case seen[sub.Key]:
				report("template key %q is duplicated", sub.Key)
			}
			seen[sub.Key] = true
			switch sub.Kind {
			case KindText, KindTextarea, KindDate, KindTime, KindSelect, KindRadio:
			default:
				report("template field %q: kind %s is not allowed in a repeater", sub.Key, sub.Kind)
			}
			if sub.Condition != nil {
				report("template field %q: conditions are not supported in a repeater", sub.Key)
			}
			if (sub.Kind == KindSelect || sub.Kind == KindRadio) && len(sub.Options) == 0 {
				report("template field %q: %s needs options", sub.Key, sub.Kind)
			}
			if sub.Default != nil {
				if _, ok := sub.Default.(string); !ok {
					report("template field %q: default must be a string", sub.Key)
				}
			}
		}
	}

	switch f.OptionsFrom {
	case "", OptionsFromStudents, OptionsFromSites, OptionsFromStaff:
	default:
		report("unknown options_from %q", f.OptionsFrom)
	}

	if f.Default != nil {
		switch f.Kind {
		case KindBoolean:
			if _, ok := f.Default.(bool); !ok {
				report("boolean default must be true or false")
			}
		case KindText, KindTextarea, KindDate, KindTime, KindSelect, KindRadio:
			if _, ok := f.Default.(string); !ok {
				report("default must be a string")
			}
		default:
			report("%s fields take no default", f.Kind)
		}
	}

	if cond := f.Condition; cond != nil {
		switch {
		case cond.DependsOn == "":
			report("condition without depends_on")
		case cond.DependsOn == f.Key:
			report("condition depends on the field itself")
		default:
			if _, ok := c.index[cond.DependsOn]; !ok {
				report("condition depends on unknown field %q", cond.DependsOn)
			}
		}
		if len(cond.Values) == 0 {
			report("condition without values")
		}
	}

	if d := f.Derive; d != nil {
		if f.Kind != KindReadonly {
			report("only readonly fields can be derived")
		}
		if d.Rule != RuleAge {
			report("unknown derive rule %q", d.Rule)
		}
		for _, src := range []string{d.From, d.At} {
			if srcFld, ok := c.index[src]; !ok {
				report("derive source %q does not exist", src)
			} else if srcFld.Kind != KindDate {
				report("derive source %q is not a date", src)
			}
		}
	}

	for _, target := range f.Autofill {
		if _, ok := c.index[target]; !ok {
			report("autofill target %q does not exist", target)
		}
	}
	return problems
}

// Field returns the top level field at key.
func (c *Config) Field(key string) (*Field, bool) {
	f, ok := c.index[key]
	return f, ok
}

// Fields returns all keyed fields, in step then field order.
func (c *Config) Fields() []*Field {
	return c.order
}

func (c *Config) StepCount() int {
	return len(c.Steps)
}

// Step returns the step at index i.
func (c *Config) Step(i int) (Step, bool) {
	if i < 0 || i >= len(c.Steps) {
		return Step{}, false
	}
	return c.Steps[i], true
}

// derivedFields lists readonly fields computed from other fields.
func (c *Config) derivedFields() []*Field {
	var derived []*Field
	for _, f := range c.order {
		if f.Derive != nil {
			derived = append(derived, f)
		}
	}
	return derived
}
