package wizard

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the closed set of field kinds a wizard can render.
type Kind int

const (
	KindText Kind = iota + 1
	KindTextarea
	KindDate
	KindTime
	KindSelect
	KindRadio
	KindBoolean
	KindCheckboxes
	KindRepeater
	KindFileUpload
	KindSectionTitle
	KindReadonly
)

var (
	kindNames = map[Kind]string{
		KindText:         "text",
		KindTextarea:     "textarea",
		KindDate:         "date",
		KindTime:         "time",
		KindSelect:       "select",
		KindRadio:        "radio",
		KindBoolean:      "boolean",
		KindCheckboxes:   "checkboxes",
		KindRepeater:     "repeater",
		KindFileUpload:   "file_upload",
		KindSectionTitle: "section_title",
		KindReadonly:     "readonly",
	}

	kindAliases = map[string]Kind{
		"checkbox-group":   KindCheckboxes,
		"checkbox_group":   KindCheckboxes,
		"file-upload":      KindFileUpload,
		"section-title":    KindSectionTitle,
		"readonly-derived": KindReadonly,
		"conditional-time": KindTime,
	}

	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// ParseKind accepts the canonical kind names as well as a few legacy spellings.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseKind(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Canonical folds a label or a state value to its comparable form:
// lower case, runs of whitespace replaced by a single underscore.
func Canonical(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
}

// Option is a choice of a select or radio field.
// An option configured with a bare label gets Canonical(label) as value.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

func (o *Option) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		o.Label = value.Value
		o.Value = Canonical(value.Value)
		return nil
	}
	type rawOption Option
	var raw rawOption
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*o = Option(raw)
	if o.Value == "" {
		o.Value = Canonical(o.Label)
	}
	return nil
}

// Group is a labelled partition of checkbox items (eg. discipline tiers).
type Group struct {
	Name  string   `yaml:"name" json:"name"`
	Items []string `yaml:"items" json:"items"`
}

// Condition makes a field visible only when the field at DependsOn holds one of Values.
type Condition struct {
	DependsOn string   `yaml:"depends_on" json:"depends_on"`
	Values    []string `yaml:"values" json:"values"`
}

const RuleAge = "age"

// Derivation computes a readonly field from two date fields.
type Derivation struct {
	Rule string `yaml:"rule" json:"rule"`
	From string `yaml:"from" json:"from"` // birth date key
	At   string `yaml:"at" json:"at"`     // reference date key
}

// Dynamic option sources supplied by the caller at render time.
const (
	OptionsFromStudents = "students"
	OptionsFromSites    = "sites"
	OptionsFromStaff    = "staff"
)

type Field struct {
	Kind        Kind        `yaml:"kind" json:"kind"`
	Key         string      `yaml:"key" json:"key,omitempty"`
	Label       string      `yaml:"label" json:"label,omitempty"`
	Required    bool        `yaml:"required" json:"required,omitempty"`
	Help        string      `yaml:"help" json:"help,omitempty"`
	Placeholder string      `yaml:"placeholder" json:"placeholder,omitempty"`
	Description string      `yaml:"description" json:"description,omitempty"`
	Options     []Option    `yaml:"options" json:"options,omitempty"`
	OptionsFrom string      `yaml:"options_from" json:"options_from,omitempty"`
	Groups      []Group     `yaml:"groups" json:"groups,omitempty"`
	Template    []Field     `yaml:"template" json:"template,omitempty"`
	Min         int         `yaml:"min" json:"min,omitempty"`
	Max         int         `yaml:"max" json:"max,omitempty"`
	Condition   *Condition  `yaml:"condition" json:"condition,omitempty"`
	Default     interface{} `yaml:"default" json:"default,omitempty"`
	Derive      *Derivation `yaml:"derive" json:"derive,omitempty"`
	Autofill    []string    `yaml:"autofill" json:"autofill,omitempty"`
	Multiple    bool        `yaml:"multiple" json:"multiple,omitempty"`
	AcceptTypes string      `yaml:"accept" json:"accept,omitempty"`
}

// DisplayLabel is the label used in violations: the label, else the key.
func (f *Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// Items lists the checkbox labels of a flat or grouped checkbox field, in display order.
func (f *Field) Items() []string {
	if len(f.Groups) == 0 {
		items := make([]string, 0, len(f.Options))
		for _, opt := range f.Options {
			items = append(items, opt.Label)
		}
		return items
	}
	var items []string
	for _, grp := range f.Groups {
		items = append(items, grp.Items...)
	}
	return items
}

// OptionLabel returns the label of the option holding value (or value itself).
func (f *Field) OptionLabel(value string) string {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// Accepts reports whether a file named name may be uploaded to f, going by its extension.
func (f *Field) Accepts(name string) bool {
	if strings.TrimSpace(f.AcceptTypes) == "" {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	for _, accepted := range strings.Split(f.AcceptTypes, ",") {
		if strings.ToLower(strings.TrimSpace(accepted)) == ext {
			return true
		}
	}
	return false
}

func (f *Field) subField(key string) (*Field, bool) {
	for i := range f.Template {
		if f.Template[i].Key == key {
			return &f.Template[i], true
		}
	}
	return nil, false
}

// Visitor has one method per field Kind. Field.Accept is the only place dispatching on kind.
type Visitor interface {
	VisitText(f *Field)
	VisitTextarea(f *Field)
	VisitDate(f *Field)
	VisitTime(f *Field)
	VisitSelect(f *Field)
	VisitRadio(f *Field)
	VisitBoolean(f *Field)
	VisitCheckboxes(f *Field)
	VisitRepeater(f *Field)
	VisitFileUpload(f *Field)
	VisitSectionTitle(f *Field)
	VisitReadonly(f *Field)
}

func (f *Field) Accept(v Visitor) {
	switch f.Kind {
	case KindText:
		v.VisitText(f)
	case KindTextarea:
		v.VisitTextarea(f)
	case KindDate:
		v.VisitDate(f)
	case KindTime:
		v.VisitTime(f)
	case KindSelect:
		v.VisitSelect(f)
	case KindRadio:
		v.VisitRadio(f)
	case KindBoolean:
		v.VisitBoolean(f)
	case KindCheckboxes:
		v.VisitCheckboxes(f)
	case KindRepeater:
		v.VisitRepeater(f)
	case KindFileUpload:
		v.VisitFileUpload(f)
	case KindSectionTitle:
		v.VisitSectionTitle(f)
	case KindReadonly:
		v.VisitReadonly(f)
	}
}
