package wizard

import (
	"strings"
)

// defaulter computes the initial value of a field: its configured default, else the empty value of its kind.
type defaulter struct {
	value interface{}
	set   bool // false for kinds holding no value
}

func defaultValue(f *Field) (interface{}, bool) {
	d := new(defaulter)
	f.Accept(d)
	return d.value, d.set
}

func (d *defaulter) scalar(f *Field) {
	s, _ := f.Default.(string)
	d.value, d.set = s, true
}

func (d *defaulter) VisitText(f *Field)     { d.scalar(f) }
func (d *defaulter) VisitTextarea(f *Field) { d.scalar(f) }
func (d *defaulter) VisitDate(f *Field)     { d.scalar(f) }
func (d *defaulter) VisitTime(f *Field)     { d.scalar(f) }
func (d *defaulter) VisitSelect(f *Field)   { d.scalar(f) }
func (d *defaulter) VisitRadio(f *Field)    { d.scalar(f) }
func (d *defaulter) VisitReadonly(f *Field) { d.scalar(f) }

func (d *defaulter) VisitBoolean(f *Field) {
	d.set = true
	if b, ok := f.Default.(bool); ok {
		d.value = Bool(b)
		return
	}
	d.value = (*bool)(nil)
}

func (d *defaulter) VisitCheckboxes(*Field) { d.value, d.set = []string{}, true }

func (d *defaulter) VisitRepeater(f *Field) {
	items := make([]Item, 0, f.Min)
	for len(items) < f.Min {
		items = append(items, blankItem(f))
	}
	d.value, d.set = items, true
}

func (d *defaulter) VisitFileUpload(*Field)   { d.value, d.set = []Attachment{}, true }
func (d *defaulter) VisitSectionTitle(*Field) { d.value, d.set = nil, false }

// blankItem returns a repeater item holding the template defaults.
func blankItem(f *Field) Item {
	item := make(Item, len(f.Template))
	for _, sub := range f.Template {
		s, _ := sub.Default.(string)
		item[sub.Key] = s
	}
	return item
}

// satisfier reports whether a value satisfies a required field:
// a non-empty scalar, an explicit true/false, a list with at least one entry.
type satisfier struct {
	value interface{}
	ok    bool
}

func isSatisfied(f *Field, value interface{}) bool {
	s := &satisfier{value: value}
	f.Accept(s)
	return s.ok
}

func (s *satisfier) scalar(*Field) {
	str, _ := s.value.(string)
	s.ok = str != ""
}

func (s *satisfier) VisitText(f *Field)     { s.scalar(f) }
func (s *satisfier) VisitTextarea(f *Field) { s.scalar(f) }
func (s *satisfier) VisitDate(f *Field)     { s.scalar(f) }
func (s *satisfier) VisitTime(f *Field)     { s.scalar(f) }
func (s *satisfier) VisitSelect(f *Field)   { s.scalar(f) }
func (s *satisfier) VisitRadio(f *Field)    { s.scalar(f) }
func (s *satisfier) VisitReadonly(f *Field) { s.scalar(f) }

func (s *satisfier) VisitBoolean(*Field) {
	b, _ := s.value.(*bool)
	s.ok = b != nil
}

func (s *satisfier) VisitCheckboxes(*Field) {
	list, _ := s.value.([]string)
	s.ok = len(list) > 0
}

func (s *satisfier) VisitRepeater(*Field) {
	items, _ := s.value.([]Item)
	s.ok = len(items) > 0
}

func (s *satisfier) VisitFileUpload(*Field) {
	atts, _ := s.value.([]Attachment)
	s.ok = len(atts) > 0
}

func (s *satisfier) VisitSectionTitle(*Field) { s.ok = true }

// visibilityValue folds a raw state value to the form compared against condition values.
func visibilityValue(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return Canonical(v)
	case *bool:
		if v == nil {
			return ""
		}
		return boolString(*v)
	case bool:
		return boolString(v)
	default:
		return ""
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func parseBool(s string) (*bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, true
	case "true", "yes", "on", "1":
		return Bool(true), true
	case "false", "no", "off", "0":
		return Bool(false), true
	}
	return nil, false
}
