package wizard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/trezcool/berguardian/core"
)

// Normalize coerces decoded JSON input (or any loosely typed map) into the value shapes of FormState.
// Free text is stripped of markup; keys unknown to cfg are dropped.
func Normalize(cfg *Config, raw map[string]interface{}) FormState {
	out := make(FormState, len(raw))
	for _, f := range cfg.Fields() {
		v, ok := raw[f.Key]
		if !ok {
			continue
		}
		if val, ok := coerce(f, v, true); ok {
			out[f.Key] = val
		}
	}
	return out
}

// coercer converts a raw value to the shape of the visited field.
type coercer struct {
	raw      interface{}
	sanitize bool
	value    interface{}
	set      bool
}

func coerce(f *Field, raw interface{}, sanitize bool) (interface{}, bool) {
	c := &coercer{raw: raw, sanitize: sanitize}
	f.Accept(c)
	return c.value, c.set
}

func (c *coercer) scalar(*Field) {
	c.value, c.set = scalarString(c.raw), true
}

func (c *coercer) text(*Field) {
	s := scalarString(c.raw)
	if c.sanitize {
		s = core.SanitizeText(s)
	}
	c.value, c.set = s, true
}

func (c *coercer) VisitText(f *Field)     { c.text(f) }
func (c *coercer) VisitTextarea(f *Field) { c.text(f) }
func (c *coercer) VisitSelect(f *Field)   { c.scalar(f) }
func (c *coercer) VisitRadio(f *Field)    { c.scalar(f) }
func (c *coercer) VisitReadonly(f *Field) { c.scalar(f) }

// VisitTime keeps times to the minute: "10:15:30" becomes "10:15".
func (c *coercer) VisitTime(f *Field) {
	c.scalar(f)
	if t, err := time.Parse("15:04:05", c.value.(string)); err == nil {
		c.value = t.Format("15:04")
	}
}

func (c *coercer) VisitDate(f *Field) {
	if t, ok := c.raw.(time.Time); ok {
		c.value, c.set = t.Format(core.DateLayout), true
		return
	}
	c.scalar(f)
}

func (c *coercer) VisitBoolean(*Field) {
	c.set = true
	switch v := c.raw.(type) {
	case *bool:
		if v != nil {
			c.value = Bool(*v)
			return
		}
	case bool:
		c.value = Bool(v)
		return
	case string:
		if b, ok := parseBool(v); ok {
			c.value = b
			return
		}
	case float64:
		c.value = Bool(v != 0)
		return
	}
	c.value = (*bool)(nil)
}

func (c *coercer) VisitCheckboxes(*Field) {
	var items []string
	switch v := c.raw.(type) {
	case []string:
		items = v
	case []interface{}:
		items = make([]string, 0, len(v))
		for _, it := range v {
			items = append(items, scalarString(it))
		}
	case string:
		items = []string{v}
	}

	// a checkbox group is a set: drop blanks and duplicates, keep the first position
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	c.value, c.set = out, true
}

func (c *coercer) VisitRepeater(f *Field) {
	var rawItems []map[string]interface{}
	switch v := c.raw.(type) {
	case []Item:
		for _, it := range v {
			m := make(map[string]interface{}, len(it))
			for k, s := range it {
				m[k] = s
			}
			rawItems = append(rawItems, m)
		}
	case []map[string]string:
		for _, it := range v {
			m := make(map[string]interface{}, len(it))
			for k, s := range it {
				m[k] = s
			}
			rawItems = append(rawItems, m)
		}
	case []map[string]interface{}:
		rawItems = v
	case []interface{}:
		for _, it := range v {
			if m, ok := it.(map[string]interface{}); ok {
				rawItems = append(rawItems, m)
			}
		}
	}

	items := make([]Item, 0, len(rawItems))
	for _, m := range rawItems {
		item := blankItem(f)
		for i := range f.Template {
			sub := &f.Template[i]
			rv, ok := m[sub.Key]
			if !ok {
				continue
			}
			if val, ok := coerce(sub, rv, c.sanitize); ok {
				item[sub.Key], _ = val.(string)
			}
		}
		items = append(items, item)
	}
	c.value, c.set = items, true
}

func (c *coercer) VisitFileUpload(*Field) {
	var atts []Attachment
	switch v := c.raw.(type) {
	case []Attachment:
		atts = append(atts, v...)
	case []interface{}:
		for _, it := range v {
			if m, ok := it.(map[string]interface{}); ok {
				atts = append(atts, attachmentFromMap(m))
			}
		}
	}
	if atts == nil {
		atts = []Attachment{}
	}
	c.value, c.set = atts, true
}

func (c *coercer) VisitSectionTitle(*Field) { c.value, c.set = nil, false }

func attachmentFromMap(m map[string]interface{}) Attachment {
	att := Attachment{
		Name: scalarString(m["name"]),
		URL:  scalarString(m["url"]),
		Type: scalarString(m["type"]),
	}
	switch size := m["size"].(type) {
	case float64:
		att.Size = int64(size)
	case int64:
		att.Size = size
	case int:
		att.Size = int64(size)
	case json.Number:
		att.Size, _ = size.Int64()
	}
	uploaded := scalarString(m["uploaded_at"])
	if uploaded == "" {
		uploaded = scalarString(m["uploadedAt"])
	}
	if t, err := time.Parse(time.RFC3339Nano, uploaded); err == nil {
		att.UploadedAt = t
	}
	return att
}

func scalarString(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case *bool:
		if v == nil {
			return ""
		}
		return boolString(*v)
	case bool:
		return boolString(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
