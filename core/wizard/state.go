package wizard

import "time"

type (
	// FormState maps field keys to values. Shapes by kind:
	// string for scalars, *bool for booleans (nil: unset), []string for checkboxes,
	// []Item for repeaters and []Attachment for file uploads.
	FormState map[string]interface{}

	// Item is one repeater entry, keyed by the repeater's template keys.
	Item map[string]string

	Attachment struct {
		Name       string    `json:"name"`
		URL        string    `json:"url"`
		Size       int64     `json:"size"`
		Type       string    `json:"type"`
		UploadedAt time.Time `json:"uploaded_at"`
	}
)

func Bool(b bool) *bool { return &b }

// Clone returns a deep copy of the state: no slice, item or pointer is shared.
func (s FormState) Clone() FormState {
	out := make(FormState, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *bool:
		if val == nil {
			return (*bool)(nil)
		}
		return Bool(*val)
	case []string:
		return append(make([]string, 0, len(val)), val...)
	case []Item:
		items := make([]Item, 0, len(val))
		for _, item := range val {
			items = append(items, item.clone())
		}
		return items
	case []Attachment:
		return append(make([]Attachment, 0, len(val)), val...)
	default:
		return v
	}
}

func (it Item) clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// String returns the scalar at key, or "".
func (s FormState) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns the boolean at key; nil when unset.
func (s FormState) Bool(key string) *bool {
	v, _ := s[key].(*bool)
	return v
}

func (s FormState) Strings(key string) []string {
	if v, ok := s[key].([]string); ok {
		return v
	}
	return []string{}
}

func (s FormState) Items(key string) []Item {
	if v, ok := s[key].([]Item); ok {
		return v
	}
	return []Item{}
}

func (s FormState) Attachments(key string) []Attachment {
	if v, ok := s[key].([]Attachment); ok {
		return v
	}
	return []Attachment{}
}

// Restrict returns a copy of the state holding only keys.
func (s FormState) Restrict(keys ...string) FormState {
	out := make(FormState, len(keys))
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = cloneValue(v)
		}
	}
	return out
}
