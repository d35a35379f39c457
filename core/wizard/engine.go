package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/berguardian/core"
)

var (
	// errors
	ErrUnknownField    = errors.New("unknown field")
	ErrNotRepeater     = errors.New("field is not a repeater")
	ErrNotFileUpload   = errors.New("field is not a file upload")
	ErrRepeaterFull    = errors.New("repeater already holds its maximum number of items")
	ErrRepeaterMin     = errors.New("repeater cannot hold fewer than its minimum number of items")
	ErrIndexOutOfRange = errors.New("item index out of range")
)

type (
	// Lookup resolves the autofill values of a select (eg. a student's dob and site).
	// found=false clears the autofill targets.
	Lookup func(ctx context.Context, value string) (values map[string]string, found bool)

	EngineOption func(*Engine)

	// Engine drives a wizard over a FormState. Every operation returns a new state;
	// inputs are never mutated.
	Engine struct {
		cfg      *Config
		autofill map[string]Lookup
		now      func() time.Time
	}

	Violation struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	}

	// Violations are unsatisfied required fields, in step then field order.
	Violations []Violation
)

func WithAutofill(key string, fn Lookup) EngineOption {
	return func(e *Engine) { e.autofill[key] = fn }
}

// WithClock sets the clock stamping uploaded attachments.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(cfg *Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:      cfg,
		autofill: make(map[string]Lookup),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() *Config { return e.cfg }

// Initialize merges initial over the field defaults. Repeaters are padded to their minimum
// and derived fields are recomputed.
func (e *Engine) Initialize(initial FormState) FormState {
	state := make(FormState, len(e.cfg.Fields()))
	for _, f := range e.cfg.Fields() {
		var (
			val interface{}
			set bool
		)
		if raw, ok := initial[f.Key]; ok {
			val, set = coerce(f, raw, false)
		} else {
			val, set = defaultValue(f)
		}
		if !set {
			continue
		}
		if f.Kind == KindRepeater {
			val = fitItems(f, val.([]Item))
		}
		state[f.Key] = val
	}
	e.recompute(state)
	return state
}

// fitItems pads items to the repeater minimum and drops the items past its maximum.
func fitItems(f *Field, items []Item) []Item {
	if f.Max > 0 && len(items) > f.Max {
		items = items[:f.Max:f.Max]
	}
	for len(items) < f.Min {
		items = append(items, blankItem(f))
	}
	return items
}

// IsVisible reports whether f is shown for state: always without a condition, otherwise when
// the canonical value of the depended-on field is one of the canonical condition values.
func (e *Engine) IsVisible(f *Field, state FormState) bool {
	if f.Condition == nil {
		return true
	}
	current := visibilityValue(state[f.Condition.DependsOn])
	for _, allowed := range f.Condition.Values {
		if Canonical(allowed) == current {
			return true
		}
	}
	return false
}

// OnChange returns a copy of state with key set to value, autofill applied and the derived
// fields depending on the changed keys recomputed. Unknown and derived keys are ignored.
func (e *Engine) OnChange(state FormState, key string, value interface{}) FormState {
	return e.OnChangeContext(context.Background(), state, key, value)
}

// OnChangeContext is OnChange with ctx passed to the autofill lookups.
func (e *Engine) OnChangeContext(ctx context.Context, state FormState, key string, value interface{}) FormState {
	next := state.Clone()
	f, ok := e.cfg.Field(key)
	if !ok || f.Derive != nil {
		return next
	}
	val, set := coerce(f, value, false)
	if !set {
		return next
	}
	if f.Kind == KindRepeater {
		val = fitItems(f, val.([]Item))
	}
	next[key] = val

	changed := []string{key}
	if lookup, ok := e.autofill[key]; ok && len(f.Autofill) > 0 {
		values, found := lookup(ctx, next.String(key))
		for _, target := range f.Autofill {
			tf, _ := e.cfg.Field(target)
			var raw interface{}
			if found {
				raw = values[target]
			}
			if tv, set := coerce(tf, raw, false); set {
				next[target] = tv
			}
			changed = append(changed, target)
		}
	}
	e.recompute(next, changed...)
	return next
}

// ValidateStep returns the visible required fields of fields that state leaves unsatisfied,
// followed in place by the empty required sub-fields of each repeater item.
func (e *Engine) ValidateStep(fields []Field, state FormState) Violations {
	var violations Violations
	for i := range fields {
		f := &fields[i]
		if f.Kind == KindSectionTitle || !e.IsVisible(f, state) {
			continue
		}
		if f.Required && !isSatisfied(f, state[f.Key]) {
			violations = append(violations, Violation{Key: f.Key, Label: f.DisplayLabel()})
		}
		if f.Kind == KindRepeater {
			items, _ := state[f.Key].([]Item)
			for n, item := range items {
				for _, sub := range f.Template {
					if sub.Required && item[sub.Key] == "" {
						violations = append(violations, Violation{
							Key:   fmt.Sprintf("%s.%d.%s", f.Key, n, sub.Key),
							Label: fmt.Sprintf("%s (Item %d - %s)", f.DisplayLabel(), n+1, sub.DisplayLabel()),
						})
					}
				}
			}
		}
	}
	return violations
}

// ValidateAll validates every step, in step order.
func (e *Engine) ValidateAll(state FormState) Violations {
	var violations Violations
	for _, step := range e.cfg.Steps {
		violations = append(violations, e.ValidateStep(step.Fields, state)...)
	}
	return violations
}

// Advance returns the index of the step following current, staying on the last step.
func Advance(current, total int) int {
	if next := current + 1; next < total {
		return next
	}
	if total < 1 {
		return 0
	}
	return total - 1
}

// Retreat returns the index of the step preceding current, staying on the first step.
func Retreat(current int) int {
	if current < 1 {
		return 0
	}
	return current - 1
}

// Next advances from step current only when that step validates.
func (e *Engine) Next(current int, state FormState) (int, Violations) {
	step, ok := e.cfg.Step(current)
	if !ok {
		return current, nil
	}
	if violations := e.ValidateStep(step.Fields, state); len(violations) > 0 {
		return current, violations
	}
	return Advance(current, e.cfg.StepCount()), nil
}

// Back returns to the previous step; going back never validates.
func (e *Engine) Back(current int) int {
	return Retreat(current)
}

func (e *Engine) repeater(key string) (*Field, error) {
	f, ok := e.cfg.Field(key)
	if !ok {
		return nil, ErrUnknownField
	}
	if f.Kind != KindRepeater {
		return nil, ErrNotRepeater
	}
	return f, nil
}

// AddItem appends a blank item to the repeater at key.
func (e *Engine) AddItem(state FormState, key string) (FormState, error) {
	f, err := e.repeater(key)
	if err != nil {
		return state, err
	}
	items := state.Items(key)
	if len(items) >= f.Max {
		return state, ErrRepeaterFull
	}
	next := state.Clone()
	next[key] = append(next.Items(key), blankItem(f))
	return next, nil
}

// RemoveItem removes the item at index (0-based) from the repeater at key.
func (e *Engine) RemoveItem(state FormState, key string, index int) (FormState, error) {
	f, err := e.repeater(key)
	if err != nil {
		return state, err
	}
	items := state.Items(key)
	if index < 0 || index >= len(items) {
		return state, ErrIndexOutOfRange
	}
	if len(items) <= f.Min {
		return state, ErrRepeaterMin
	}
	next := state.Clone()
	kept := next.Items(key)
	next[key] = append(kept[:index:index], kept[index+1:]...)
	return next, nil
}

func (v Violations) Labels() []string {
	labels := make([]string, 0, len(v))
	for _, vl := range v {
		labels = append(labels, vl.Label)
	}
	return labels
}

// Err returns nil when there is no violation, a *core.ValidationError otherwise.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	flds := make([]core.FieldError, 0, len(v))
	for _, vl := range v {
		flds = append(flds, core.FieldError{Field: vl.Key, Error: vl.Label + " is required"})
	}
	return core.NewValidationError(fmt.Errorf("%d required field(s) missing", len(v)), flds...)
}
