package wizard

import (
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/berguardian/core"
)

// ParseDate parses a calendar date (YYYY-MM-DD), ignoring any "T..." time suffix.
func ParseDate(s string) (time.Time, bool) {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(core.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Age returns the age in whole years at reference date `at` of someone born on `birth`,
// or "" when either date is missing or malformed.
func Age(birth, at string) string {
	b, ok := ParseDate(birth)
	if !ok {
		return ""
	}
	r, ok := ParseDate(at)
	if !ok {
		return ""
	}
	age := r.Year() - b.Year()
	if r.Month() < b.Month() || (r.Month() == b.Month() && r.Day() < b.Day()) {
		age--
	}
	return strconv.Itoa(age)
}

func derive(f *Field, state FormState) string {
	switch f.Derive.Rule {
	case RuleAge:
		return Age(state.String(f.Derive.From), state.String(f.Derive.At))
	}
	return ""
}

// recompute sets every derived field depending on one of changed (all of them when changed is empty).
func (e *Engine) recompute(state FormState, changed ...string) {
	for _, f := range e.cfg.derivedFields() {
		if len(changed) == 0 || dependsOn(f.Derive, changed) {
			state[f.Key] = derive(f, state)
		}
	}
}

func dependsOn(d *Derivation, keys []string) bool {
	for _, k := range keys {
		if k == d.From || k == d.At {
			return true
		}
	}
	return false
}
