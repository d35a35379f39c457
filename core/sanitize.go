package core

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// SanitizeText strips any markup from user supplied free text (narratives, notes).
// Entities produced by the policy are unescaped again: the value is stored as plain text
// and escaped when rendered.
func SanitizeText(raw string) string {
	if raw == "" || !strings.ContainsAny(raw, "<>&") {
		return raw
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return html.UnescapeString(textPolicy.Sanitize(raw))
}
