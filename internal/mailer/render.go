package mailer

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render substitutes {{key}} placeholders from values. Keys match
// case-insensitively; unknown placeholders and nil values are left untouched.
func Render(template string, values map[string]any) string {
	if len(values) == 0 || !strings.Contains(template, "{{") {
		return template
	}
	lookup := make(map[string]string, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		lookup[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if val, ok := lookup[strings.ToLower(key)]; ok {
			return val
		}
		return match
	})
}
