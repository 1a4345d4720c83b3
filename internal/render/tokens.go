package render

import "regexp"

var tokenPattern = regexp.MustCompile(`\{\{\s*([a-z_]+)\s*\}\}`)

// Substitute replaces each recognized {{token}} in s with its value from
// fields. Unrecognized tokens are left exactly as written.
func Substitute(s string, fields Fields) string {
	if s == "" {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := tokenPattern.FindStringSubmatch(match)[1]
		if v, ok := fields.Lookup(name); ok {
			return v
		}
		return match
	})
}
