package render

import (
	"regexp"

	"bizledger/internal/core"
)

// Free-form style values end up inside inline style attributes, so each one
// must be a single plain CSS value: no declaration separators, no url(),
// no escapes.
var (
	colorPattern      = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}|(rgb|rgba|hsl|hsla)\(\s*[0-9.]+%?\s*(,\s*[0-9.]+%?\s*){2,3}\))$`)
	fontSizePattern   = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]{1,2})?(px|pt|em|rem|%)$`)
	fontFamilyPattern = regexp.MustCompile(`^[a-zA-Z0-9 ,'"_-]{1,120}$`)
	borderPattern     = regexp.MustCompile(`^([0-9]{1,2}(\.[0-9])?(px|pt|em|rem)\s+)?(none|solid|dashed|dotted|double)(\s+(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}))?$`)
)

type cssRule struct {
	field   string
	value   *string
	def     string
	pattern *regexp.Regexp
}

// normalizeCSSValues replaces blank values by their default, and values
// that do not match their pattern by the default with a warning.
func normalizeCSSValues(s *StyleConfig, warnings *[]core.ConfigValidationWarning) {
	rules := []cssRule{
		{"styleConfig.fontFamily", &s.FontFamily, DefaultFontFamily, fontFamilyPattern},
		{"styleConfig.fontSize", &s.FontSize, DefaultFontSize, fontSizePattern},
		{"styleConfig.primaryColor", &s.PrimaryColor, DefaultPrimaryColor, colorPattern},
		{"styleConfig.secondaryColor", &s.SecondaryColor, DefaultSecondaryColor, colorPattern},
		{"styleConfig.textColor", &s.TextColor, DefaultTextColor, colorPattern},
		{"styleConfig.borderStyle", &s.BorderStyle, DefaultBorderStyle, borderPattern},
	}
	for _, r := range rules {
		switch {
		case *r.value == "":
			*r.value = r.def
		case !r.pattern.MatchString(*r.value):
			*warnings = append(*warnings, core.ConfigValidationWarning{Field: r.field, Value: *r.value, Fallback: r.def})
			*r.value = r.def
		}
	}
}
