package core

// convert.go turns raw CSV cell text into typed values.
//
// User-provided spreadsheets are messy: Excel formula prefixes (="value"),
// stray quotes, state names spelled out, and a dozen ways of writing "yes".
// Every cell passes through CleanCell before any other conversion.

import (
	"strconv"
	"strings"
)

// CleanCell removes common spreadsheet artifacts from a cell value:
//   - Trims whitespace
//   - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(s)
}

// IsTruthy reports whether a cell holds a truthy marker.
// Accepts yes/y/true/t/1/x (case-insensitive); everything else is false.
func IsTruthy(s string) bool {
	switch strings.ToLower(CleanCell(s)) {
	case "true", "t", "yes", "y", "1", "x":
		return true
	default:
		return false
	}
}

// FormatBool renders a flag the way exports write it.
// IsTruthy reads it back as the same value.
func FormatBool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ParseOptionalBool converts loosely-typed input to *bool.
// Returns nil for empty or unrecognised text.
func ParseOptionalBool(s string) *bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		b := true
		return &b
	case "false", "f", "no", "n", "0":
		b := false
		return &b
	default:
		return nil
	}
}

// ParseOptionalID converts text to *int64. Returns nil for empty input.
func ParseOptionalID(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, Validationf("invalid id %q", s)
	}
	return &id, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(CleanCell(s))
}

// usStates maps US state full names to their abbreviations.
var usStates = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"district of columbia": "DC",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
}

// NormalizeUSState converts US state names to their 2-letter abbreviations.
// Unrecognised input is returned trimmed but otherwise unchanged.
func NormalizeUSState(s string) string {
	s = CleanCell(s)
	if code, ok := usStates[strings.ToLower(s)]; ok {
		return code
	}
	if len(s) == 2 {
		upper := strings.ToUpper(s)
		for _, code := range usStates {
			if code == upper {
				return code
			}
		}
	}
	return s
}
