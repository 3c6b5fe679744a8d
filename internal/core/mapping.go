package core

// mapping.go resolves which CSV header feeds each canonical field.
//
// A Mapping goes canonical field name -> CSV header name. Auto-mapping
// compares names after lowercasing and removing underscores and spaces,
// so "First Name", "first_name" and "FIRSTNAME" all land on first_name.
// An explicit mapping from the caller overrides auto-mapping per field,
// and an explicit "" leaves the field unmapped.

import (
	"encoding/json"
	"sort"
	"strings"
)

// Mapping maps canonical field names to CSV header names.
type Mapping map[string]string

// NormalizeHeader folds a header or field name for auto-matching.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, " ", "")
}

// AutoMap matches each field to the first header with the same normalized name.
// Fields with no match are left out of the result.
func AutoMap(headers []string, fields []FieldSpec) Mapping {
	byNorm := make(map[string]string, len(headers))
	for _, h := range headers {
		n := NormalizeHeader(h)
		if n == "" {
			continue
		}
		if _, seen := byNorm[n]; !seen {
			byNorm[n] = h
		}
	}

	m := make(Mapping)
	for _, f := range fields {
		if h, ok := byNorm[NormalizeHeader(f.Name)]; ok {
			m[f.Name] = h
			continue
		}
		if h, ok := byNorm[NormalizeHeader(f.Label)]; ok {
			m[f.Name] = h
		}
	}
	return m
}

// ParseMappingJSON decodes a JSON object of field -> header.
// Empty input means "no explicit mapping".
func ParseMappingJSON(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, Validationf("invalid mapping: %v", err)
	}
	return m, nil
}

// ResolveMapping combines auto-mapping with explicit overrides and validates
// the result against the file's headers.
func ResolveMapping(headers []string, fields []FieldSpec, explicit map[string]string) (Mapping, error) {
	m := AutoMap(headers, fields)

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}

	var unknown []string
	for field, header := range explicit {
		if !known[field] {
			unknown = append(unknown, field)
			continue
		}
		if strings.TrimSpace(header) == "" {
			delete(m, field)
			continue
		}
		m[field] = strings.TrimSpace(header)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{
			Message: "unknown fields in mapping: " + strings.Join(unknown, ", "),
			Fields:  unknown,
		}
	}

	if err := ValidateMapping(m, headers, fields); err != nil {
		return nil, err
	}
	return m, nil
}

// ValidateMapping checks that every mapped header exists in the file and
// that every required field is mapped. The error names every missing field.
func ValidateMapping(m Mapping, headers []string, fields []FieldSpec) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var absent []string
	for _, header := range m {
		if !present[header] {
			absent = append(absent, header)
		}
	}
	if len(absent) > 0 {
		sort.Strings(absent)
		return Validationf("mapped columns not in file: %s", strings.Join(absent, ", "))
	}

	var missing []string
	for _, f := range fields {
		if f.Required && m[f.Name] == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			Message: "missing required fields: " + strings.Join(missing, ", "),
			Fields:  missing,
		}
	}
	return nil
}

// Apply projects a parsed row onto canonical field names.
// Unmapped fields are absent from the result.
func (m Mapping) Apply(row CSVRow) MappedRow {
	out := make(MappedRow, len(m))
	for field, header := range m {
		out[field] = row.Values[header]
	}
	return out
}

// MissingRequired returns the required fields that are empty in row.
func MissingRequired(row MappedRow, fields []FieldSpec) []string {
	var missing []string
	for _, f := range fields {
		if f.Required && row.Get(f.Name) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
