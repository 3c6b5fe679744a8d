package core

// filters.go turns loosely-typed filter input into a typed Filters value.
//
// Filters arrive three ways: a JSON object in ?filters=, individual query
// parameters (what an applied saved view renders to), and saved-view
// filter_state blobs. All three go through coerceFilters so "true" and
// true, "12" and 12 mean the same thing. Unknown keys are ignored.

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var filterKeys = []string{"search", "is_donor", "is_fc_certified", "is_board_member", "type", "school_id", "company_id"}

// ParseFilters decodes a JSON filters object. Empty input yields no filters.
func ParseFilters(raw string) (Filters, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Filters{}, nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Filters{}, Validationf("invalid filters: %v", err)
	}
	return coerceFilters(m)
}

// FiltersFromQuery reads filters from URL query values. A "filters" JSON
// parameter takes precedence over individual keys.
func FiltersFromQuery(q url.Values) (Filters, error) {
	if raw := q.Get("filters"); raw != "" {
		return ParseFilters(raw)
	}

	m := make(map[string]any)
	for _, k := range filterKeys {
		if v := q.Get(k); v != "" {
			m[k] = v
		}
	}
	return coerceFilters(m)
}

func coerceFilters(m map[string]any) (Filters, error) {
	var f Filters
	var err error

	if v, ok := m["search"]; ok && v != nil {
		f.Search = strings.TrimSpace(fmt.Sprint(v))
	}
	if f.IsDonor, err = coerceBool("is_donor", m["is_donor"]); err != nil {
		return Filters{}, err
	}
	if f.IsFCCertified, err = coerceBool("is_fc_certified", m["is_fc_certified"]); err != nil {
		return Filters{}, err
	}
	if f.IsBoardMember, err = coerceBool("is_board_member", m["is_board_member"]); err != nil {
		return Filters{}, err
	}
	if f.TypeID, err = coerceID("type", m["type"]); err != nil {
		return Filters{}, err
	}
	if f.SchoolID, err = coerceID("school_id", m["school_id"]); err != nil {
		return Filters{}, err
	}
	if f.CompanyID, err = coerceID("company_id", m["company_id"]); err != nil {
		return Filters{}, err
	}
	return f, nil
}

// coerceBool accepts JSON bools and bool-ish strings. "", "all" and null
// mean "no filter".
func coerceBool(key string, v any) (*bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "all") {
			return nil, nil
		}
		if b := ParseOptionalBool(s); b != nil {
			return b, nil
		}
	}
	return nil, &ValidationError{Message: fmt.Sprintf("filter %s must be true or false", key), Fields: []string{key}}
}

// coerceID accepts positive integers as JSON numbers or strings.
// A single-element array is accepted for id-list style filters.
func coerceID(key string, v any) (*int64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if t > 0 && t == float64(int64(t)) {
			id := int64(t)
			return &id, nil
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "all") {
			return nil, nil
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
			return &id, nil
		}
	case []any:
		if len(t) == 0 {
			return nil, nil
		}
		if len(t) == 1 {
			return coerceID(key, t[0])
		}
	}
	return nil, &ValidationError{Message: fmt.Sprintf("filter %s must be a positive id", key), Fields: []string{key}}
}

// Matches reports whether a search term matches any of the given fields,
// case-insensitively. Used by in-memory stores; SQL stores use ILIKE.
func (f Filters) Matches(fields ...string) bool {
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}
