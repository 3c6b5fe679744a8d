package core

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	yes, no := true, false
	id12 := int64(12)

	tests := []struct {
		name    string
		raw     string
		want    Filters
		wantErr bool
	}{
		{name: "empty", raw: "", want: Filters{}},
		{name: "null", raw: "null", want: Filters{}},
		{
			name: "typed values",
			raw:  `{"search":" ada ","is_donor":true,"type":12}`,
			want: Filters{Search: "ada", IsDonor: &yes, TypeID: &id12},
		},
		{
			name: "string values coerced",
			raw:  `{"is_board_member":"false","company_id":"12"}`,
			want: Filters{IsBoardMember: &no, CompanyID: &id12},
		},
		{
			name: "all means no filter",
			raw:  `{"is_donor":"all","school_id":""}`,
			want: Filters{},
		},
		{
			name: "single element id list",
			raw:  `{"school_id":[12]}`,
			want: Filters{SchoolID: &id12},
		},
		{
			name: "unknown keys ignored",
			raw:  `{"color":"blue"}`,
			want: Filters{},
		},
		{name: "bad bool", raw: `{"is_donor":"maybe"}`, wantErr: true},
		{name: "negative id", raw: `{"company_id":-1}`, wantErr: true},
		{name: "fractional id", raw: `{"company_id":1.5}`, wantErr: true},
		{name: "not an object", raw: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilters(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	yes := true

	f, err := FiltersFromQuery(url.Values{"search": {"smith"}, "is_donor": {"yes"}})
	require.NoError(t, err)
	assert.Equal(t, Filters{Search: "smith", IsDonor: &yes}, f)

	f, err = FiltersFromQuery(url.Values{
		"filters": {`{"search":"ada"}`},
		"search":  {"ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", f.Search)
}

func TestFiltersMatches(t *testing.T) {
	f := Filters{Search: "LOVE"}
	assert.True(t, f.Matches("Ada", "Lovelace"))
	assert.False(t, f.Matches("Grace", "Hopper"))
	assert.True(t, Filters{}.Matches())
}

func TestFilterStateToQuery(t *testing.T) {
	q, err := FilterStateToQuery(json.RawMessage(`{
		"search": "smith",
		"is_donor": true,
		"company_id": 12,
		"tags": ["a", "b"],
		"range": {"from": 1},
		"empty": "",
		"gone": null
	}`))
	require.NoError(t, err)

	assert.Equal(t, url.Values{
		"search":     {"smith"},
		"is_donor":   {"true"},
		"company_id": {"12"},
		"tags":       {"a,b"},
		"range":      {`{"from":1}`},
	}, q)

	f, err := FiltersFromQuery(q)
	require.NoError(t, err)
	require.NotNil(t, f.IsDonor)
	assert.True(t, *f.IsDonor)
	require.NotNil(t, f.CompanyID)
	assert.Equal(t, int64(12), *f.CompanyID)
}

func TestFilterStateToQuery_Invalid(t *testing.T) {
	_, err := FilterStateToQuery(json.RawMessage(`"nope"`))
	assert.True(t, IsValidation(err))

	q, err := FilterStateToQuery(nil)
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestNormalizeFilterState(t *testing.T) {
	got, err := normalizeFilterState(json.RawMessage(" { \"a\" : 1 } "))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	got, err = normalizeFilterState(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	_, err = normalizeFilterState(json.RawMessage(`[1]`))
	assert.True(t, IsValidation(err))
}
