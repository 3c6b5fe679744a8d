package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantHeaders []string
		wantRows    []map[string]string
	}{
		{
			name:        "simple",
			input:       "first_name,last_name\nAda,Lovelace\n",
			wantHeaders: []string{"first_name", "last_name"},
			wantRows:    []map[string]string{{"first_name": "Ada", "last_name": "Lovelace"}},
		},
		{
			name:        "quoted comma stays in field",
			input:       "name,age\n\"Smith, John\",30\n",
			wantHeaders: []string{"name", "age"},
			wantRows:    []map[string]string{{"name": "Smith, John", "age": "30"}},
		},
		{
			name:        "space after closing quote still separates",
			input:       "name,age\n\"Smith, John\" ,30\n",
			wantHeaders: []string{"name", "age"},
			wantRows:    []map[string]string{{"name": "Smith, John", "age": "30"}},
		},
		{
			name:        "space after quoted last column keeps next row",
			input:       "first_name,last_name,company\nAda,Lovelace,\"Engine Works, Inc\" \nGrace,Hopper,Navy\n",
			wantHeaders: []string{"first_name", "last_name", "company"},
			wantRows: []map[string]string{
				{"first_name": "Ada", "last_name": "Lovelace", "company": "Engine Works, Inc"},
				{"first_name": "Grace", "last_name": "Hopper", "company": "Navy"},
			},
		},
		{
			name:        "text after closing quote stays in field",
			input:       "name,age\n\"Smith\" Jr,30\n",
			wantHeaders: []string{"name", "age"},
			wantRows:    []map[string]string{{"name": "Smith Jr", "age": "30"}},
		},
		{
			name:        "quote mid field toggles",
			input:       "name,age\nA\"b,c\"d,1\n",
			wantHeaders: []string{"name", "age"},
			wantRows:    []map[string]string{{"name": "Ab,cd", "age": "1"}},
		},
		{
			name:        "unterminated quote runs to end",
			input:       "name,age\n\"open,1\n",
			wantHeaders: []string{"name", "age"},
			wantRows:    []map[string]string{{"name": "open,1", "age": ""}},
		},
		{
			name:        "no trailing newline",
			input:       "a,b\n1,2",
			wantHeaders: []string{"a", "b"},
			wantRows:    []map[string]string{{"a": "1", "b": "2"}},
		},
		{
			name:        "blank and whitespace lines skipped",
			input:       "a,b\n\n1,2\n   \n3,4\n\n",
			wantHeaders: []string{"a", "b"},
			wantRows: []map[string]string{
				{"a": "1", "b": "2"},
				{"a": "3", "b": "4"},
			},
		},
		{
			name:        "headers and values trimmed",
			input:       " a , b \n  x  , y \n",
			wantHeaders: []string{"a", "b"},
			wantRows:    []map[string]string{{"a": "x", "b": "y"}},
		},
		{
			name:        "missing trailing values are empty",
			input:       "a,b,c\n1\n",
			wantHeaders: []string{"a", "b", "c"},
			wantRows:    []map[string]string{{"a": "1", "b": "", "c": ""}},
		},
		{
			name:        "extra values dropped",
			input:       "a,b\n1,2,3,4\n",
			wantHeaders: []string{"a", "b"},
			wantRows:    []map[string]string{{"a": "1", "b": "2"}},
		},
		{
			name:        "doubled quote unescapes",
			input:       "quote\n\"He said \"\"hi\"\"\"\n",
			wantHeaders: []string{"quote"},
			wantRows:    []map[string]string{{"quote": `He said "hi"`}},
		},
		{
			name:        "quoted field spans lines",
			input:       "name,notes\nAda,\"line one\nline two\"\n",
			wantHeaders: []string{"name", "notes"},
			wantRows:    []map[string]string{{"name": "Ada", "notes": "line one\nline two"}},
		},
		{
			name:        "first duplicate header wins",
			input:       "a,a\n1,2\n",
			wantHeaders: []string{"a", "a"},
			wantRows:    []map[string]string{{"a": "1"}},
		},
		{
			name:        "CRLF line endings",
			input:       "a,b\r\n1,2\r\n",
			wantHeaders: []string{"a", "b"},
			wantRows:    []map[string]string{{"a": "1", "b": "2"}},
		},
		{
			name:        "header only",
			input:       "a,b\n",
			wantHeaders: []string{"a", "b"},
			wantRows:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeaders, got.Headers)

			var rows []map[string]string
			for _, r := range got.Rows {
				rows = append(rows, r.Values)
			}
			assert.Equal(t, tt.wantRows, rows)
		})
	}
}

func TestParse_EveryRowHasEveryHeader(t *testing.T) {
	got, err := ParseString("a,b,c\n1\n1,2\n1,2,3\n1,2,3,4\n")
	require.NoError(t, err)
	require.Len(t, got.Rows, 4)
	for _, r := range got.Rows {
		assert.Len(t, r.Values, 3)
	}
}

func TestParse_RowCountMatchesDataLines(t *testing.T) {
	input := "a,b,c\n" +
		"\"x, y\" ,2,3\n" +
		"1,\"two\"  ,3\n" +
		"1,2,\"three\" \n" +
		"4,5,6\n"
	got, err := ParseString(input)
	require.NoError(t, err)
	require.Len(t, got.Rows, 4)
	for _, r := range got.Rows {
		assert.Len(t, r.Values, 3)
	}
	assert.Equal(t, "x, y", got.Rows[0].Values["a"])
	assert.Equal(t, "two", got.Rows[1].Values["b"])
	assert.Equal(t, "three", got.Rows[2].Values["c"])
	assert.Equal(t, 5, got.Rows[3].Line)
}

func TestParse_LineNumbers(t *testing.T) {
	got, err := ParseString("a\n\n1\n\"multi\nline\"\n3\n")
	require.NoError(t, err)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, 3, got.Rows[0].Line)
	assert.Equal(t, 4, got.Rows[1].Line)
	assert.Equal(t, 6, got.Rows[2].Line)
}

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "\n\n", "   \n"} {
		_, err := ParseString(input)
		assert.ErrorIs(t, err, ErrEmptyFile, "input %q", input)
	}
}

func TestParse_CleanReader(t *testing.T) {
	got, err := Parse(CleanReader(strings.NewReader("\xEF\xBB\xBFname\nCaf\xe9\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, got.Headers)
	assert.Equal(t, "Caf?", got.Rows[0].Values["name"])
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	header := []string{"name", "notes", "email"}
	rows := [][]string{
		{"Smith, John", `He said "hi"`, "john@example.org"},
		{"Ada", "line one\nline two", ""},
		{"Plain", "", "plain@example.org"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, header, rows))

	got, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, header, got.Headers)
	require.Len(t, got.Rows, len(rows))
	for i, r := range rows {
		for j, h := range header {
			assert.Equal(t, r[j], got.Rows[i].Values[h])
		}
	}
}
