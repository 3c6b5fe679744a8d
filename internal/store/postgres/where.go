package postgres

import (
	"fmt"
	"strings"
)

// whereBuilder accumulates WHERE conditions with numbered placeholders.
type whereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{argIndex: 1}
}

// addArg appends an argument and returns its placeholder.
func (wb *whereBuilder) addArg(v any) string {
	wb.args = append(wb.args, v)
	p := fmt.Sprintf("$%d", wb.argIndex)
	wb.argIndex++
	return p
}

// add appends "col = $n". Empty strings are skipped.
func (wb *whereBuilder) add(col string, val any) {
	if s, ok := val.(string); ok && s == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = %s", col, wb.addArg(val)))
}

// addBool appends "col = $n" when v is set.
func (wb *whereBuilder) addBool(col string, v *bool) {
	if v != nil {
		wb.add(col, *v)
	}
}

// addID appends "col = $n" when id is set.
func (wb *whereBuilder) addID(col string, id *int64) {
	if id != nil {
		wb.add(col, *id)
	}
}

// addCond appends a raw condition. format holds one %s for the
// placeholder of val.
func (wb *whereBuilder) addCond(format string, val any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf(format, wb.addArg(val)))
}

// addExists appends an EXISTS subquery when val is set.
func (wb *whereBuilder) addExists(format string, val *int64) {
	if val == nil {
		return
	}
	wb.addCond("EXISTS ("+format+")", *val)
}

// addSearch appends a case-insensitive substring match over cols sharing
// one placeholder.
func (wb *whereBuilder) addSearch(term string, cols ...string) {
	term = strings.TrimSpace(term)
	if term == "" || len(cols) == 0 {
		return
	}
	p := wb.addArg("%" + escapeLike(term) + "%")
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s ILIKE %s", c, p)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
}

// build returns " WHERE a AND b" and the arguments, or "" and nil.
func (wb *whereBuilder) build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// quoteIdentifier quotes a SQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
