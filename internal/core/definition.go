package core

import "context"

// FieldKind describes how a canonical field's raw CSV text is interpreted.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldBool
	FieldEmail
	FieldState
	FieldMarker // category column; truthy marker tags the person
)

// FieldSpec is one canonical field of an entity's closed schema.
type FieldSpec struct {
	Name     string    `json:"name"`     // canonical name: "first_name"
	Label    string    `json:"label"`    // display/template header: "First Name"
	Kind     FieldKind `json:"-"`        // how the raw value is converted
	Required bool      `json:"required"` // must be mapped and non-empty
}

// MappedRow holds one CSV row keyed by canonical field name.
// It only lives between mapping and BuildFunc.
type MappedRow map[string]string

// Get returns the cleaned value for a canonical field.
func (r MappedRow) Get(field string) string {
	return CleanCell(r[field])
}

// Bool reports whether a field holds a truthy marker.
func (r MappedRow) Bool(field string) bool {
	return IsTruthy(r[field])
}

// State returns a field normalized to a US state abbreviation when possible.
func (r MappedRow) State(field string) string {
	return NormalizeUSState(r[field])
}

// Email returns a field normalized as an email address. Malformed values
// are kept as written; imports do not reject rows over optional fields.
func (r MappedRow) Email(field string) string {
	return NormalizeEmail(r[field])
}

// ExportRow is one serialized entity: Values follow ExportColumns.
type ExportRow struct {
	Values []string
	Email  string
}

// BuildFunc converts a mapped row into a typed record.
type BuildFunc func(row MappedRow) (any, error)

// NaturalKeyFunc returns the lock key for a record's natural key.
type NaturalKeyFunc func(rec any) string

// ExistsFunc checks storage for a case-insensitive natural key match.
type ExistsFunc func(ctx context.Context, st ImportStore, rec any) (bool, error)

// InsertFunc inserts a record plus its relationship rows and returns its id.
type InsertFunc func(ctx context.Context, st ImportStore, rec any) (int64, error)

// ExportFunc lists matching entities in export form.
type ExportFunc func(ctx context.Context, st Store, f Filters) ([]ExportRow, error)

// EntityDefinition contains everything needed to import and export one entity type.
type EntityDefinition struct {
	Type          EntityType
	Label         string
	Fields        []FieldSpec
	ExportColumns []string   // header row of exported CSV
	Samples       [][]string // template sample rows, in Fields order

	Build      BuildFunc
	NaturalKey NaturalKeyFunc
	Exists     ExistsFunc
	Insert     InsertFunc
	Export     ExportFunc
}

// RequiredFields returns the names of required canonical fields.
func (d EntityDefinition) RequiredFields() []string {
	var names []string
	for _, f := range d.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Field looks up a canonical field by name.
func (d EntityDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
