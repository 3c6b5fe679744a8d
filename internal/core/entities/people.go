package entities

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// markers are the category columns that tag a person with a PersonType.
var markers = []struct {
	field string
	label string
}{
	{"volunteer", "Volunteer"},
	{"potential_group_leader", "Potential Group Leader"},
	{"vendor", "Vendor"},
	{"parent", "Parent"},
	{"other", "Other"},
	{"interested", "Interested"},
	{"fc_leader", "FC Leader"},
	{"partner", "Partner"},
}

func init() {
	fields := []core.FieldSpec{
		{Name: "first_name", Label: "First Name", Kind: core.FieldText, Required: true},
		{Name: "middle_name", Label: "Middle Name", Kind: core.FieldText},
		{Name: "last_name", Label: "Last Name", Kind: core.FieldText, Required: true},
		{Name: "email", Label: "Email", Kind: core.FieldEmail},
		{Name: "phone", Label: "Phone", Kind: core.FieldText},
		{Name: "address", Label: "Address", Kind: core.FieldText},
		{Name: "city", Label: "City", Kind: core.FieldText},
		{Name: "state", Label: "State", Kind: core.FieldState},
		{Name: "zip", Label: "Zip", Kind: core.FieldText},
		{Name: "is_donor", Label: "Donor", Kind: core.FieldBool},
		{Name: "is_fc_certified", Label: "FC Certified", Kind: core.FieldBool},
		{Name: "is_board_member", Label: "Board Member", Kind: core.FieldBool},
		{Name: "children", Label: "Children", Kind: core.FieldText},
		{Name: "company", Label: "Company", Kind: core.FieldText},
	}
	for _, m := range markers {
		fields = append(fields, core.FieldSpec{Name: m.field, Label: m.label, Kind: core.FieldMarker})
	}

	core.Register(core.EntityDefinition{
		Type:   core.EntityPeople,
		Label:  "People",
		Fields: fields,
		ExportColumns: []string{
			"first_name", "middle_name", "last_name", "email", "phone",
			"address", "city", "state", "zip",
			"is_donor", "is_fc_certified", "is_board_member", "children", "company",
		},
		Samples: [][]string{
			{"Ada", "", "Lovelace", "ada@example.org", "555-0100", "12 Analytical Way", "Austin", "TX", "78701", "yes", "no", "no", "", "Engine Works", "x", "", "", "", "", "", "", ""},
			{"Grace", "Brewster", "Hopper", "grace@example.org", "555-0101", "1 Compiler Ct", "Arlington", "VA", "22201", "no", "yes", "yes", "Two", "", "", "x", "", "x", "", "", "", ""},
		},
		Build:      buildPerson,
		NaturalKey: personKey,
		Exists: func(ctx context.Context, st core.ImportStore, rec any) (bool, error) {
			p := rec.(core.Person)
			return st.PersonExists(ctx, p.FirstName, p.LastName)
		},
		Insert: insertPerson,
		Export: exportPeople,
	})
}

func buildPerson(row core.MappedRow) (any, error) {
	p := core.Person{
		FirstName:     row.Get("first_name"),
		MiddleName:    row.Get("middle_name"),
		LastName:      row.Get("last_name"),
		Email:         row.Email("email"),
		Phone:         row.Get("phone"),
		Address:       row.Get("address"),
		City:          row.Get("city"),
		State:         row.State("state"),
		Zip:           row.Get("zip"),
		IsDonor:       row.Bool("is_donor"),
		IsFCCertified: row.Bool("is_fc_certified"),
		IsBoardMember: row.Bool("is_board_member"),
		Children:      row.Get("children"),
		Company:       row.Get("company"),
	}
	for _, m := range markers {
		if row.Bool(m.field) {
			p.Types = append(p.Types, m.label)
		}
	}
	return p, nil
}

func personKey(rec any) string {
	p := rec.(core.Person)
	return core.NaturalKey(core.EntityPeople, p.FirstName, p.LastName)
}

// insertPerson inserts the person, links the primary company and assigns
// marker types. All of it runs in the caller's transaction.
func insertPerson(ctx context.Context, st core.ImportStore, rec any) (int64, error) {
	p := rec.(core.Person)

	id, err := st.InsertPerson(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("insert person: %w", err)
	}

	if p.Company != "" {
		companyID, err := st.GetOrCreateCompany(ctx, p.Company)
		if err != nil {
			return 0, fmt.Errorf("company %q: %w", p.Company, err)
		}
		if err := st.LinkPersonCompany(ctx, id, companyID, true); err != nil {
			return 0, fmt.Errorf("link company: %w", err)
		}
	}

	for _, label := range p.Types {
		typeID, err := st.GetOrCreatePersonType(ctx, label)
		if err != nil {
			return 0, fmt.Errorf("person type %q: %w", label, err)
		}
		if err := st.AssignPersonType(ctx, id, typeID); err != nil {
			return 0, fmt.Errorf("assign type: %w", err)
		}
	}

	return id, nil
}

func exportPeople(ctx context.Context, st core.Store, f core.Filters) ([]core.ExportRow, error) {
	people, err := st.ListPeople(ctx, f)
	if err != nil {
		return nil, err
	}
	rows := make([]core.ExportRow, len(people))
	for i, p := range people {
		rows[i] = core.ExportRow{
			Email: p.Email,
			Values: []string{
				p.FirstName, p.MiddleName, p.LastName, p.Email, p.Phone,
				p.Address, p.City, p.State, p.Zip,
				core.FormatBool(p.IsDonor), core.FormatBool(p.IsFCCertified), core.FormatBool(p.IsBoardMember),
				p.Children, p.Company,
			},
		}
	}
	return rows, nil
}
