package entities

import (
	"context"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityCompanies,
		Label: "Companies",
		Fields: []core.FieldSpec{
			{Name: "name", Label: "Name", Kind: core.FieldText, Required: true},
			{Name: "email", Label: "Email", Kind: core.FieldEmail},
			{Name: "phone", Label: "Phone", Kind: core.FieldText},
			{Name: "address", Label: "Address", Kind: core.FieldText},
			{Name: "city", Label: "City", Kind: core.FieldText},
			{Name: "state", Label: "State", Kind: core.FieldState},
			{Name: "zip", Label: "Zip", Kind: core.FieldText},
			{Name: "is_donor", Label: "Donor", Kind: core.FieldBool},
		},
		Samples: [][]string{
			{"Engine Works", "info@engineworks.example", "555-0200", "100 Main St", "Austin", "TX", "78701", "yes"},
			{"Hopper & Sons, LLC", "", "555-0201", "9 Harbor Rd", "Norfolk", "Virginia", "23510", "no"},
		},
		Build: func(row core.MappedRow) (any, error) {
			return core.Company{
				Name:    row.Get("name"),
				Email:   row.Email("email"),
				Phone:   row.Get("phone"),
				Address: row.Get("address"),
				City:    row.Get("city"),
				State:   row.State("state"),
				Zip:     row.Get("zip"),
				IsDonor: row.Bool("is_donor"),
			}, nil
		},
		NaturalKey: func(rec any) string {
			return core.NaturalKey(core.EntityCompanies, rec.(core.Company).Name)
		},
		Exists: func(ctx context.Context, st core.ImportStore, rec any) (bool, error) {
			return st.CompanyExists(ctx, rec.(core.Company).Name)
		},
		Insert: func(ctx context.Context, st core.ImportStore, rec any) (int64, error) {
			return st.InsertCompany(ctx, rec.(core.Company))
		},
		Export: func(ctx context.Context, st core.Store, f core.Filters) ([]core.ExportRow, error) {
			companies, err := st.ListCompanies(ctx, f)
			if err != nil {
				return nil, err
			}
			rows := make([]core.ExportRow, len(companies))
			for i, c := range companies {
				rows[i] = core.ExportRow{
					Email:  c.Email,
					Values: []string{c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.Zip, core.FormatBool(c.IsDonor)},
				}
			}
			return rows, nil
		},
	})
}
