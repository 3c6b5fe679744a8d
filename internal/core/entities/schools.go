package entities

import (
	"context"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntitySchools,
		Label: "Schools",
		Fields: []core.FieldSpec{
			{Name: "name", Label: "Name", Kind: core.FieldText, Required: true},
			{Name: "email", Label: "Email", Kind: core.FieldEmail},
			{Name: "phone", Label: "Phone", Kind: core.FieldText},
			{Name: "address", Label: "Address", Kind: core.FieldText},
			{Name: "city", Label: "City", Kind: core.FieldText},
			{Name: "state", Label: "State", Kind: core.FieldState},
			{Name: "zip", Label: "Zip", Kind: core.FieldText},
		},
		Samples: [][]string{
			{"Lincoln High School", "office@lincoln.example", "555-0300", "400 School Rd", "Austin", "TX", "78702"},
			{"St. Mary's Academy", "", "555-0301", "12 Chapel Ln", "Richmond", "Virginia", "23219"},
		},
		Build: func(row core.MappedRow) (any, error) {
			return core.School{
				Name:    row.Get("name"),
				Email:   row.Email("email"),
				Phone:   row.Get("phone"),
				Address: row.Get("address"),
				City:    row.Get("city"),
				State:   row.State("state"),
				Zip:     row.Get("zip"),
			}, nil
		},
		NaturalKey: func(rec any) string {
			return core.NaturalKey(core.EntitySchools, rec.(core.School).Name)
		},
		Exists: func(ctx context.Context, st core.ImportStore, rec any) (bool, error) {
			return st.SchoolExists(ctx, rec.(core.School).Name)
		},
		Insert: func(ctx context.Context, st core.ImportStore, rec any) (int64, error) {
			return st.InsertSchool(ctx, rec.(core.School))
		},
		Export: func(ctx context.Context, st core.Store, f core.Filters) ([]core.ExportRow, error) {
			schools, err := st.ListSchools(ctx, f)
			if err != nil {
				return nil, err
			}
			rows := make([]core.ExportRow, len(schools))
			for i, s := range schools {
				rows[i] = core.ExportRow{
					Email:  s.Email,
					Values: []string{s.Name, s.Email, s.Phone, s.Address, s.City, s.State, s.Zip},
				}
			}
			return rows, nil
		},
	})
}
