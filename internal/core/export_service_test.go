package core_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

func seedPeople(t *testing.T, svc *core.Service) {
	t.Helper()
	body := "first_name,last_name,email,is_donor,company\n" +
		"Ada,Lovelace,ada@example.org,yes,\"Engine Works, Ltd\"\n" +
		"Grace,Hopper,,no,\n" +
		"Alan,Turing,alan@example.org,no,\n"
	res := importCSV(t, svc, core.EntityPeople, body, nil)
	require.Equal(t, 3, res.Imported)
}

func TestExport_CSV(t *testing.T) {
	svc, st := newService(t)
	seedPeople(t, svc)

	res, err := svc.Export(context.Background(), core.EntityPeople, core.FormatCSV, core.Filters{}, alice)
	require.NoError(t, err)

	assert.Equal(t, "text/csv; charset=utf-8", res.ContentType)
	assert.True(t, strings.HasPrefix(res.Filename, "people-export-"))
	assert.True(t, strings.HasSuffix(res.Filename, ".csv"))
	assert.Equal(t, 3, res.Rows)

	lines := strings.Split(strings.TrimSuffix(string(res.Body), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "first_name,middle_name,last_name,email,phone,address,city,state,zip,is_donor,is_fc_certified,is_board_member,children,company", lines[0])
	assert.Equal(t, "Grace,,Hopper,,,,,,,No,No,No,,", lines[1])
	assert.Equal(t, `Ada,,Lovelace,ada@example.org,,,,,,Yes,No,No,,"Engine Works, Ltd"`, lines[2])

	entries := st.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, core.ActionExport, last.Action)
	assert.Equal(t, 3, last.RowsAffected)
}

func TestExport_Filtered(t *testing.T) {
	svc, _ := newService(t)
	seedPeople(t, svc)

	yes := true
	res, err := svc.Export(context.Background(), core.EntityPeople, core.FormatCSV, core.Filters{IsDonor: &yes}, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Contains(t, string(res.Body), "Lovelace")
	assert.NotContains(t, string(res.Body), "Turing")
}

func TestExport_Email(t *testing.T) {
	svc, _ := newService(t)
	seedPeople(t, svc)

	res, err := svc.Export(context.Background(), core.EntityPeople, core.FormatEmail, core.Filters{}, alice)
	require.NoError(t, err)

	assert.Equal(t, "text/plain; charset=utf-8", res.ContentType)
	assert.Equal(t, "people-emails.txt", res.Filename)
	assert.Equal(t, []string{"ada@example.org", "alan@example.org"}, res.Emails)
	assert.Equal(t, "ada@example.org; alan@example.org", string(res.Body))
}

func TestExport_CompanyFilterAppliesToPeople(t *testing.T) {
	svc, _ := newService(t)
	seedPeople(t, svc)
	ctx := context.Background()

	companies, err := svc.ListCompanies(ctx, core.Filters{Search: "engine"})
	require.NoError(t, err)
	require.Len(t, companies, 1)

	res, err := svc.Export(ctx, core.EntityPeople, core.FormatEmail, core.Filters{CompanyID: &companies[0].ID}, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.org"}, res.Emails)
}

func TestCSVTemplate(t *testing.T) {
	for _, def := range core.All() {
		t.Run(string(def.Type), func(t *testing.T) {
			name, body, err := core.CSVTemplate(def.Type)
			require.NoError(t, err)
			assert.Equal(t, string(def.Type)+"-template.csv", name)

			parsed, err := core.ParseString(string(body))
			require.NoError(t, err)
			assert.Len(t, parsed.Headers, len(def.Fields))
			assert.Len(t, parsed.Rows, 2)
			for i, f := range def.Fields {
				assert.Equal(t, f.Name, parsed.Headers[i])
			}
		})
	}

	_, _, err := core.CSVTemplate("donors")
	assert.True(t, core.IsValidation(err))
}

func TestPreview(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	importCSV(t, svc, core.EntityPeople, "first_name,last_name\nAda,Lovelace\n", nil)
	auditBefore := len(st.AuditEntries())

	body := "first_name,last_name,email\n" +
		"Ada,Lovelace,\n" +
		"Grace,Hopper,\n" +
		"grace,hopper,\n" +
		"Alan,,\n" +
		"Bad,Email,nope\n"
	p, err := svc.Preview(ctx, core.EntityPeople, strings.NewReader(body), nil)
	require.NoError(t, err)

	assert.Empty(t, p.MappingError)
	assert.Equal(t, core.PreviewSummary{
		TotalRows:       5,
		NewRows:         2,
		ExistingRows:    1,
		DuplicateInFile: 1,
		MissingRequired: 1,
	}, p.Summary)
	require.Len(t, p.NewRowSamples, 2)
	assert.Equal(t, "Grace", p.NewRowSamples[0].Values["first_name"])
	assert.Equal(t, "Bad", p.NewRowSamples[1].Values["first_name"])
	assert.Len(t, p.ErrorSamples, 1)

	people, _, _ := st.Counts()
	assert.Equal(t, 1, people, "preview writes nothing")
	assert.Len(t, st.AuditEntries(), auditBefore)
}

func TestPreview_MappingError(t *testing.T) {
	svc, _ := newService(t)

	p, err := svc.Preview(context.Background(), core.EntityPeople, strings.NewReader("Given,Family\nAda,Lovelace\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "missing required fields: first_name, last_name", p.MappingError)
	assert.Equal(t, []string{"first_name", "last_name"}, p.MissingFields)
	assert.Equal(t, []string{"Given", "Family"}, p.Headers)
	assert.Equal(t, 1, p.Summary.TotalRows)
}
