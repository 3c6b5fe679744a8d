package core_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/donorcrm/internal/core"
	_ "github.com/JonMunkholm/donorcrm/internal/core/entities"
	"github.com/JonMunkholm/donorcrm/internal/store/memstore"
)

var (
	admin  = core.Requester{UserID: "admin-1", IsAdmin: true}
	alice  = core.Requester{UserID: "alice"}
	bob    = core.Requester{UserID: "bob"}
	nobody = core.Requester{}
)

func newService(t *testing.T) (*core.Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	return core.NewService(st, core.Options{}), st
}

func importCSV(t *testing.T, svc *core.Service, et core.EntityType, body string, mapping map[string]string) *core.ImportResult {
	t.Helper()
	res, err := svc.Import(context.Background(), core.ImportRequest{
		EntityType: et,
		File:       strings.NewReader(body),
		Mapping:    mapping,
		Requester:  alice,
	})
	require.NoError(t, err)
	return res
}

func TestImport_DuplicateRowInFile(t *testing.T) {
	svc, st := newService(t)

	res := importCSV(t, svc, core.EntityPeople, "first_name,last_name\nAda,Lovelace\nAda,Lovelace", nil)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Total)
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.ImportID)

	people, _, _ := st.Counts()
	assert.Equal(t, 1, people)
}

func TestImport_CountsAddUp(t *testing.T) {
	svc, _ := newService(t)

	body := "first_name,last_name,email\n" +
		"Ada,Lovelace,ada@example.org\n" +
		"Grace,,grace@example.org\n" +
		"Alan,Turing,not-an-email\n" +
		"ada,LOVELACE,\n" +
		"Grace,Hopper,\n"
	res := importCSV(t, svc, core.EntityPeople, body, nil)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, res.Total, res.Imported+res.Skipped)
	assert.Zero(t, res.ErrorCount)
	assert.Empty(t, res.Errors)
}

func TestImport_MalformedEmailDoesNotBlockRow(t *testing.T) {
	svc, st := newService(t)
	importCSV(t, svc, core.EntityPeople, "first_name,last_name\nAda,Lovelace\n", nil)

	dup := importCSV(t, svc, core.EntityPeople, "first_name,last_name,email\nAda,Lovelace,ada@@bad\n", nil)
	assert.Equal(t, 0, dup.Imported)
	assert.Equal(t, 1, dup.Skipped)
	assert.Empty(t, dup.Errors)
	assert.Zero(t, dup.ErrorCount)

	fresh := importCSV(t, svc, core.EntityPeople, "first_name,last_name,email\nGrace,Hopper,grace at navy\n", nil)
	assert.Equal(t, 1, fresh.Imported)
	assert.Empty(t, fresh.Errors)

	people, _, _ := st.Counts()
	assert.Equal(t, 2, people)
	assert.Equal(t, "grace at navy", peopleByLast(t, svc, "Hopper").Email)
}

func TestImport_MissingRequiredSkippedSilently(t *testing.T) {
	svc, st := newService(t)

	res := importCSV(t, svc, core.EntityPeople, "first_name,last_name\nAda,\n,Hopper\n  ,  \n", nil)

	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	assert.Empty(t, res.Errors)
	people, _, _ := st.Counts()
	assert.Zero(t, people)
}

func TestImport_DuplicateIsCaseInsensitiveAndSideEffectFree(t *testing.T) {
	svc, st := newService(t)

	importCSV(t, svc, core.EntityPeople, "first_name,last_name,company\nAda,Lovelace,Engine Works\n", nil)
	_, companiesBefore, _ := st.Counts()

	res := importCSV(t, svc, core.EntityPeople,
		"first_name,last_name,company,volunteer\n ADA , lovelace ,Other Corp,x\n", nil)

	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 1, res.Skipped)

	people, companies, _ := st.Counts()
	assert.Equal(t, 1, people)
	assert.Equal(t, companiesBefore, companies, "skipped duplicate must not create a company")

	types, err := svc.ListPersonTypes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, types, "skipped duplicate must not create person types")
}

func TestImport_Idempotent(t *testing.T) {
	svc, st := newService(t)
	body := "name,city,state\nAcme,Austin,Texas\nGlobex,Springfield,IL\n"

	first := importCSV(t, svc, core.EntityCompanies, body, nil)
	require.Equal(t, 2, first.Imported)

	second := importCSV(t, svc, core.EntityCompanies, body, nil)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, second.Total, second.Skipped)

	_, companies, _ := st.Counts()
	assert.Equal(t, 2, companies)

	list, err := svc.ListCompanies(context.Background(), core.Filters{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "TX", list[0].State)
}

func TestImport_PersonSideEffects(t *testing.T) {
	svc, st := newService(t)

	body := "First Name,Last Name,Company,Volunteer,FC Leader,Partner,Donor\n" +
		"Ada,Lovelace,Engine Works,x,yes,no,Y\n" +
		"Charles,Babbage,engine works,,,1,\n"
	res := importCSV(t, svc, core.EntityPeople, body, nil)
	require.Equal(t, 2, res.Imported)

	_, companies, _ := st.Counts()
	assert.Equal(t, 1, companies, "company name match is case-insensitive")

	people, err := svc.ListPeople(context.Background(), core.Filters{Search: "lovelace"})
	require.NoError(t, err)
	require.Len(t, people, 1)
	ada := people[0]
	assert.Equal(t, "Engine Works", ada.Company)
	assert.Equal(t, []string{"FC Leader", "Volunteer"}, ada.Types)
	assert.True(t, ada.IsDonor)

	assert.Equal(t, []string{"Partner"}, st.PersonTypeNames(peopleByLast(t, svc, "Babbage").ID))
}

func peopleByLast(t *testing.T, svc *core.Service, last string) core.Person {
	t.Helper()
	people, err := svc.ListPeople(context.Background(), core.Filters{Search: last})
	require.NoError(t, err)
	require.Len(t, people, 1)
	return people[0]
}

func TestImport_ExplicitMapping(t *testing.T) {
	svc, _ := newService(t)

	res := importCSV(t, svc, core.EntityPeople, "Given,Family,Mail\nAda,Lovelace,ADA@Example.org\n", map[string]string{
		"first_name": "Given",
		"last_name":  "Family",
		"email":      "Mail",
	})
	require.Equal(t, 1, res.Imported)

	p := peopleByLast(t, svc, "Lovelace")
	assert.Equal(t, "ada@example.org", p.Email)
}

// rejectingStore fails every person insert inside a transaction.
type rejectingStore struct {
	*memstore.Store
}

func (s rejectingStore) InTx(ctx context.Context, fn func(tx core.Store) error) error {
	return s.Store.InTx(ctx, func(tx core.Store) error {
		return fn(rejectingTx{Store: tx})
	})
}

type rejectingTx struct {
	core.Store
}

func (t rejectingTx) InTx(ctx context.Context, fn func(tx core.Store) error) error {
	return fn(t)
}

func (rejectingTx) InsertPerson(context.Context, core.Person) (int64, error) {
	return 0, errors.New("constraint violation")
}

func TestImport_ErrorsCapped(t *testing.T) {
	st := memstore.New()
	svc := core.NewService(rejectingStore{Store: st}, core.Options{})

	var b strings.Builder
	b.WriteString("first_name,last_name\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "P%d,Rejected\n", i)
	}
	res := importCSV(t, svc, core.EntityPeople, b.String(), nil)

	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 8, res.Skipped)
	assert.Equal(t, 8, res.ErrorCount)
	require.Len(t, res.Errors, core.DefaultErrorLimit)
	assert.Equal(t, "row 2: constraint violation", res.Errors[0])

	people, _, _ := st.Counts()
	assert.Zero(t, people)
}

func TestImport_ValidationErrors(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  core.ImportRequest
		want string
	}{
		{
			name: "unknown entity type",
			req:  core.ImportRequest{EntityType: "donors", File: strings.NewReader("a\n1\n")},
			want: "unknown entity type",
		},
		{
			name: "no file",
			req:  core.ImportRequest{EntityType: core.EntityPeople},
			want: "no file provided",
		},
		{
			name: "empty file",
			req:  core.ImportRequest{EntityType: core.EntityPeople, File: strings.NewReader("")},
			want: "empty file",
		},
		{
			name: "required field unmapped",
			req:  core.ImportRequest{EntityType: core.EntityPeople, File: strings.NewReader("first_name,email\nAda,a@b.org\n")},
			want: "missing required fields: last_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Empty(t, st.AuditEntries(), "rejected imports write no audit entry")
}

func TestImport_WritesAudit(t *testing.T) {
	svc, st := newService(t)

	res := importCSV(t, svc, core.EntitySchools, "name\nLincoln High\nWashington Prep\n", nil)
	require.Equal(t, 2, res.Imported)

	entries := st.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, core.ActionImport, entries[0].Action)
	assert.Equal(t, core.EntitySchools, entries[0].EntityType)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, 2, entries[0].RowsAffected)
	assert.Contains(t, entries[0].Reason, res.ImportID)
}

func TestImport_CanceledContext(t *testing.T) {
	svc, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.Import(ctx, core.ImportRequest{
		EntityType: core.EntityPeople,
		File:       strings.NewReader("first_name,last_name\nAda,Lovelace\n"),
	})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		return
	}
	assert.False(t, res.Success)
	assert.Zero(t, res.Imported)
}

func TestExportThenReimportSkipsEverything(t *testing.T) {
	for _, et := range []core.EntityType{core.EntityPeople, core.EntityCompanies, core.EntitySchools} {
		t.Run(string(et), func(t *testing.T) {
			svc, _ := newService(t)
			ctx := context.Background()

			_, tmpl, err := core.CSVTemplate(et)
			require.NoError(t, err)
			first := importCSV(t, svc, et, string(tmpl), nil)
			require.Equal(t, 2, first.Imported)

			exp, err := svc.Export(ctx, et, core.FormatCSV, core.Filters{}, alice)
			require.NoError(t, err)

			res, err := svc.Import(ctx, core.ImportRequest{
				EntityType: et,
				File:       bytes.NewReader(exp.Body),
				Requester:  alice,
			})
			require.NoError(t, err)
			assert.Equal(t, res.Total, res.Skipped)
			assert.Zero(t, res.Imported)
			assert.Empty(t, res.Errors)
		})
	}
}
