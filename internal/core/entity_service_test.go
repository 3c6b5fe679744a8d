package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

func TestCreateEntity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	got, err := svc.CreateEntity(ctx, alice, core.EntityPeople, map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ADA@example.org",
		"state":      "texas",
		"is_donor":   true,
		"company":    "Engine Works",
	})
	require.NoError(t, err)

	p, ok := got.(core.Person)
	require.True(t, ok)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "ada@example.org", p.Email)
	assert.Equal(t, "TX", p.State)
	assert.True(t, p.IsDonor)
	assert.Equal(t, "Engine Works", p.Company)

	_, err = svc.CreateEntity(ctx, alice, core.EntityPeople, map[string]any{
		"first_name": "ada",
		"last_name":  "LOVELACE",
	})
	assert.ErrorIs(t, err, core.ErrDuplicate)
	assert.Equal(t, "DB001", core.MapError(err).Code)
}

func TestCreateEntity_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		et   core.EntityType
		body map[string]any
		want string
	}{
		{"unknown field", core.EntityCompanies, map[string]any{"name": "Acme", "ceo": "x"}, "unknown fields: ceo"},
		{"missing required", core.EntityPeople, map[string]any{"first_name": "Ada"}, "missing required fields: last_name"},
		{"bad email", core.EntitySchools, map[string]any{"name": "Lincoln", "email": "nope"}, "invalid email"},
		{"bad school id", core.EntityPeople, map[string]any{"first_name": "A", "last_name": "B", "school_id": "x"}, "school_id"},
		{"unknown type", "donors", map[string]any{"name": "x"}, "unknown entity type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEntity(ctx, alice, tt.et, tt.body)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCreateEntity_LinksSchool(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	school, err := svc.CreateEntity(ctx, admin, core.EntitySchools, map[string]any{"name": "Lincoln High"})
	require.NoError(t, err)
	schoolID := school.(core.School).ID

	_, err = svc.CreateEntity(ctx, alice, core.EntityPeople, map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"school_id":  float64(schoolID),
	})
	require.NoError(t, err)

	people, err := svc.ListPeople(ctx, core.Filters{SchoolID: &schoolID})
	require.NoError(t, err)
	assert.Len(t, people, 1)
}

func TestDeleteEntity(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seedPeople(t, svc)

	companies, err := svc.ListCompanies(ctx, core.Filters{})
	require.NoError(t, err)
	require.Len(t, companies, 1)
	companyID := companies[0].ID

	d, err := svc.CreateDonation(ctx, alice, core.DonationInput{CompanyID: &companyID, Amount: 50, Date: "2024-01-15"})
	require.NoError(t, err)

	err = svc.DeleteEntity(ctx, alice, core.EntityCompanies, companyID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, svc.DeleteEntity(ctx, admin, core.EntityCompanies, companyID))

	_, companiesLeft, _ := st.Counts()
	assert.Zero(t, companiesLeft)

	ada := peopleByLast(t, svc, "Lovelace")
	assert.Empty(t, ada.Company, "junction row removed with the company")

	all, err := svc.ListDonations(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, d.ID, all[0].ID)
	assert.Nil(t, all[0].CompanyID, "donation kept with the reference cleared")

	err = svc.DeleteEntity(ctx, admin, core.EntityCompanies, companyID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPersonTypes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreatePersonType(ctx, alice, core.PersonTypeInput{Name: "Mentor"})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.CreatePersonType(ctx, admin, core.PersonTypeInput{Name: "  "})
	assert.True(t, core.IsValidation(err))

	mentor, err := svc.CreatePersonType(ctx, admin, core.PersonTypeInput{Name: "Mentor"})
	require.NoError(t, err)
	coach, err := svc.CreatePersonType(ctx, admin, core.PersonTypeInput{Name: "Coach"})
	require.NoError(t, err)
	assert.Greater(t, coach.SortOrder, mentor.SortOrder)

	_, err = svc.CreatePersonType(ctx, admin, core.PersonTypeInput{Name: "Mentor"})
	assert.ErrorIs(t, err, core.ErrDuplicate)

	types, err := svc.ListPersonTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Mentor", types[0].Name)
	assert.Equal(t, "Coach", types[1].Name)
}

func TestDonations(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	seedPeople(t, svc)

	grace := peopleByLast(t, svc, "Hopper")
	require.False(t, grace.IsDonor)

	_, err := svc.CreateDonation(ctx, alice, core.DonationInput{Amount: 10, Date: "2024-01-01"})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Contains(t, err.Error(), "person or a company")

	_, err = svc.CreateDonation(ctx, alice, core.DonationInput{PersonID: &grace.ID, Amount: 0, Date: "2024-01-01"})
	assert.True(t, core.IsValidation(err))

	_, err = svc.CreateDonation(ctx, alice, core.DonationInput{PersonID: &grace.ID, Amount: 10, Date: "01/02/2024"})
	assert.True(t, core.IsValidation(err))

	missing := int64(9999)
	_, err = svc.CreateDonation(ctx, alice, core.DonationInput{PersonID: &missing, Amount: 10, Date: "2024-01-01"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	first, err := svc.CreateDonation(ctx, alice, core.DonationInput{PersonID: &grace.ID, Amount: 25.5, Date: "2024-01-01", Notes: " gala "})
	require.NoError(t, err)
	assert.Equal(t, "gala", first.Notes)
	assert.True(t, peopleByLast(t, svc, "Hopper").IsDonor)

	_, err = svc.CreateDonation(ctx, alice, core.DonationInput{PersonID: &grace.ID, Amount: 100, Date: "2024-06-01"})
	require.NoError(t, err)

	list, err := svc.ListDonations(ctx, &grace.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 100.0, list[0].Amount, "newest first")

	updated, err := svc.UpdateDonation(ctx, alice, first.ID, core.DonationInput{PersonID: &grace.ID, Amount: 30, Date: "2024-01-02"})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.Amount)

	_, err = svc.UpdateDonation(ctx, alice, 9999, core.DonationInput{PersonID: &grace.ID, Amount: 30, Date: "2024-01-02"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}
