package core_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

func createView(t *testing.T, svc *core.Service, owner core.Requester, name string, shared bool) core.SavedView {
	t.Helper()
	v, err := svc.CreateSavedView(context.Background(), owner, core.SavedViewInput{
		Name:        name,
		EntityType:  "people",
		FilterState: json.RawMessage(`{"search":"smith","is_donor":true}`),
		IsShared:    shared,
	})
	require.NoError(t, err)
	return v
}

func viewNames(views []core.SavedView) []string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	return names
}

func TestSavedViews_Visibility(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	private := createView(t, svc, alice, "Alice private", false)
	createView(t, svc, alice, "Alice shared", true)
	createView(t, svc, bob, "Bob private", false)

	aliceViews, err := svc.ListSavedViews(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice private", "Alice shared"}, viewNames(aliceViews))

	bobViews, err := svc.ListSavedViews(ctx, bob, "people")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice shared", "Bob private"}, viewNames(bobViews))

	none, err := svc.ListSavedViews(ctx, bob, "schools")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.GetSavedView(ctx, bob, private.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "a private view is not leaked to others")

	got, err := svc.GetSavedView(ctx, alice, private.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"search":"smith","is_donor":true}`, string(got.FilterState))

	_, err = svc.ListSavedViews(ctx, alice, "donors")
	assert.True(t, core.IsValidation(err))
}

func TestSavedViews_Create(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   core.Requester
		in    core.SavedViewInput
		check func(t *testing.T, err error)
	}{
		{
			name: "anonymous",
			req:  nobody,
			in:   core.SavedViewInput{Name: "x", EntityType: "people"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, core.ErrForbidden)
			},
		},
		{
			name: "blank name",
			req:  alice,
			in:   core.SavedViewInput{Name: "   ", EntityType: "people"},
			check: func(t *testing.T, err error) {
				assert.True(t, core.IsValidation(err))
				assert.Contains(t, err.Error(), "name")
			},
		},
		{
			name: "bad entity type",
			req:  alice,
			in:   core.SavedViewInput{Name: "x", EntityType: "donors"},
			check: func(t *testing.T, err error) {
				assert.True(t, core.IsValidation(err))
			},
		},
		{
			name: "filter state not an object",
			req:  alice,
			in:   core.SavedViewInput{Name: "x", EntityType: "people", FilterState: json.RawMessage(`[1]`)},
			check: func(t *testing.T, err error) {
				assert.True(t, core.IsValidation(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSavedView(ctx, tt.req, tt.in)
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	v, err := svc.CreateSavedView(ctx, alice, core.SavedViewInput{Name: " Donors ", EntityType: "companies"})
	require.NoError(t, err)
	assert.Equal(t, "Donors", v.Name)
	assert.Equal(t, "alice", v.UserID)
	assert.Equal(t, `{}`, string(v.FilterState))

	entries := st.AuditEntries()
	require.NotEmpty(t, entries)
	assert.Equal(t, core.ActionSavedViewCreate, entries[len(entries)-1].Action)
}

func TestSavedViews_Mutation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	shared := createView(t, svc, alice, "Shared", true)
	private := createView(t, svc, alice, "Private", false)
	rename := "Renamed"

	_, err := svc.UpdateSavedView(ctx, bob, shared.ID, core.SavedViewUpdate{Name: &rename})
	assert.ErrorIs(t, err, core.ErrForbidden, "visible but not owned")

	_, err = svc.UpdateSavedView(ctx, bob, private.ID, core.SavedViewUpdate{Name: &rename})
	assert.ErrorIs(t, err, core.ErrNotFound, "not visible")

	err = svc.DeleteSavedView(ctx, bob, shared.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	off := false
	updated, err := svc.UpdateSavedView(ctx, alice, shared.ID, core.SavedViewUpdate{
		Name:        &rename,
		FilterState: json.RawMessage(`{"is_donor":false}`),
		IsShared:    &off,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.IsShared)
	assert.JSONEq(t, `{"is_donor":false}`, string(updated.FilterState))

	_, err = svc.GetSavedView(ctx, bob, shared.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "unshared view disappears for others")

	adminName := "By admin"
	_, err = svc.UpdateSavedView(ctx, admin, private.ID, core.SavedViewUpdate{Name: &adminName})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSavedView(ctx, admin, private.ID))
	_, err = svc.GetSavedView(ctx, alice, private.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = svc.DeleteSavedView(ctx, alice, 9999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSavedViews_Apply(t *testing.T) {
	svc, _ := newService(t)
	v := createView(t, svc, alice, "Smith donors", true)

	applied, err := svc.ApplySavedView(context.Background(), bob, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, applied.View.ID)
	assert.Equal(t, "is_donor=true&search=smith", applied.Query)
	assert.JSONEq(t, `{"search":"smith","is_donor":true}`, string(applied.FilterState))
}
