package memstore

import (
	"context"
	"time"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// Calls made on Store outside InTx each run atomically under the mutex.

func call[T any](s *Store, fn func(v *view) (T, error)) (T, error) {
	var out T
	err := s.run(func(v *view) error {
		var err error
		out, err = fn(v)
		return err
	})
	return out, err
}

func (s *Store) LockNaturalKey(ctx context.Context, key string) error {
	return s.run(func(v *view) error { return v.LockNaturalKey(ctx, key) })
}

func (s *Store) PersonExists(ctx context.Context, firstName, lastName string) (bool, error) {
	return call(s, func(v *view) (bool, error) { return v.PersonExists(ctx, firstName, lastName) })
}

func (s *Store) CompanyExists(ctx context.Context, name string) (bool, error) {
	return call(s, func(v *view) (bool, error) { return v.CompanyExists(ctx, name) })
}

func (s *Store) SchoolExists(ctx context.Context, name string) (bool, error) {
	return call(s, func(v *view) (bool, error) { return v.SchoolExists(ctx, name) })
}

func (s *Store) InsertPerson(ctx context.Context, p core.Person) (int64, error) {
	return call(s, func(v *view) (int64, error) { return v.InsertPerson(ctx, p) })
}

func (s *Store) InsertCompany(ctx context.Context, c core.Company) (int64, error) {
	return call(s, func(v *view) (int64, error) { return v.InsertCompany(ctx, c) })
}

func (s *Store) InsertSchool(ctx context.Context, sc core.School) (int64, error) {
	return call(s, func(v *view) (int64, error) { return v.InsertSchool(ctx, sc) })
}

func (s *Store) GetOrCreateCompany(ctx context.Context, name string) (int64, error) {
	return call(s, func(v *view) (int64, error) { return v.GetOrCreateCompany(ctx, name) })
}

func (s *Store) GetOrCreatePersonType(ctx context.Context, name string) (int64, error) {
	return call(s, func(v *view) (int64, error) { return v.GetOrCreatePersonType(ctx, name) })
}

func (s *Store) LinkPersonCompany(ctx context.Context, personID, companyID int64, primary bool) error {
	return s.run(func(v *view) error { return v.LinkPersonCompany(ctx, personID, companyID, primary) })
}

func (s *Store) LinkPersonSchool(ctx context.Context, personID, schoolID int64, primary bool) error {
	return s.run(func(v *view) error { return v.LinkPersonSchool(ctx, personID, schoolID, primary) })
}

func (s *Store) AssignPersonType(ctx context.Context, personID, typeID int64) error {
	return s.run(func(v *view) error { return v.AssignPersonType(ctx, personID, typeID) })
}

func (s *Store) ListPeople(ctx context.Context, f core.Filters) ([]core.Person, error) {
	return call(s, func(v *view) ([]core.Person, error) { return v.ListPeople(ctx, f) })
}

func (s *Store) ListCompanies(ctx context.Context, f core.Filters) ([]core.Company, error) {
	return call(s, func(v *view) ([]core.Company, error) { return v.ListCompanies(ctx, f) })
}

func (s *Store) ListSchools(ctx context.Context, f core.Filters) ([]core.School, error) {
	return call(s, func(v *view) ([]core.School, error) { return v.ListSchools(ctx, f) })
}

func (s *Store) GetPerson(ctx context.Context, id int64) (core.Person, error) {
	return call(s, func(v *view) (core.Person, error) { return v.GetPerson(ctx, id) })
}

func (s *Store) GetCompany(ctx context.Context, id int64) (core.Company, error) {
	return call(s, func(v *view) (core.Company, error) { return v.GetCompany(ctx, id) })
}

func (s *Store) GetSchool(ctx context.Context, id int64) (core.School, error) {
	return call(s, func(v *view) (core.School, error) { return v.GetSchool(ctx, id) })
}

func (s *Store) DeleteEntity(ctx context.Context, et core.EntityType, id int64) error {
	return s.run(func(v *view) error { return v.DeleteEntity(ctx, et, id) })
}

func (s *Store) ListPersonTypes(ctx context.Context) ([]core.PersonType, error) {
	return call(s, func(v *view) ([]core.PersonType, error) { return v.ListPersonTypes(ctx) })
}

func (s *Store) CreatePersonType(ctx context.Context, name string) (core.PersonType, error) {
	return call(s, func(v *view) (core.PersonType, error) { return v.CreatePersonType(ctx, name) })
}

func (s *Store) InsertDonation(ctx context.Context, d core.Donation) (int64, error) {
	return call(s, func(v *view) (int64, error) { return v.InsertDonation(ctx, d) })
}

func (s *Store) UpdateDonation(ctx context.Context, d core.Donation) error {
	return s.run(func(v *view) error { return v.UpdateDonation(ctx, d) })
}

func (s *Store) ListDonations(ctx context.Context, personID, companyID *int64) ([]core.Donation, error) {
	return call(s, func(v *view) ([]core.Donation, error) { return v.ListDonations(ctx, personID, companyID) })
}

func (s *Store) MarkDonor(ctx context.Context, personID, companyID *int64) error {
	return s.run(func(v *view) error { return v.MarkDonor(ctx, personID, companyID) })
}

func (s *Store) CreateSavedView(ctx context.Context, sv core.SavedView) (core.SavedView, error) {
	return call(s, func(v *view) (core.SavedView, error) { return v.CreateSavedView(ctx, sv) })
}

func (s *Store) GetSavedView(ctx context.Context, id int64) (core.SavedView, error) {
	return call(s, func(v *view) (core.SavedView, error) { return v.GetSavedView(ctx, id) })
}

func (s *Store) ListSavedViews(ctx context.Context, et core.EntityType, userID string) ([]core.SavedView, error) {
	return call(s, func(v *view) ([]core.SavedView, error) { return v.ListSavedViews(ctx, et, userID) })
}

func (s *Store) UpdateSavedView(ctx context.Context, sv core.SavedView) (core.SavedView, error) {
	return call(s, func(v *view) (core.SavedView, error) { return v.UpdateSavedView(ctx, sv) })
}

func (s *Store) DeleteSavedView(ctx context.Context, id int64) error {
	return s.run(func(v *view) error { return v.DeleteSavedView(ctx, id) })
}

func (s *Store) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	return s.run(func(v *view) error { return v.InsertAudit(ctx, e) })
}

func (s *Store) PruneAudit(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	return call(s, func(v *view) (int64, error) { return v.PruneAudit(ctx, cutoff, limit) })
}

var (
	_ core.Store = (*Store)(nil)
	_ core.Store = (*txStore)(nil)
)
