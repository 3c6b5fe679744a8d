// Package memstore provides an in-memory core.Store.
//
// Transactions run against a copy of the state and replace it on commit, so
// a failed row leaves nothing behind. Transactions are serialized by one
// mutex, which also makes LockNaturalKey a no-op. Used by tests and by
// crmctl's dry-run mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

type link struct {
	personID, otherID int64
	primary           bool
}

type state struct {
	nextID int64

	people      map[int64]core.Person
	companies   map[int64]core.Company
	schools     map[int64]core.School
	personTypes map[int64]core.PersonType
	donations   map[int64]core.Donation
	views       map[int64]core.SavedView

	personCompanies []link
	personSchools   []link
	typeAssignments []link

	audit []core.AuditEntry
}

func newState() state {
	return state{
		people:      map[int64]core.Person{},
		companies:   map[int64]core.Company{},
		schools:     map[int64]core.School{},
		personTypes: map[int64]core.PersonType{},
		donations:   map[int64]core.Donation{},
		views:       map[int64]core.SavedView{},
	}
}

func (s state) clone() state {
	c := s
	c.people = cloneMap(s.people)
	c.companies = cloneMap(s.companies)
	c.schools = cloneMap(s.schools)
	c.personTypes = cloneMap(s.personTypes)
	c.donations = cloneMap(s.donations)
	c.views = cloneMap(s.views)
	c.personCompanies = append([]link(nil), s.personCompanies...)
	c.personSchools = append([]link(nil), s.personSchools...)
	c.typeAssignments = append([]link(nil), s.typeAssignments...)
	c.audit = append([]core.AuditEntry(nil), s.audit...)
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is an in-memory core.Store. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	state state
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// view is the core.Store implementation shared by Store and transactions.
// Every method runs with the store mutex held.
type view struct {
	st  *state
	now func() time.Time
}

func (s *Store) run(fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{st: &s.state, now: s.now})
}

// InTx runs fn against a copy of the state and commits it if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx core.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	tx := &txStore{view: view{st: &work, now: s.now}}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = work
	return nil
}

// AuditEntries returns a copy of every audit entry written.
func (s *Store) AuditEntries() []core.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.AuditEntry(nil), s.state.audit...)
}

// PersonTypeNames returns the type names assigned to a person, sorted.
func (s *Store) PersonTypeNames(personID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: &s.state}).typeNames(personID)
}

// Counts returns the number of people, companies and schools.
func (s *Store) Counts() (people, companies, schools int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.people), len(s.state.companies), len(s.state.schools)
}

// txStore is the store handed to InTx callbacks. Nested InTx calls join
// the outer transaction.
type txStore struct {
	view
}

func (t *txStore) InTx(ctx context.Context, fn func(tx core.Store) error) error {
	return fn(t)
}

func (v *view) id() int64 {
	v.st.nextID++
	return v.st.nextID
}

func eq(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ---- ImportStore ----

func (v *view) LockNaturalKey(ctx context.Context, key string) error {
	return ctx.Err()
}

func (v *view) PersonExists(ctx context.Context, firstName, lastName string) (bool, error) {
	for _, p := range v.st.people {
		if eq(p.FirstName, firstName) && eq(p.LastName, lastName) {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) CompanyExists(ctx context.Context, name string) (bool, error) {
	_, ok := v.companyByName(name)
	return ok, nil
}

func (v *view) SchoolExists(ctx context.Context, name string) (bool, error) {
	for _, s := range v.st.schools {
		if eq(s.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) companyByName(name string) (core.Company, bool) {
	var found core.Company
	ok := false
	for _, c := range v.st.companies {
		if eq(c.Name, name) && (!ok || c.ID < found.ID) {
			found, ok = c, true
		}
	}
	return found, ok
}

func (v *view) InsertPerson(ctx context.Context, p core.Person) (int64, error) {
	p.ID = v.id()
	p.CreatedAt = v.now()
	p.Company, p.Types = "", nil
	v.st.people[p.ID] = p
	return p.ID, nil
}

func (v *view) InsertCompany(ctx context.Context, c core.Company) (int64, error) {
	c.ID = v.id()
	c.CreatedAt = v.now()
	v.st.companies[c.ID] = c
	return c.ID, nil
}

func (v *view) InsertSchool(ctx context.Context, s core.School) (int64, error) {
	s.ID = v.id()
	s.CreatedAt = v.now()
	v.st.schools[s.ID] = s
	return s.ID, nil
}

func (v *view) GetOrCreateCompany(ctx context.Context, name string) (int64, error) {
	if c, ok := v.companyByName(name); ok {
		return c.ID, nil
	}
	return v.InsertCompany(ctx, core.Company{Name: strings.TrimSpace(name)})
}

func (v *view) GetOrCreatePersonType(ctx context.Context, name string) (int64, error) {
	for _, t := range v.st.personTypes {
		if t.Name == name {
			return t.ID, nil
		}
	}
	pt, err := v.CreatePersonType(ctx, name)
	return pt.ID, err
}

func (v *view) LinkPersonCompany(ctx context.Context, personID, companyID int64, primary bool) error {
	if _, ok := v.st.people[personID]; !ok {
		return fmt.Errorf("person %d: %w", personID, core.ErrNotFound)
	}
	if _, ok := v.st.companies[companyID]; !ok {
		return fmt.Errorf("company %d: %w", companyID, core.ErrNotFound)
	}
	v.st.personCompanies = addLink(v.st.personCompanies, link{personID, companyID, primary})
	return nil
}

func (v *view) LinkPersonSchool(ctx context.Context, personID, schoolID int64, primary bool) error {
	if _, ok := v.st.people[personID]; !ok {
		return fmt.Errorf("person %d: %w", personID, core.ErrNotFound)
	}
	if _, ok := v.st.schools[schoolID]; !ok {
		return fmt.Errorf("school %d: %w", schoolID, core.ErrNotFound)
	}
	v.st.personSchools = addLink(v.st.personSchools, link{personID, schoolID, primary})
	return nil
}

func (v *view) AssignPersonType(ctx context.Context, personID, typeID int64) error {
	if _, ok := v.st.people[personID]; !ok {
		return fmt.Errorf("person %d: %w", personID, core.ErrNotFound)
	}
	v.st.typeAssignments = addLink(v.st.typeAssignments, link{personID, typeID, false})
	return nil
}

// addLink inserts l unless the pair already exists.
func addLink(links []link, l link) []link {
	for _, x := range links {
		if x.personID == l.personID && x.otherID == l.otherID {
			return links
		}
	}
	return append(links, l)
}

// ---- reads ----

func (v *view) decoratePerson(p core.Person) core.Person {
	p.Company = ""
	for _, l := range v.st.personCompanies {
		if l.personID == p.ID && l.primary {
			p.Company = v.st.companies[l.otherID].Name
			break
		}
	}
	p.Types = v.typeNames(p.ID)
	return p
}

func (v *view) typeNames(personID int64) []string {
	var names []string
	for _, l := range v.st.typeAssignments {
		if l.personID == personID {
			names = append(names, v.st.personTypes[l.otherID].Name)
		}
	}
	sort.Strings(names)
	return names
}

func hasLink(links []link, personID, otherID int64) bool {
	for _, l := range links {
		if l.personID == personID && l.otherID == otherID {
			return true
		}
	}
	return false
}

func boolMatch(filter *bool, v bool) bool {
	return filter == nil || *filter == v
}

func (v *view) ListPeople(ctx context.Context, f core.Filters) ([]core.Person, error) {
	out := []core.Person{}
	for _, p := range v.st.people {
		if !f.Matches(p.FirstName, p.LastName, p.Email) ||
			!boolMatch(f.IsDonor, p.IsDonor) ||
			!boolMatch(f.IsFCCertified, p.IsFCCertified) ||
			!boolMatch(f.IsBoardMember, p.IsBoardMember) {
			continue
		}
		if f.TypeID != nil && !hasLink(v.st.typeAssignments, p.ID, *f.TypeID) {
			continue
		}
		if f.SchoolID != nil && !hasLink(v.st.personSchools, p.ID, *f.SchoolID) {
			continue
		}
		if f.CompanyID != nil && !hasLink(v.st.personCompanies, p.ID, *f.CompanyID) {
			continue
		}
		out = append(out, v.decoratePerson(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !strings.EqualFold(out[i].LastName, out[j].LastName) {
			return strings.ToLower(out[i].LastName) < strings.ToLower(out[j].LastName)
		}
		if !strings.EqualFold(out[i].FirstName, out[j].FirstName) {
			return strings.ToLower(out[i].FirstName) < strings.ToLower(out[j].FirstName)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) ListCompanies(ctx context.Context, f core.Filters) ([]core.Company, error) {
	out := []core.Company{}
	for _, c := range v.st.companies {
		if f.Matches(c.Name, c.Email) && boolMatch(f.IsDonor, c.IsDonor) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return byName(out[i].Name, out[j].Name, out[i].ID, out[j].ID) })
	return out, nil
}

func (v *view) ListSchools(ctx context.Context, f core.Filters) ([]core.School, error) {
	out := []core.School{}
	for _, s := range v.st.schools {
		if f.Matches(s.Name, s.Email) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return byName(out[i].Name, out[j].Name, out[i].ID, out[j].ID) })
	return out, nil
}

func byName(a, b string, ida, idb int64) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return ida < idb
}

func (v *view) GetPerson(ctx context.Context, id int64) (core.Person, error) {
	p, ok := v.st.people[id]
	if !ok {
		return core.Person{}, fmt.Errorf("person %d: %w", id, core.ErrNotFound)
	}
	return v.decoratePerson(p), nil
}

func (v *view) GetCompany(ctx context.Context, id int64) (core.Company, error) {
	c, ok := v.st.companies[id]
	if !ok {
		return core.Company{}, fmt.Errorf("company %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (v *view) GetSchool(ctx context.Context, id int64) (core.School, error) {
	s, ok := v.st.schools[id]
	if !ok {
		return core.School{}, fmt.Errorf("school %d: %w", id, core.ErrNotFound)
	}
	return s, nil
}

// DeleteEntity removes an entity, its junction rows, and nulls donation
// references to it.
func (v *view) DeleteEntity(ctx context.Context, et core.EntityType, id int64) error {
	switch et {
	case core.EntityPeople:
		if _, ok := v.st.people[id]; !ok {
			return fmt.Errorf("person %d: %w", id, core.ErrNotFound)
		}
		delete(v.st.people, id)
		v.st.personCompanies = dropLinks(v.st.personCompanies, func(l link) bool { return l.personID == id })
		v.st.personSchools = dropLinks(v.st.personSchools, func(l link) bool { return l.personID == id })
		v.st.typeAssignments = dropLinks(v.st.typeAssignments, func(l link) bool { return l.personID == id })
		for k, d := range v.st.donations {
			if d.PersonID != nil && *d.PersonID == id {
				d.PersonID = nil
				v.st.donations[k] = d
			}
		}
	case core.EntityCompanies:
		if _, ok := v.st.companies[id]; !ok {
			return fmt.Errorf("company %d: %w", id, core.ErrNotFound)
		}
		delete(v.st.companies, id)
		v.st.personCompanies = dropLinks(v.st.personCompanies, func(l link) bool { return l.otherID == id })
		for k, d := range v.st.donations {
			if d.CompanyID != nil && *d.CompanyID == id {
				d.CompanyID = nil
				v.st.donations[k] = d
			}
		}
	case core.EntitySchools:
		if _, ok := v.st.schools[id]; !ok {
			return fmt.Errorf("school %d: %w", id, core.ErrNotFound)
		}
		delete(v.st.schools, id)
		v.st.personSchools = dropLinks(v.st.personSchools, func(l link) bool { return l.otherID == id })
	default:
		return core.Validationf("unknown entity type %q", et)
	}
	return nil
}

func dropLinks(links []link, drop func(link) bool) []link {
	out := links[:0:0]
	for _, l := range links {
		if !drop(l) {
			out = append(out, l)
		}
	}
	return out
}

// ---- person types ----

func (v *view) ListPersonTypes(ctx context.Context) ([]core.PersonType, error) {
	out := make([]core.PersonType, 0, len(v.st.personTypes))
	for _, t := range v.st.personTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (v *view) CreatePersonType(ctx context.Context, name string) (core.PersonType, error) {
	maxOrder := 0
	for _, t := range v.st.personTypes {
		if t.Name == name {
			return core.PersonType{}, fmt.Errorf("person type %q: %w", name, core.ErrDuplicate)
		}
		if t.SortOrder > maxOrder {
			maxOrder = t.SortOrder
		}
	}
	pt := core.PersonType{ID: v.id(), Name: name, SortOrder: maxOrder + 1}
	v.st.personTypes[pt.ID] = pt
	return pt, nil
}

// ---- donations ----

func (v *view) InsertDonation(ctx context.Context, d core.Donation) (int64, error) {
	d.ID = v.id()
	d.CreatedAt = v.now()
	v.st.donations[d.ID] = d
	return d.ID, nil
}

func (v *view) UpdateDonation(ctx context.Context, d core.Donation) error {
	old, ok := v.st.donations[d.ID]
	if !ok {
		return fmt.Errorf("donation %d: %w", d.ID, core.ErrNotFound)
	}
	d.CreatedAt = old.CreatedAt
	v.st.donations[d.ID] = d
	return nil
}

func (v *view) ListDonations(ctx context.Context, personID, companyID *int64) ([]core.Donation, error) {
	out := []core.Donation{}
	for _, d := range v.st.donations {
		if personID != nil && (d.PersonID == nil || *d.PersonID != *personID) {
			continue
		}
		if companyID != nil && (d.CompanyID == nil || *d.CompanyID != *companyID) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v *view) MarkDonor(ctx context.Context, personID, companyID *int64) error {
	if personID != nil {
		p, ok := v.st.people[*personID]
		if !ok {
			return fmt.Errorf("person %d: %w", *personID, core.ErrNotFound)
		}
		p.IsDonor = true
		v.st.people[p.ID] = p
	}
	if companyID != nil {
		c, ok := v.st.companies[*companyID]
		if !ok {
			return fmt.Errorf("company %d: %w", *companyID, core.ErrNotFound)
		}
		c.IsDonor = true
		v.st.companies[c.ID] = c
	}
	return nil
}

// ---- saved views ----

func (v *view) CreateSavedView(ctx context.Context, sv core.SavedView) (core.SavedView, error) {
	sv.ID = v.id()
	sv.CreatedAt = v.now()
	sv.UpdatedAt = sv.CreatedAt
	v.st.views[sv.ID] = sv
	return sv, nil
}

func (v *view) GetSavedView(ctx context.Context, id int64) (core.SavedView, error) {
	sv, ok := v.st.views[id]
	if !ok {
		return core.SavedView{}, fmt.Errorf("saved view %d: %w", id, core.ErrNotFound)
	}
	return sv, nil
}

func (v *view) ListSavedViews(ctx context.Context, et core.EntityType, userID string) ([]core.SavedView, error) {
	out := []core.SavedView{}
	for _, sv := range v.st.views {
		if et != "" && sv.EntityType != et {
			continue
		}
		if sv.VisibleTo(userID) {
			out = append(out, sv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return byName(out[i].Name, out[j].Name, out[i].ID, out[j].ID) })
	return out, nil
}

func (v *view) UpdateSavedView(ctx context.Context, sv core.SavedView) (core.SavedView, error) {
	old, ok := v.st.views[sv.ID]
	if !ok {
		return core.SavedView{}, fmt.Errorf("saved view %d: %w", sv.ID, core.ErrNotFound)
	}
	sv.UserID = old.UserID
	sv.CreatedAt = old.CreatedAt
	sv.UpdatedAt = v.now()
	v.st.views[sv.ID] = sv
	return sv, nil
}

func (v *view) DeleteSavedView(ctx context.Context, id int64) error {
	if _, ok := v.st.views[id]; !ok {
		return fmt.Errorf("saved view %d: %w", id, core.ErrNotFound)
	}
	delete(v.st.views, id)
	return nil
}

// ---- audit ----

func (v *view) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	v.st.audit = append(v.st.audit, e)
	return nil
}

func (v *view) PruneAudit(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	kept := v.st.audit[:0:0]
	var n int64
	for _, e := range v.st.audit {
		if e.CreatedAt.Before(cutoff) && int(n) < limit {
			n++
			continue
		}
		kept = append(kept, e)
	}
	v.st.audit = kept
	return n, nil
}
