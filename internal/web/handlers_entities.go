package web

import (
	"net/http"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// handleListEntities lists people, companies or schools with the same
// filters export accepts.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request, et core.EntityType) {
	f, err := core.FiltersFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	var list any
	switch et {
	case core.EntityPeople:
		people, lerr := s.service.ListPeople(r.Context(), f)
		list, err = nonNil(people), lerr
	case core.EntityCompanies:
		companies, lerr := s.service.ListCompanies(r.Context(), f)
		list, err = nonNil(companies), lerr
	case core.EntitySchools:
		schools, lerr := s.service.ListSchools(r.Context(), f)
		list, err = nonNil(schools), lerr
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, list)
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request, et core.EntityType) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.service.GetEntity(r.Context(), et, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

// handleCreateEntity creates one record from a JSON object keyed by
// canonical field names. A natural-key duplicate answers 409.
func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request, et core.EntityType) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.service.CreateEntity(r.Context(), requester(r), et, body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request, et core.EntityType) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.DeleteEntity(r.Context(), requester(r), et, id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPersonTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.service.ListPersonTypes(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, nonNil(types))
}

func (s *Server) handleCreatePersonType(w http.ResponseWriter, r *http.Request) {
	var in core.PersonTypeInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	pt, err := s.service.CreatePersonType(r.Context(), requester(r), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, pt)
}

// handleListDonations lists donations, optionally for one person or company.
func (s *Server) handleListDonations(w http.ResponseWriter, r *http.Request) {
	personID, err := optionalID(r, "person_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	companyID, err := optionalID(r, "company_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	donations, err := s.service.ListDonations(r.Context(), personID, companyID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, nonNil(donations))
}

func (s *Server) handleCreateDonation(w http.ResponseWriter, r *http.Request) {
	var in core.DonationInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	d, err := s.service.CreateDonation(r.Context(), requester(r), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateDonation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var in core.DonationInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	d, err := s.service.UpdateDonation(r.Context(), requester(r), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, d)
}
