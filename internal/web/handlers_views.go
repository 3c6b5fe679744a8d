package web

import (
	"net/http"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// handleListViews lists the views visible to the caller, optionally for
// one entity type.
func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	et := firstValue(r.URL.Query().Get, "entityType", "entity_type")
	views, err := s.service.ListSavedViews(r.Context(), requester(r), et)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if views == nil {
		views = []core.SavedView{}
	}
	writeJSON(w, views)
}

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var in core.SavedViewInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	v, err := s.service.CreateSavedView(r.Context(), requester(r), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, v)
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	v, err := s.service.GetSavedView(r.Context(), requester(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, v)
}

// handleApplyView returns the view's filter state and its query string
// form for a list page.
func (s *Server) handleApplyView(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	applied, err := s.service.ApplySavedView(r.Context(), requester(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, applied)
}

func (s *Server) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var in core.SavedViewUpdate
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	v, err := s.service.UpdateSavedView(r.Context(), requester(r), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.DeleteSavedView(r.Context(), requester(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
