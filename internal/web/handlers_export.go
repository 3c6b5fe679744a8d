package web

import (
	"net/http"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// exportParams reads format and filters from the query string.
func exportParams(r *http.Request) (core.ExportFormat, core.Filters, error) {
	q := r.URL.Query()
	format, err := core.ParseExportFormat(q.Get("format"))
	if err != nil {
		return "", core.Filters{}, err
	}
	f, err := core.FiltersFromQuery(q)
	if err != nil {
		return "", core.Filters{}, err
	}
	return format, f, nil
}

// handleExport serves GET /api/export?entityType=&format=&filters=.
// The email format is a "; "-joined text file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	et, err := core.ParseEntityType(firstValue(q.Get, "entityType", "entity_type"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	format, f, err := exportParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.Export(r.Context(), et, format, f, requester(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeDownload(w, res.Filename, res.ContentType, res.Body)
}

// handlePeopleExport serves GET /api/people/export. Unlike the generic
// export, format=email answers JSON {"emails": [...]}.
func (s *Server) handlePeopleExport(w http.ResponseWriter, r *http.Request) {
	format, f, err := exportParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.Export(r.Context(), core.EntityPeople, format, f, requester(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	if format == core.FormatEmail {
		emails := res.Emails
		if emails == nil {
			emails = []string{}
		}
		writeJSON(w, map[string][]string{"emails": emails})
		return
	}
	writeDownload(w, res.Filename, res.ContentType, res.Body)
}
