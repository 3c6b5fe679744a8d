package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// healthTimeout bounds the database ping behind /healthz.
const healthTimeout = 2 * time.Second

// handleHealth reports liveness and, when configured, database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"active_imports": s.service.ActiveImports(),
	}
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			resp["status"] = "unavailable"
			resp["error"] = core.MapError(err).Message
			writeJSONStatus(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, resp)
}

// parseID reads a positive integer URL parameter.
func parseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

// optionalID reads an optional positive integer query parameter.
func optionalID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, core.Validationf("invalid %s %q", name, raw)
	}
	return &id, nil
}

// entityTypeParam validates the {entityType} URL parameter.
func entityTypeParam(r *http.Request) (core.EntityType, error) {
	return core.ParseEntityType(chi.URLParam(r, "entityType"))
}

// firstValue returns the first non-empty form or query value among names.
func firstValue(get func(string) string, names ...string) string {
	for _, n := range names {
		if v := get(n); v != "" {
			return v
		}
	}
	return ""
}

// writeDownload sends body as an attachment. Filenames are generated
// server-side and never need escaping.
func writeDownload(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// withEntity binds a fixed entity type to an entity handler.
func (s *Server) withEntity(et core.EntityType, h func(http.ResponseWriter, *http.Request, core.EntityType)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, et)
	}
}
