package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers never pick a status code or message themselves. respondError
// classifies the error, logs the technical detail with the request id, and
// returns the user-facing message from core.MapError in the format the
// client asked for (HTMX fragment or JSON).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/donorcrm/internal/auth"
	"github.com/JonMunkholm/donorcrm/internal/core"
	"github.com/JonMunkholm/donorcrm/internal/logging"
	"github.com/JonMunkholm/donorcrm/internal/web/templates"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Fields  []string `json:"fields,omitempty"`
}

// statusFor maps an error class to an HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case core.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}

	if isHTMX(r) {
		renderFragment(w, r, status, templates.ErrorAlert(msg.Message, msg.Action, msg.Code))
		return
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}
	writeJSONStatus(w, status, resp)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// renderFragment writes an HTML fragment with status. Render errors are
// only logged since headers are already sent.
func renderFragment(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render fragment", "path", r.URL.Path, "error", err)
	}
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// decodeJSON reads a JSON body into v. Unknown fields are rejected so
// typos surface as validation errors instead of silently doing nothing.
func decodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return core.Validationf("expected a JSON body, got %s", ct)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.Validationf("invalid JSON body: %v", err)
	}
	return nil
}
