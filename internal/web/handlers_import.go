package web

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/donorcrm/internal/core"
	"github.com/JonMunkholm/donorcrm/internal/logging"
	"github.com/JonMunkholm/donorcrm/internal/web/templates"
)

const (
	// multipartOverhead allows for the non-file form fields and boundaries.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of an upload is kept in memory before
	// spilling to a temp file.
	multipartMemory = 8 << 20
)

// importForm is the parsed multipart body shared by import and preview.
type importForm struct {
	entityType core.EntityType
	mapping    map[string]string
	file       multipart.File
	filename   string
}

// parseImportForm reads file, entityType and mapping from a multipart
// request. On success the caller must close form.file and remove the
// multipart temp files.
func (s *Server) parseImportForm(w http.ResponseWriter, r *http.Request) (_ *importForm, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, core.Validationf("invalid multipart form: %v", err)
	}
	defer func() {
		if err != nil {
			r.MultipartForm.RemoveAll()
		}
	}()

	et, err := core.ParseEntityType(firstValue(r.FormValue, "entityType", "entity_type"))
	if err != nil {
		return nil, err
	}

	mapping, err := core.ParseMappingJSON(r.FormValue("mapping"))
	if err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, core.Validationf("no file provided")
		}
		return nil, core.Validationf("read upload: %v", err)
	}
	if header.Size > s.cfg.Import.MaxFileSize {
		file.Close()
		return nil, core.Validationf("file too large: %d bytes, limit is %d", header.Size, s.cfg.Import.MaxFileSize)
	}

	return &importForm{entityType: et, mapping: mapping, file: file, filename: header.Filename}, nil
}

// handleImport runs an import and returns its summary.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseImportForm(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer form.file.Close()
	defer r.MultipartForm.RemoveAll()

	logging.FromContext(r.Context()).Info("import received",
		"entity_type", form.entityType,
		"filename", form.filename,
		"explicit_mapping", len(form.mapping) > 0,
	)

	res, err := s.service.Import(r.Context(), core.ImportRequest{
		EntityType: form.entityType,
		File:       form.file,
		Mapping:    form.mapping,
		Requester:  requester(r),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		renderFragment(w, r, http.StatusOK, templates.ImportSummary(res.Imported, res.Skipped, res.Total, res.Errors))
		return
	}
	writeJSON(w, res)
}

// handlePreview analyzes an upload without importing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseImportForm(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer form.file.Close()
	defer r.MultipartForm.RemoveAll()

	preview, err := s.service.Preview(r.Context(), form.entityType, form.file, form.mapping)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, preview)
}

// handleTemplate downloads the CSV template for an entity type.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	et, err := entityTypeParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filename, body, err := core.CSVTemplate(et)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeDownload(w, filename, "text/csv; charset=utf-8", body)
}

// handleFields lists the canonical fields a mapping UI offers.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	et, err := entityTypeParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	fields, err := s.service.Fields(et)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"entity_type": et,
		"fields":      fields,
	})
}
