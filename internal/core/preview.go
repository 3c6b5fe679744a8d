package core

import (
	"context"
	"errors"
	"io"
)

// PreviewSummary counts what an import would do with each row.
type PreviewSummary struct {
	TotalRows       int `json:"total_rows"`
	NewRows         int `json:"new_rows"`
	ExistingRows    int `json:"existing_rows"`     // natural key already stored
	DuplicateInFile int `json:"duplicate_in_file"` // natural key seen earlier in the file
	MissingRequired int `json:"missing_required"`
	ErrorRows       int `json:"error_rows"`
}

// RowPreview is one sample row in canonical field form.
type RowPreview struct {
	Line   int               `json:"line"`
	Values map[string]string `json:"values"`
	Errors []string          `json:"errors,omitempty"`
}

// ImportPreview is the read-only analysis of an upload.
//
// MappingError is set instead of an error return when the file parses but
// the mapping is incomplete, so a mapping UI can show headers and fields
// side by side and let the user fix it.
type ImportPreview struct {
	EntityType       EntityType     `json:"entity_type"`
	Headers          []string       `json:"headers"`
	Fields           []FieldSpec    `json:"fields"`
	Mapping          Mapping        `json:"mapping"`
	MappingError     string         `json:"mapping_error,omitempty"`
	MissingFields    []string       `json:"missing_fields,omitempty"`
	Summary          PreviewSummary `json:"summary"`
	NewRowSamples    []RowPreview   `json:"new_row_samples"`
	ErrorSamples     []RowPreview   `json:"error_samples"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

const (
	maxNewRowSamples = 10
	maxErrorSamples  = 20
)

// Preview analyzes an upload without writing anything.
func (s *Service) Preview(ctx context.Context, et EntityType, file io.Reader, explicit map[string]string) (*ImportPreview, error) {
	start := s.now()

	def, err := MustGet(et)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, Validationf("no file provided")
	}

	parsed, err := Parse(CleanReader(file))
	if err != nil {
		return nil, Validationf("%s", err.Error())
	}

	p := &ImportPreview{
		EntityType:    et,
		Headers:       parsed.Headers,
		Fields:        def.Fields,
		NewRowSamples: []RowPreview{},
		ErrorSamples:  []RowPreview{},
	}
	p.Summary.TotalRows = len(parsed.Rows)

	mapping, err := ResolveMapping(parsed.Headers, def.Fields, explicit)
	if err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		p.Mapping = AutoMap(parsed.Headers, def.Fields)
		p.MappingError = ve.Message
		p.MissingFields = ve.Fields
		p.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
		return p, nil
	}
	p.Mapping = mapping

	seen := make(map[string]bool)
	for _, row := range parsed.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mapped := mapping.Apply(row)
		sample := RowPreview{Line: row.Line, Values: mapped}

		if missing := MissingRequired(mapped, def.Fields); len(missing) > 0 {
			p.Summary.MissingRequired++
			for _, f := range missing {
				sample.Errors = append(sample.Errors, f+" is empty")
			}
			p.addErrorSample(sample)
			continue
		}

		rec, err := def.Build(mapped)
		if err != nil {
			p.Summary.ErrorRows++
			sample.Errors = append(sample.Errors, rowErrorMessage(err))
			p.addErrorSample(sample)
			continue
		}

		key := def.NaturalKey(rec)
		if seen[key] {
			p.Summary.DuplicateInFile++
			continue
		}
		seen[key] = true

		exists, err := def.Exists(ctx, s.store, rec)
		if err != nil {
			return nil, err
		}
		if exists {
			p.Summary.ExistingRows++
			continue
		}

		p.Summary.NewRows++
		if len(p.NewRowSamples) < maxNewRowSamples {
			p.NewRowSamples = append(p.NewRowSamples, sample)
		}
	}

	p.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
	return p, nil
}

func (p *ImportPreview) addErrorSample(r RowPreview) {
	if len(p.ErrorSamples) < maxErrorSamples {
		p.ErrorSamples = append(p.ErrorSamples, r)
	}
}
