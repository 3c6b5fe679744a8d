package core

// importer.go runs one CSV import end to end.
//
// Flow:
//  1. Take an import slot (ImportLimiter) and start the import timeout
//  2. Clean and parse the file, resolve the column mapping
//  3. For each row, in file order:
//     - required field empty  -> skipped, no message
//     - conversion error      -> failed
//     - in its own transaction: lock natural key, duplicate -> skipped,
//     otherwise insert entity plus relationship rows -> imported
//     - storage error         -> failed, transaction rolled back
//  4. Write the audit entry and report metrics
//
// Failed rows count as skipped in the result and contribute a
// "row N: message" entry. Only the first errorLimit messages are returned;
// ErrorCount has the full number. One bad row never stops the batch.

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/donorcrm/internal/logging"
	"github.com/google/uuid"
)

// ImportRequest is the input to Service.Import.
type ImportRequest struct {
	EntityType EntityType
	File       io.Reader
	Mapping    map[string]string // canonical field -> header; nil means auto-map only
	Requester  Requester
}

// Import parses req.File and inserts every new entity it describes.
//
// Validation errors (unknown entity type, unreadable CSV, missing required
// mappings) are returned before any row is processed. Once rows start,
// the result is always returned; a timeout stops processing and leaves
// Success false with the rows committed so far.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	def, err := MustGet(req.EntityType)
	if err != nil {
		return nil, err
	}
	if req.File == nil {
		return nil, Validationf("no file provided")
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	parsed, err := Parse(CleanReader(req.File))
	if err != nil {
		return nil, Validationf("%s", err.Error())
	}

	mapping, err := ResolveMapping(parsed.Headers, def.Fields, req.Mapping)
	if err != nil {
		return nil, err
	}

	start := s.now()
	result := &ImportResult{
		ImportID:   uuid.NewString(),
		EntityType: def.Type,
		Total:      len(parsed.Rows),
		Errors:     []string{},
	}

	log := logging.WithFields(ctx,
		"import_id", result.ImportID,
		"entity_type", def.Type,
	)
	log.Info("import started", "rows", result.Total, "mapped_fields", len(mapping))

	completed := true
	for _, row := range parsed.Rows {
		if ctx.Err() != nil {
			completed = false
			s.addRowError(result, row.Line, ctx.Err())
			break
		}

		outcome, rowErr := s.importRow(ctx, def, mapping, row)
		s.recorder.ImportRow(def.Type, outcome)

		switch outcome {
		case OutcomeImported:
			result.Imported++
		case OutcomeSkipped:
			result.Skipped++
		case OutcomeFailed:
			result.Skipped++
			s.addRowError(result, row.Line, rowErr)
			log.Debug("import row failed", "line", row.Line, "error", rowErr)
		}
	}

	result.Success = completed
	result.Duration = s.now().Sub(start)
	result.DurationMS = result.Duration.Milliseconds()
	s.recorder.ImportFinished(def.Type, result.Duration, result.Success)

	s.LogAudit(ctx, AuditParams{
		Action:       ActionImport,
		EntityType:   def.Type,
		UserID:       req.Requester.UserID,
		RowsAffected: result.Imported,
		Reason:       fmt.Sprintf("import %s: %d imported, %d skipped of %d", result.ImportID, result.Imported, result.Skipped, result.Total),
	})

	log.Info("import completed",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", result.ErrorCount,
		"success", result.Success,
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// importRow processes one row in its own transaction.
func (s *Service) importRow(ctx context.Context, def EntityDefinition, mapping Mapping, row CSVRow) (RowOutcome, error) {
	mapped := mapping.Apply(row)
	if len(MissingRequired(mapped, def.Fields)) > 0 {
		return OutcomeSkipped, nil
	}

	rec, err := def.Build(mapped)
	if err != nil {
		return OutcomeFailed, err
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		_, err := insertUnique(ctx, tx, def, rec)
		return err
	})
	switch {
	case err == nil:
		return OutcomeImported, nil
	case errors.Is(err, ErrDuplicate):
		return OutcomeSkipped, nil
	default:
		return OutcomeFailed, err
	}
}

// addRowError records a failed row, keeping at most errorLimit messages.
func (s *Service) addRowError(result *ImportResult, line int, err error) {
	result.ErrorCount++
	if len(result.Errors) >= s.errorLimit {
		return
	}
	result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", line, rowErrorMessage(err)))
}

// rowErrorMessage keeps validation text and maps storage errors to their
// user message, falling back to the raw text for unknown errors.
func rowErrorMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if IsUserFacing(err) {
		return MapError(err).Message
	}
	return err.Error()
}
