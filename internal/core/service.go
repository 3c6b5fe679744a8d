package core

import (
	"context"
	"time"
)

const (
	// DefaultImportTimeout bounds a single import run.
	DefaultImportTimeout = 10 * time.Minute

	// DefaultErrorLimit is how many row error messages an import returns.
	DefaultErrorLimit = 5
)

// RowOutcome classifies one processed import row.
type RowOutcome string

const (
	OutcomeImported RowOutcome = "imported"
	OutcomeSkipped  RowOutcome = "skipped"
	OutcomeFailed   RowOutcome = "failed"
)

// Recorder receives pipeline measurements. The metrics package implements it.
type Recorder interface {
	ImportRow(et EntityType, outcome RowOutcome)
	ImportFinished(et EntityType, elapsed time.Duration, success bool)
	Exported(et EntityType, format ExportFormat, rows int)
}

type nopRecorder struct{}

func (nopRecorder) ImportRow(EntityType, RowOutcome)               {}
func (nopRecorder) ImportFinished(EntityType, time.Duration, bool) {}
func (nopRecorder) Exported(EntityType, ExportFormat, int)         {}

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	MaxConcurrentImports int
	ImportMaxWait        time.Duration
	ImportTimeout        time.Duration
	ErrorLimit           int
	Recorder             Recorder
}

// Service provides the import/export pipeline and the CRUD operations
// around it. It is safe for concurrent use.
type Service struct {
	store    Store
	limiter  *ImportLimiter
	recorder Recorder

	importTimeout time.Duration
	errorLimit    int

	now func() time.Time
}

// NewService creates a Service over store.
func NewService(store Store, opts Options) *Service {
	if opts.ImportTimeout <= 0 {
		opts.ImportTimeout = DefaultImportTimeout
	}
	if opts.ErrorLimit <= 0 {
		opts.ErrorLimit = DefaultErrorLimit
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	return &Service{
		store:         store,
		limiter:       NewImportLimiter(opts.MaxConcurrentImports, opts.ImportMaxWait),
		recorder:      opts.Recorder,
		importTimeout: opts.ImportTimeout,
		errorLimit:    opts.ErrorLimit,
		now:           time.Now,
	}
}

// Definitions returns every registered entity definition.
func (s *Service) Definitions() []EntityDefinition {
	return All()
}

// Fields returns the canonical fields for an entity type.
func (s *Service) Fields(et EntityType) ([]FieldSpec, error) {
	def, err := MustGet(et)
	if err != nil {
		return nil, err
	}
	return def.Fields, nil
}

// ActiveImports returns the number of imports currently running.
func (s *Service) ActiveImports() int {
	return s.limiter.Active()
}

// WaitForImports blocks until running imports finish or ctx ends.
// Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
