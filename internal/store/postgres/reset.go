package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ResetTimeout bounds a full data reset.
const ResetTimeout = 30 * time.Second

// dataTables lists every table Truncate empties, children first.
var dataTables = []string{
	"person_type_assignments",
	"person_schools",
	"person_companies",
	"donations",
	"saved_views",
	"person_types",
	"people",
	"companies",
	"schools",
	"audit_log",
}

// Truncate deletes all data and restarts id sequences.
// This is destructive; crmctl reset and the integration tests use it.
func (s *Store) Truncate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	tables := make([]string, len(dataTables))
	for i, t := range dataTables {
		tables[i] = quoteIdentifier(t)
	}

	sql := "TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}
