package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/donorcrm/internal/logging"
	"github.com/google/uuid"
)

// AuditParams describes one auditable action.
type AuditParams struct {
	Action       AuditAction
	EntityType   EntityType
	UserID       string
	RowsAffected int
	Reason       string
}

// severityFor returns the severity recorded for an action.
func severityFor(action AuditAction) AuditSeverity {
	switch action {
	case ActionImport, ActionEntityDelete:
		return SeverityHigh
	case ActionExport, ActionSavedViewCreate, ActionSavedViewUpdate, ActionSavedViewDelete:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// LogAudit writes an audit entry. Failures are logged, never returned:
// the audited operation has already happened.
func (s *Service) LogAudit(ctx context.Context, p AuditParams) {
	entry := AuditEntry{
		ID:           uuid.NewString(),
		Action:       p.Action,
		Severity:     severityFor(p.Action),
		EntityType:   p.EntityType,
		UserID:       p.UserID,
		IPAddress:    IPAddressFromContext(ctx),
		UserAgent:    UserAgentFromContext(ctx),
		RowsAffected: p.RowsAffected,
		Reason:       p.Reason,
		CreatedAt:    s.now().UTC(),
	}

	// The request context may already be cancelled after a timed-out import.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.store.InsertAudit(writeCtx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit write failed",
			"action", p.Action,
			"entity_type", p.EntityType,
			"error", err,
		)
	}
}
