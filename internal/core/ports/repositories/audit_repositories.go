package repositories

import (
	"context"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
)

// AuditWriter appends immutable audit entries. Entries are never updated
// or removed.
type AuditWriter interface {
	SaveAuditEntry(ctx context.Context, entry domain.AuditEntry) error
}

// AuditReader retrieves audit history.
type AuditReader interface {
	// FindAuditByEntity returns entries for one record, newest first.
	FindAuditByEntity(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditEntry, error)

	// FindAuditByUser returns entries recorded by one user, newest first.
	FindAuditByUser(ctx context.Context, userEmail string, limit int) ([]domain.AuditEntry, error)

	// FindRecentAudit returns the most recent entries across all records.
	FindRecentAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// AuditRepositoryFacade combines audit read and write interfaces.
type AuditRepositoryFacade interface {
	AuditWriter
	AuditReader
}

// TransitionWriter appends task status transition rows.
type TransitionWriter interface {
	SaveStatusTransition(ctx context.Context, tr domain.StatusTransition) error
}

// TransitionReader retrieves transition history for one task.
type TransitionReader interface {
	FindTransitionsByTask(ctx context.Context, taskID string) ([]domain.StatusTransition, error)
}

// TransitionRepositoryFacade combines transition read and write interfaces.
type TransitionRepositoryFacade interface {
	TransitionWriter
	TransitionReader
}
