package services

import (
	"context"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	"github.com/pm-hub/pmhub_backend/internal/dto"
)

// EntityReaderSvc defines read operations over schema-driven records.
type EntityReaderSvc interface {
	// GetEntity retrieves one live record, subject to the actor's
	// department scope.
	GetEntity(ctx context.Context, actor domain.Actor, entityType, id string) (domain.Record, error)

	// ListEntities retrieves live records, scoped to the actor's
	// department when the schema carries one.
	ListEntities(ctx context.Context, actor domain.Actor, entityType string, params dto.ListEntitiesParams) ([]domain.Record, error)
}

// EntityWriterSvc defines validated mutations over schema-driven records.
// All mutations return a MutationResult rather than failing on validation
// or concurrency problems; infrastructure failures are returned as errors.
type EntityWriterSvc interface {
	// CreateEntity validates form and inserts a new record.
	CreateEntity(ctx context.Context, actor domain.Actor, entityType string, form map[string]any) (dto.MutationResult, error)

	// UpdateEntity validates the changed fields and applies a partial
	// update guarded by the version token the client last saw.
	UpdateEntity(ctx context.Context, actor domain.Actor, entityType, id string, updates map[string]any, version string) (dto.MutationResult, error)

	// ChangeStatus moves a record to a new status value, recording a
	// transition row for schemas that track them.
	ChangeStatus(ctx context.Context, actor domain.Actor, entityType, id, status, version string) (dto.MutationResult, error)

	// Decide approves or rejects a record whose schema has an approval
	// flow. Only records in one of the flow's from-statuses are eligible.
	Decide(ctx context.Context, actor domain.Actor, entityType, id string, approve bool, version, notes string) (dto.MutationResult, error)
}

// EntityLifecycleSvc defines soft-delete operations.
type EntityLifecycleSvc interface {
	// DeleteEntity soft-deletes a record. Repeated deletes succeed without
	// writing a second audit entry.
	DeleteEntity(ctx context.Context, actor domain.Actor, entityType, id string) (dto.MutationResult, error)
}

// EntitySvcFacade combines all record service interfaces.
type EntitySvcFacade interface {
	EntityReaderSvc
	EntityWriterSvc
	EntityLifecycleSvc
}

// ChangeHistorySvc exposes the audit feed and task status timelines.
type ChangeHistorySvc interface {
	// EntityHistory returns audit entries for one record, newest first.
	EntityHistory(ctx context.Context, actor domain.Actor, entityType, entityID string, limit int) ([]domain.AuditEntry, error)

	// UserHistory returns audit entries recorded by one user.
	UserHistory(ctx context.Context, actor domain.Actor, userEmail string, limit int) ([]domain.AuditEntry, error)

	// RecentActivity returns the newest entries across all records.
	RecentActivity(ctx context.Context, actor domain.Actor, limit int) ([]domain.AuditEntry, error)

	// TaskTransitions returns a task's status timeline, oldest first.
	TaskTransitions(ctx context.Context, actor domain.Actor, taskID string) ([]domain.StatusTransition, error)
}
