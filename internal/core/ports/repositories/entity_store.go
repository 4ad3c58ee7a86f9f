package repositories

import (
	"context"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	"github.com/pm-hub/pmhub_backend/internal/schema"
)

// ListFilter narrows EntityReader.List results. Zero values mean "no
// restriction". Department applies only to schemas with a department
// column.
type ListFilter struct {
	Department     string
	Status         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// EntityReader defines read operations over schema-driven records.
type EntityReader interface {
	// Find retrieves a live record by id. Soft-deleted rows are treated
	// as missing and yield apperrors.ErrNotFound.
	Find(ctx context.Context, sc *schema.Schema, id string) (domain.Record, error)

	// List retrieves live records for a schema, newest first.
	List(ctx context.Context, sc *schema.Schema, filter ListFilter) ([]domain.Record, error)
}

// EntityWriter defines write operations over schema-driven records.
type EntityWriter interface {
	// Insert persists a new record and returns it with its audit columns
	// populated. The record's id must already be set.
	Insert(ctx context.Context, sc *schema.Schema, rec domain.Record) (domain.Record, error)

	// Update applies updates to a live record. Columns outside the
	// schema's mutable set yield apperrors.ErrPolicyViolation. When
	// expectedVersion is non-nil the update succeeds only if the stored
	// version token still matches; a stale token yields
	// apperrors.ErrConflict. Returns the record as stored afterwards.
	Update(ctx context.Context, sc *schema.Schema, id string, updates map[string]any, expectedVersion *string, updatedBy string) (domain.Record, error)
}

// EntityLifecycleManager defines soft-delete operations.
type EntityLifecycleManager interface {
	// SoftDelete marks a record deleted. Deleting an already-deleted or
	// missing record is a no-op and returns false; a live record that was
	// just marked returns true.
	SoftDelete(ctx context.Context, sc *schema.Schema, id string, deletedBy string) (bool, error)
}

// EntityStoreFacade combines all record store interfaces.
type EntityStoreFacade interface {
	EntityReader
	EntityWriter
	EntityLifecycleManager
}
