package dto

import (
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
)

// Failure reasons carried by MutationResult so handlers can choose a
// status code without parsing messages.
const (
	ReasonValidation = "validation"
	ReasonConflict   = "conflict"
	ReasonForbidden  = "forbidden"
	ReasonBlocked    = "blocked"
)

// MutationResult is the uniform outcome of create/update/delete/decision
// operations. Message carries the stable user-facing text; Detail adds
// context that may change between releases. Errors maps field names to
// messages when validation failed.
type MutationResult struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Detail  string            `json:"detail,omitempty"`
	Reason  string            `json:"reason,omitempty"`
	ID      string            `json:"id,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Record  domain.Record     `json:"record,omitempty"`
}

// ListEntitiesParams defines query parameters for listing records.
type ListEntitiesParams struct {
	Status string `form:"status"`
	Limit  int    `form:"limit,default=50"`
	Offset int    `form:"offset,default=0"`
}

// ListEntitiesResponse wraps a page of records.
type ListEntitiesResponse struct {
	Items []domain.Record `json:"items"`
	Count int             `json:"count"`
}

// UpdateEntityRequest carries a partial update plus the version token the
// client last saw. Version is required so concurrent edits are detected.
type UpdateEntityRequest struct {
	Updates map[string]any `json:"updates" binding:"required"`
	Version string         `json:"version" binding:"required"`
}

// StatusChangeRequest moves a record to a new status.
type StatusChangeRequest struct {
	Status  string `json:"status" binding:"required"`
	Version string `json:"version" binding:"required"`
}

// DecisionRequest approves or rejects a record that has an approval flow.
type DecisionRequest struct {
	Approve bool   `json:"approve"`
	Version string `json:"version" binding:"required"`
	Notes   string `json:"notes"`
}
