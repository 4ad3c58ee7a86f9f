package dto

import (
	"time"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
)

// AuditEntryResponse is one row of the change history feed.
type AuditEntryResponse struct {
	AuditID      string    `json:"audit_id"`
	UserEmail    string    `json:"user_email"`
	Action       string    `json:"action"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	FieldChanged string    `json:"field_changed,omitempty"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	Details      string    `json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToAuditEntryResponse converts a domain audit entry to its response DTO.
func ToAuditEntryResponse(e domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		AuditID:      e.AuditID,
		UserEmail:    e.UserEmail,
		Action:       string(e.Action),
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		FieldChanged: e.FieldChanged,
		OldValue:     e.OldValue,
		NewValue:     e.NewValue,
		Details:      e.Details,
		CreatedAt:    e.CreatedAt,
	}
}

// ListAuditResponse wraps a page of audit entries.
type ListAuditResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

// ToListAuditResponse converts a slice of domain audit entries.
func ToListAuditResponse(entries []domain.AuditEntry) ListAuditResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = ToAuditEntryResponse(e)
	}
	return ListAuditResponse{Entries: out}
}

// StatusTransitionResponse is one row of a task's status timeline.
type StatusTransitionResponse struct {
	TransitionID   string    `json:"transition_id"`
	TaskID         string    `json:"task_id"`
	FromStatus     string    `json:"from_status"`
	ToStatus       string    `json:"to_status"`
	ChangedBy      string    `json:"changed_by"`
	TransitionedAt time.Time `json:"transitioned_at"`
}

// ToStatusTransitionResponse converts a domain transition.
func ToStatusTransitionResponse(tr domain.StatusTransition) StatusTransitionResponse {
	return StatusTransitionResponse{
		TransitionID:   tr.TransitionID,
		TaskID:         tr.TaskID,
		FromStatus:     tr.FromStatus,
		ToStatus:       tr.ToStatus,
		ChangedBy:      tr.ChangedBy,
		TransitionedAt: tr.TransitionedAt,
	}
}
