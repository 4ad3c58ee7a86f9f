package domain

import "time"

// AuditAction is the lifecycle action an audit entry records.
type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditApprove AuditAction = "approve"
	AuditReject  AuditAction = "reject"
)

// AuditEntry is one append-only change-history row. Entries reference an
// entity by (type, id) and outlive it: soft-deleted records keep their trail.
type AuditEntry struct {
	AuditID      string      `json:"auditID"`
	UserEmail    string      `json:"userEmail"`
	Action       AuditAction `json:"action"`
	EntityType   string      `json:"entityType"`
	EntityID     string      `json:"entityID"`
	FieldChanged string      `json:"fieldChanged,omitempty"`
	OldValue     string      `json:"oldValue,omitempty"`
	NewValue     string      `json:"newValue,omitempty"`
	Details      string      `json:"details,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// StatusTransition is one from→to status change on a task. Tasks are the one
// entity whose status history is tracked explicitly.
type StatusTransition struct {
	TransitionID   string    `json:"transitionID"`
	TaskID         string    `json:"taskID"`
	FromStatus     string    `json:"fromStatus"`
	ToStatus       string    `json:"toStatus"`
	ChangedBy      string    `json:"changedBy"`
	TransitionedAt time.Time `json:"transitionedAt"`
}
