// Package schema declares, per entity type, the validated field set, the
// mutable-column allowlist, status enums, and the table/id-column surface the
// store adapters are allowed to touch. Everything the generic entity service
// knows about an entity type comes from here.
package schema

// Status and category enums, per the backing DDL.
var (
	TaskStatuses    = []string{"backlog", "todo", "in_progress", "review", "done", "blocked"}
	ProjectStatuses = []string{"planning", "active", "on_hold", "completed", "cancelled"}
	SprintStatuses  = []string{"planning", "active", "review", "closed"}

	RiskStatuses = []string{
		"identified", "qualitative_analysis", "response_planning",
		"monitoring", "resolved", "closed",
	}

	CharterStatuses = []string{"draft", "submitted", "under_review", "approved", "rejected"}
	GateStatuses    = []string{"pending", "approved", "rejected", "deferred"}

	DeliveryMethods = []string{"waterfall", "agile", "hybrid"}
	TaskTypes       = []string{"epic", "story", "task", "bug", "subtask"}
	PriorityLevels  = []string{"critical", "high", "medium", "low"}

	RiskCategories = []string{
		"technical", "resource", "schedule", "scope", "budget",
		"external", "organizational",
	}
	RiskResponseStrategies = []string{"avoid", "transfer", "mitigate", "accept", "escalate"}
	RiskProximity          = []string{"near_term", "mid_term", "long_term"}

	RetroCategories = []string{"went_well", "improve", "action_item"}

	DependencyTypes      = []string{"blocking", "dependent", "shared_resource", "informational"}
	DependencyRiskLevels = []string{"high", "medium", "low"}
	DependencyStatuses   = []string{"active", "resolved", "accepted"}

	PortfolioStatuses = []string{"active", "on_hold", "archived"}
	HealthValues      = []string{"green", "yellow", "red"}

	PhaseTypes = []string{
		"initiation", "planning", "design", "build", "test", "deploy", "closeout",
	}
	PhaseStatuses       = []string{"not_started", "active", "complete"}
	DeliverableStatuses = []string{"not_started", "in_progress", "complete", "approved"}

	TeamRoles    = []string{"admin", "lead", "pm", "engineer", "analyst", "viewer"}
	ProjectRoles = []string{"pm", "lead", "engineer", "analyst", "stakeholder"}
)
