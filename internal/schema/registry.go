package schema

import (
	"fmt"
	"time"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/validation"
)

// Tables outside the entity registry that the store adapters may also touch.
const (
	AuditTable            = "audit_log"
	AuditIDColumn         = "audit_id"
	StatusTransitionTable = "status_transitions"
	TransitionIDColumn    = "transition_id"
)

func intRange(min, max int) (*int, *int) { return &min, &max }

func floatRange(min, max float64) (*float64, *float64) { return &min, &max }

// dateOrder requires cleaned[endField] >= cleaned[startField] when both are
// present.
func dateOrder(startField, endField string) validation.CrossCheck {
	return func(cleaned map[string]any) *apperrors.ValidationError {
		start, okStart := cleaned[startField].(time.Time)
		end, okEnd := cleaned[endField].(time.Time)
		if !okStart || !okEnd {
			return nil
		}
		if end.Before(start) {
			return apperrors.NewValidationError(endField,
				"must be on or after %s (%s)", startField, start.Format("2006-01-02"))
		}
		return nil
	}
}

func distinctFields(a, b, blame string) validation.CrossCheck {
	return func(cleaned map[string]any) *apperrors.ValidationError {
		av, okA := cleaned[a].(string)
		bv, okB := cleaned[b].(string)
		if okA && okB && av == bv {
			return apperrors.NewValidationError(blame,
				"target project must be different from source project")
		}
		return nil
	}
}

func buildRegistry() map[string]*Schema {
	storyPointsMin, storyPointsMax := intRange(0, 100)
	capacityMin, capacityMax := intRange(0, 999)
	phaseOrderMin, phaseOrderMax := intRange(1, 99)
	pctMin, pctMax := intRange(0, 100)
	hoursMin, hoursMax := floatRange(0.01, 24.0)

	schemas := []*Schema{
		{
			Type: "department", Label: "Department",
			Table: "departments", IDColumn: "department_id",
			NameField: "name",
			Fields: []validation.FieldSpec{
				{Name: "name", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "description", Kind: validation.KindString, MaxLen: 5000},
				{Name: "parent_dept_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "head", Kind: validation.KindString, MaxLen: 200},
			},
			MutableColumns: []string{"name", "description", "parent_dept_id", "head", "updated_by"},
		},
		{
			Type: "portfolio", Label: "Portfolio",
			Table: "portfolios", IDColumn: "portfolio_id",
			NameField: "name",
			Fields: []validation.FieldSpec{
				{Name: "name", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "owner", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "description", Kind: validation.KindString, MaxLen: 5000},
				{Name: "strategic_priority", Kind: validation.KindString, MaxLen: 500},
				{Name: "department_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "budget_total", Kind: validation.KindMoney},
			},
			MutableColumns: []string{
				"name", "description", "owner", "status", "health", "department_id",
				"budget_total", "strategic_priority", "updated_by",
			},
			StatusField: "status", StatusEnum: PortfolioStatuses, InitialStatus: "active",
			Defaults: func(now time.Time) map[string]any {
				return map[string]any{"health": "green"}
			},
			DepartmentColumn: "department_id",
		},
		{
			Type: "project", Label: "Project",
			Table: "projects", IDColumn: "project_id",
			NameField: "name",
			Fields: []validation.FieldSpec{
				{Name: "name", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "delivery_method", Kind: validation.KindEnum, Required: true, Enum: DeliveryMethods},
				{Name: "status", Kind: validation.KindEnum, Required: true, Enum: ProjectStatuses},
				{Name: "health", Kind: validation.KindEnum, Required: true, Enum: HealthValues},
				{Name: "start_date", Kind: validation.KindDate, Required: true},
				{Name: "owner", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "sponsor", Kind: validation.KindString, MaxLen: 200},
				{Name: "description", Kind: validation.KindString, MaxLen: 5000},
				{Name: "target_date", Kind: validation.KindDate},
				{Name: "budget_total", Kind: validation.KindMoney},
				{Name: "portfolio_id", Kind: validation.KindString, MaxLen: 50},
			},
			CrossChecks: []validation.CrossCheck{dateOrder("start_date", "target_date")},
			MutableColumns: []string{
				"name", "description", "owner", "sponsor", "status", "health",
				"delivery_method", "current_phase_id", "priority_rank", "pct_complete",
				"budget_total", "budget_spent", "start_date", "target_date",
				"actual_end_date", "portfolio_id", "updated_by",
			},
			StatusField: "status", StatusEnum: ProjectStatuses, InitialStatus: "planning",
		},
		{
			Type: "charter", Label: "Charter",
			Table: "project_charters", IDColumn: "charter_id",
			NameField: "project_name",
			Fields: []validation.FieldSpec{
				{Name: "project_name", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "business_case", Kind: validation.KindString, Required: true, MaxLen: 5000},
				{Name: "objectives", Kind: validation.KindString, Required: true, MaxLen: 5000},
				{Name: "scope_in", Kind: validation.KindString, Required: true, MaxLen: 5000},
				{Name: "scope_out", Kind: validation.KindString, MaxLen: 5000},
				{Name: "stakeholders", Kind: validation.KindString, MaxLen: 2000},
				{Name: "success_criteria", Kind: validation.KindString, MaxLen: 5000},
				{Name: "risks", Kind: validation.KindString, MaxLen: 5000},
				{Name: "budget", Kind: validation.KindString, MaxLen: 100},
				{Name: "timeline", Kind: validation.KindString, MaxLen: 200},
				{Name: "delivery_method", Kind: validation.KindEnum, Required: true, Enum: DeliveryMethods},
				{Name: "description", Kind: validation.KindString, MaxLen: 5000},
			},
			MutableColumns: []string{
				"project_name", "version", "business_case", "objectives",
				"scope_in", "scope_out", "assumptions", "constraints",
				"stakeholders", "success_criteria", "risks", "budget", "timeline",
				"delivery_method", "description", "status", "approved_by",
				"approved_date", "updated_by",
			},
			StatusField: "status", StatusEnum: CharterStatuses, InitialStatus: "draft",
			Approval: &ApprovalSpec{
				FromStatuses:   []string{"submitted", "under_review"},
				ApprovedStatus: "approved",
				RejectedStatus: "rejected",
				ByColumn:       "approved_by",
				DateColumn:     "approved_date",
			},
		},
		{
			Type: "phase", Label: "Phase",
			Table: "phases", IDColumn: "phase_id",
			NameField: "name",
			Fields: []validation.FieldSpec{
				{Name: "name", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "phase_type", Kind: validation.KindEnum, Required: true, Enum: PhaseTypes},
				{Name: "delivery_method", Kind: validation.KindEnum, Required: true, Enum: DeliveryMethods},
				{Name: "phase_order", Kind: validation.KindInt, Required: true, Min: phaseOrderMin, Max: phaseOrderMax},
				{Name: "project_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "start_date", Kind: validation.KindDate},
				{Name: "end_date", Kind: validation.KindDate},
			},
			CrossChecks: []validation.CrossCheck{dateOrder("start_date", "end_date")},
			MutableColumns: []string{
				"name", "phase_type", "phase_order", "delivery_method", "status",
				"start_date", "end_date", "actual_start", "actual_end",
				"pct_complete", "updated_by",
			},
			StatusField: "status", StatusEnum: PhaseStatuses, InitialStatus: "not_started",
		},
		{
			Type: "gate", Label: "Gate",
			Table: "gates", IDColumn: "gate_id",
			NameField: "name",
			Fields: []validation.FieldSpec{
				{Name: "name", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "criteria", Kind: validation.KindString, MaxLen: 5000},
				{Name: "phase_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "gate_order", Kind: validation.KindInt, Min: phaseOrderMin, Max: phaseOrderMax},
			},
			MutableColumns: []string{
				"gate_order", "name", "status", "criteria", "decision",
				"decided_by", "decided_at", "updated_by",
			},
			StatusField: "status", StatusEnum: GateStatuses, InitialStatus: "pending",
			Approval: &ApprovalSpec{
				FromStatuses:   []string{"pending"},
				ApprovedStatus: "approved",
				RejectedStatus: "rejected",
				ByColumn:       "decided_by",
				DateColumn:     "decided_at",
			},
		},
		{
			Type: "deliverable", Label: "Deliverable",
			Table: "deliverables", IDColumn: "deliverable_id",
			NameField: "name",
			Fields: []validation.FieldSpec{
				{Name: "name", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "status", Kind: validation.KindEnum, Enum: DeliverableStatuses},
				{Name: "owner", Kind: validation.KindString, MaxLen: 200},
				{Name: "due_date", Kind: validation.KindDate},
				{Name: "description", Kind: validation.KindString, MaxLen: 5000},
				{Name: "artifact_url", Kind: validation.KindString, MaxLen: 2000},
				{Name: "project_id", Kind: validation.KindString, MaxLen: 50},
			},
			MutableColumns: []string{
				"name", "description", "status", "owner", "due_date",
				"completed_date", "artifact_url", "updated_by",
			},
			StatusField: "status", StatusEnum: DeliverableStatuses, InitialStatus: "not_started",
		},
		{
			Type: "sprint", Label: "Sprint",
			Table: "sprints", IDColumn: "sprint_id",
			NameField: "name",
			Fields: []validation.FieldSpec{
				{Name: "name", Kind: validation.KindString, Required: true, MaxLen: 100},
				{Name: "start_date", Kind: validation.KindDate, Required: true},
				{Name: "end_date", Kind: validation.KindDate, Required: true},
				{Name: "capacity_points", Kind: validation.KindInt, Min: capacityMin, Max: capacityMax},
				{Name: "goal", Kind: validation.KindString, MaxLen: 1000},
				{Name: "project_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "phase_id", Kind: validation.KindString, MaxLen: 50},
			},
			CrossChecks: []validation.CrossCheck{dateOrder("start_date", "end_date")},
			MutableColumns: []string{
				"name", "goal", "start_date", "end_date", "status",
				"capacity_points", "phase_id", "updated_by",
			},
			StatusField: "status", StatusEnum: SprintStatuses, InitialStatus: "planning",
		},
		{
			Type: "task", Label: "Task",
			Table: "tasks", IDColumn: "task_id",
			NameField: "title",
			Fields: []validation.FieldSpec{
				{Name: "title", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "task_type", Kind: validation.KindEnum, Required: true, Enum: TaskTypes},
				{Name: "priority", Kind: validation.KindEnum, Required: true, Enum: PriorityLevels},
				{Name: "story_points", Kind: validation.KindInt, Min: storyPointsMin, Max: storyPointsMax},
				{Name: "assignee", Kind: validation.KindString, MaxLen: 200},
				{Name: "description", Kind: validation.KindString, MaxLen: 5000},
				{Name: "due_date", Kind: validation.KindDate},
				{Name: "project_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "sprint_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "phase_id", Kind: validation.KindString, MaxLen: 50},
			},
			MutableColumns: []string{
				"title", "description", "task_type", "status", "priority",
				"assignee", "story_points", "due_date", "backlog_rank",
				"sprint_id", "phase_id", "parent_task_id", "updated_by",
			},
			StatusField: "status", StatusEnum: TaskStatuses, InitialStatus: "backlog",
			EngineerMutable:   true,
			TracksTransitions: true,
		},
		{
			Type: "risk", Label: "Risk",
			Table: "risks", IDColumn: "risk_id",
			NameField: "title",
			Fields: []validation.FieldSpec{
				{Name: "title", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "category", Kind: validation.KindEnum, Required: true, Enum: RiskCategories},
				{Name: "probability", Kind: validation.KindScore, Required: true},
				{Name: "impact", Kind: validation.KindScore, Required: true},
				{Name: "response_strategy", Kind: validation.KindEnum, Enum: RiskResponseStrategies},
				{Name: "risk_proximity", Kind: validation.KindEnum, Enum: RiskProximity},
				{Name: "description", Kind: validation.KindString, MaxLen: 5000},
				{Name: "mitigation_plan", Kind: validation.KindString, MaxLen: 5000},
				{Name: "contingency_plan", Kind: validation.KindString, MaxLen: 5000},
				{Name: "trigger_conditions", Kind: validation.KindString, MaxLen: 2000},
				{Name: "owner", Kind: validation.KindString, MaxLen: 200},
				{Name: "response_owner", Kind: validation.KindString, MaxLen: 200},
				{Name: "project_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "portfolio_id", Kind: validation.KindString, MaxLen: 50},
			},
			MutableColumns: []string{
				"title", "description", "category", "probability", "impact",
				"risk_score", "status", "mitigation_plan", "response_strategy",
				"contingency_plan", "trigger_conditions", "risk_proximity",
				"risk_urgency", "residual_probability", "residual_impact",
				"residual_score", "secondary_risks", "identified_date",
				"last_review_date", "response_owner", "owner", "updated_by",
			},
			StatusField: "status", StatusEnum: RiskStatuses, InitialStatus: "identified",
			Defaults: func(now time.Time) map[string]any {
				today := now.Format("2006-01-02")
				return map[string]any{
					"identified_date":  today,
					"last_review_date": today,
				}
			},
			Derive: func(cleaned map[string]any) {
				p, okP := cleaned["probability"].(int)
				i, okI := cleaned["impact"].(int)
				if okP && okI {
					cleaned["risk_score"] = p * i
				}
			},
		},
		{
			Type: "retro_item", Label: "Retro item",
			Table: "retro_items", IDColumn: "retro_id",
			NameField: "body",
			Fields: []validation.FieldSpec{
				{Name: "category", Kind: validation.KindEnum, Required: true, Enum: RetroCategories},
				{Name: "body", Kind: validation.KindString, Required: true, MaxLen: 2000},
				{Name: "author", Kind: validation.KindString, MaxLen: 200},
				{Name: "sprint_id", Kind: validation.KindString, MaxLen: 50},
			},
			MutableColumns:  []string{"category", "body", "votes", "action_task_id", "updated_by"},
			EngineerMutable: true,
		},
		{
			Type: "dependency", Label: "Dependency",
			Table: "dependencies", IDColumn: "dependency_id",
			NameField: "description",
			Fields: []validation.FieldSpec{
				{Name: "source_project_id", Kind: validation.KindString, Required: true, MaxLen: 50},
				{Name: "target_project_id", Kind: validation.KindString, Required: true, MaxLen: 50},
				{Name: "dependency_type", Kind: validation.KindEnum, Required: true, Enum: DependencyTypes},
				{Name: "risk_level", Kind: validation.KindEnum, Required: true, Enum: DependencyRiskLevels},
				{Name: "description", Kind: validation.KindString, MaxLen: 5000},
				{Name: "status", Kind: validation.KindEnum, Enum: DependencyStatuses},
			},
			CrossChecks: []validation.CrossCheck{
				distinctFields("source_project_id", "target_project_id", "target_project_id"),
			},
			MutableColumns: []string{
				"dependency_type", "risk_level", "description", "status", "updated_by",
			},
			StatusField: "status", StatusEnum: DependencyStatuses, InitialStatus: "active",
		},
		{
			Type: "comment", Label: "Comment",
			Table: "comments", IDColumn: "comment_id",
			NameField: "body",
			Fields: []validation.FieldSpec{
				{Name: "body", Kind: validation.KindString, Required: true, MaxLen: 5000},
				{Name: "author", Kind: validation.KindString, MaxLen: 200},
				{Name: "entity_type", Kind: validation.KindString, MaxLen: 50},
				{Name: "entity_id", Kind: validation.KindString, MaxLen: 50},
			},
			MutableColumns:  []string{"body", "updated_by"},
			EngineerMutable: true,
		},
		{
			Type: "time_entry", Label: "Time entry",
			Table: "time_entries", IDColumn: "entry_id",
			NameField: "task_id",
			Fields: []validation.FieldSpec{
				{Name: "task_id", Kind: validation.KindString, Required: true, MaxLen: 50},
				{Name: "user_id", Kind: validation.KindString, Required: true, MaxLen: 50},
				{Name: "hours", Kind: validation.KindFloat, Required: true, MinF: hoursMin, MaxF: hoursMax},
				{Name: "work_date", Kind: validation.KindDate, Required: true},
				{Name: "notes", Kind: validation.KindString, MaxLen: 2000},
			},
			MutableColumns: []string{
				"task_id", "user_id", "hours", "work_date", "notes", "updated_by",
			},
			EngineerMutable: true,
		},
		{
			Type: "team_member", Label: "Team member",
			Table: "team_members", IDColumn: "user_id",
			NameField: "display_name",
			Fields: []validation.FieldSpec{
				{Name: "display_name", Kind: validation.KindString, Required: true, MaxLen: 200},
				{Name: "email", Kind: validation.KindEmail, Required: true},
				{Name: "role", Kind: validation.KindEnum, Required: true, Enum: TeamRoles},
				{Name: "department_id", Kind: validation.KindString, MaxLen: 50},
				{Name: "capacity_pct", Kind: validation.KindInt, Min: pctMin, Max: pctMax},
				{Name: "is_active", Kind: validation.KindBool},
			},
			MutableColumns: []string{
				"display_name", "email", "department_id", "role", "is_active",
				"capacity_pct", "updated_by",
			},
			DepartmentColumn: "department_id",
		},
		{
			Type: "assignment", Label: "Assignment",
			Table: "project_team", IDColumn: "user_id",
			NameField: "user_id",
			Fields: []validation.FieldSpec{
				{Name: "project_id", Kind: validation.KindID, Required: true},
				{Name: "user_id", Kind: validation.KindID, Required: true},
				{Name: "project_role", Kind: validation.KindEnum, Required: true, Enum: ProjectRoles},
				{Name: "allocation_pct", Kind: validation.KindInt, Required: true, Min: pctMin, Max: pctMax},
				{Name: "start_date", Kind: validation.KindDate},
				{Name: "end_date", Kind: validation.KindDate},
			},
			CrossChecks: []validation.CrossCheck{dateOrder("start_date", "end_date")},
			MutableColumns: []string{
				"project_role", "allocation_pct", "start_date", "end_date", "updated_by",
			},
		},
	}

	reg := make(map[string]*Schema, len(schemas))
	for _, s := range schemas {
		s.mutableSet = make(map[string]struct{}, len(s.MutableColumns))
		for _, c := range s.MutableColumns {
			s.mutableSet[c] = struct{}{}
		}
		reg[s.Type] = s
	}
	return reg
}

var registry = buildRegistry()

// Get returns the schema for an entity type.
func Get(entityType string) (*Schema, error) {
	s, ok := registry[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", apperrors.ErrPolicyViolation, entityType)
	}
	return s, nil
}

// Types returns every registered entity type key.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}

// All returns every registered schema.
func All() []*Schema {
	out := make([]*Schema, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	return out
}

// TableAllowed reports whether a table name may appear in dynamically built
// SQL. The set is fixed at startup; anything else is a policy violation.
func TableAllowed(table string) bool {
	if table == AuditTable || table == StatusTransitionTable {
		return true
	}
	for _, s := range registry {
		if s.Table == table {
			return true
		}
	}
	return false
}

// IDColumnAllowed reports whether an id column may appear in dynamically
// built SQL.
func IDColumnAllowed(column string) bool {
	if column == AuditIDColumn || column == TransitionIDColumn {
		return true
	}
	for _, s := range registry {
		if s.IDColumn == column {
			return true
		}
	}
	return false
}
