package memory

import (
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
	"github.com/pm-hub/pmhub_backend/internal/utils"
)

// seedRow writes a record directly into a table, stamping audit columns.
// Only the seeder uses this path; it can set columns (password_hash) that
// the public Insert allow-list refuses.
func (s *EntityStore) seedRow(table, idColumn string, rec domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	rec[domain.FieldCreatedAt] = now
	rec[domain.FieldUpdatedAt] = now
	if _, ok := rec[domain.FieldCreatedBy]; !ok {
		rec[domain.FieldCreatedBy] = "system"
	}
	if _, ok := rec[domain.FieldUpdatedBy]; !ok {
		rec[domain.FieldUpdatedBy] = "system"
	}
	rec[domain.FieldIsDeleted] = false
	s.table(table)[rec.GetString(idColumn)] = rec
}

// Seed loads a small, coherent development dataset: two departments, one
// member per role, a portfolio with two projects, and enough delivery data
// to exercise every surface. Every member's password is "welcome123".
func Seed(store *EntityStore) error {
	hash, err := utils.HashPassword("welcome123")
	if err != nil {
		return err
	}

	store.seedRow("departments", "department_id", domain.Record{
		"department_id": "dep-001",
		"name":          "Engineering",
		"description":   "Product engineering org",
		"head":          "Dana Whitfield",
	})
	store.seedRow("departments", "department_id", domain.Record{
		"department_id": "dep-002",
		"name":          "Operations",
		"description":   "Business operations org",
		"head":          "Marcus Oduya",
	})

	members := []domain.Record{
		{"user_id": "usr-001", "display_name": "Ava Admin", "email": "ava.admin@pmhub.dev", "role": "admin", "department_id": "dep-001"},
		{"user_id": "usr-002", "display_name": "Liam Lead", "email": "liam.lead@pmhub.dev", "role": "lead", "department_id": "dep-001"},
		{"user_id": "usr-003", "display_name": "Priya Manager", "email": "priya.pm@pmhub.dev", "role": "pm", "department_id": "dep-001"},
		{"user_id": "usr-004", "display_name": "Eli Engineer", "email": "eli.eng@pmhub.dev", "role": "engineer", "department_id": "dep-001"},
		{"user_id": "usr-005", "display_name": "Ana Analyst", "email": "ana.analyst@pmhub.dev", "role": "analyst", "department_id": "dep-002"},
		{"user_id": "usr-006", "display_name": "Vik Viewer", "email": "vik.viewer@pmhub.dev", "role": "viewer", "department_id": "dep-002"},
	}
	for _, m := range members {
		m["is_active"] = true
		m["capacity_pct"] = 100
		m["password_hash"] = hash
		store.seedRow("team_members", "user_id", m)
	}

	store.seedRow("portfolios", "portfolio_id", domain.Record{
		"portfolio_id":       "pfl-001",
		"name":               "Digital Platform",
		"owner":              "Dana Whitfield",
		"status":             "active",
		"health":             "green",
		"department_id":      "dep-001",
		"strategic_priority": "Modernize customer-facing systems",
	})

	store.seedRow("projects", "project_id", domain.Record{
		"project_id":      "prj-001",
		"name":            "Billing Revamp",
		"delivery_method": "agile",
		"status":          "active",
		"health":          "yellow",
		"start_date":      "2026-01-12",
		"target_date":     "2026-11-30",
		"owner":           "Priya Manager",
		"portfolio_id":    "pfl-001",
	})
	store.seedRow("projects", "project_id", domain.Record{
		"project_id":      "prj-002",
		"name":            "Data Warehouse Migration",
		"delivery_method": "hybrid",
		"status":          "planning",
		"health":          "green",
		"start_date":      "2026-03-02",
		"owner":           "Liam Lead",
		"portfolio_id":    "pfl-001",
	})

	store.seedRow("sprints", "sprint_id", domain.Record{
		"sprint_id":       "spr-001",
		"project_id":      "prj-001",
		"name":            "Sprint 14",
		"start_date":      "2026-08-24",
		"end_date":        "2026-09-06",
		"status":          "active",
		"capacity_points": 34,
		"goal":            "Invoice PDF generation end to end",
	})

	tasks := []domain.Record{
		{"task_id": "tsk-001", "project_id": "prj-001", "sprint_id": "spr-001", "title": "Design invoice template schema", "task_type": "story", "status": "done", "priority": "high", "assignee": "Eli Engineer", "story_points": 5},
		{"task_id": "tsk-002", "project_id": "prj-001", "sprint_id": "spr-001", "title": "Render PDF from template", "task_type": "story", "status": "in_progress", "priority": "high", "assignee": "Eli Engineer", "story_points": 8},
		{"task_id": "tsk-003", "project_id": "prj-001", "title": "Fix rounding on credit notes", "task_type": "bug", "status": "backlog", "priority": "critical"},
	}
	for _, t := range tasks {
		store.seedRow("tasks", "task_id", t)
	}

	store.seedRow("risks", "risk_id", domain.Record{
		"risk_id":          "rsk-001",
		"project_id":       "prj-001",
		"title":            "Legacy billing API instability",
		"category":         "technical",
		"probability":      4,
		"impact":           3,
		"risk_score":       12,
		"status":           "monitoring",
		"mitigation_plan":  "Add retry layer and shadow traffic before cutover",
		"identified_date":  "2026-06-15",
		"last_review_date": "2026-08-20",
		"owner":            "Liam Lead",
	})

	store.seedRow("project_charters", "charter_id", domain.Record{
		"charter_id":      "chr-001",
		"project_name":    "Billing Revamp",
		"business_case":   "Billing errors cost four support heads per quarter.",
		"objectives":      "Replace invoice generation; cut defect rate by 80%.",
		"scope_in":        "Invoice generation, credit notes, tax rules.",
		"scope_out":       "Payment processing.",
		"delivery_method": "agile",
		"status":          "submitted",
	})

	return nil
}

// NewRepositoryProvider wires the memory-backed repositories, optionally
// seeded with the development dataset.
func NewRepositoryProvider(seed bool) (Provider, error) {
	store := NewEntityStore()
	if seed {
		if err := Seed(store); err != nil {
			return Provider{}, err
		}
	}
	return Provider{
		Store:          store,
		AuditRepo:      NewAuditRepository(),
		TransitionRepo: NewTransitionRepository(),
		TeamMemberRepo: NewTeamMemberRepository(store),
	}, nil
}

// Provider groups the memory repositories so callers can reach the
// concrete store when they need it.
type Provider struct {
	Store          *EntityStore
	AuditRepo      *AuditRepository
	TransitionRepo *TransitionRepository
	TeamMemberRepo *TeamMemberRepository
}

// Repos adapts the provider to the ports shape the service container takes.
func (p Provider) Repos() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		EntityStore:    p.Store,
		AuditRepo:      p.AuditRepo,
		TransitionRepo: p.TransitionRepo,
		TeamMemberRepo: p.TeamMemberRepo,
	}
}