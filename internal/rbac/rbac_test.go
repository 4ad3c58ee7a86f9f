package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	"github.com/pm-hub/pmhub_backend/internal/rbac"
	"github.com/pm-hub/pmhub_backend/internal/schema"
)

func mustSchema(t *testing.T, entityType string) *schema.Schema {
	t.Helper()
	sc, err := schema.Get(entityType)
	require.NoError(t, err)
	return sc
}

func TestCheck_AdminBypassesEverything(t *testing.T) {
	admin := domain.Actor{UserID: "usr-001", Role: domain.RoleAdmin}
	for _, entityType := range schema.Types() {
		sc := mustSchema(t, entityType)
		for _, op := range []rbac.Operation{
			rbac.OpRead, rbac.OpCreate, rbac.OpUpdate, rbac.OpDelete, rbac.OpApprove, rbac.OpAdmin,
		} {
			d := rbac.Check(admin, op, sc)
			assert.True(t, d.Allowed, "admin %s on %s", op, entityType)
		}
	}
}

func TestCheck_ViewerIsReadOnly(t *testing.T) {
	viewer := domain.Actor{UserID: "usr-002", Role: domain.RoleViewer}
	sc := mustSchema(t, "task")

	assert.True(t, rbac.Check(viewer, rbac.OpRead, sc).Allowed)

	for _, op := range []rbac.Operation{rbac.OpCreate, rbac.OpUpdate, rbac.OpDelete, rbac.OpApprove} {
		d := rbac.Check(viewer, op, sc)
		assert.False(t, d.Allowed, "viewer %s", op)
		assert.NotEmpty(t, d.Reason)
	}
}

func TestCheck_EngineerDeliveryEntities(t *testing.T) {
	engineer := domain.Actor{UserID: "usr-003", Role: domain.RoleEngineer}

	for _, entityType := range []string{"task", "comment", "time_entry", "retro_item"} {
		sc := mustSchema(t, entityType)
		assert.True(t, rbac.Check(engineer, rbac.OpCreate, sc).Allowed, "create %s", entityType)
		assert.True(t, rbac.Check(engineer, rbac.OpUpdate, sc).Allowed, "update %s", entityType)
	}

	for _, entityType := range []string{"portfolio", "project", "charter", "risk", "team_member"} {
		sc := mustSchema(t, entityType)
		d := rbac.Check(engineer, rbac.OpUpdate, sc)
		assert.False(t, d.Allowed, "update %s", entityType)
	}

	// Delete requires lead level even on delivery entities.
	assert.False(t, rbac.Check(engineer, rbac.OpDelete, mustSchema(t, "task")).Allowed)
}

func TestCheck_PermissionMonotonicity(t *testing.T) {
	// Anything a lower role may do, every higher role may also do.
	ordered := []domain.Actor{
		{UserID: "v", Role: domain.RoleViewer},
		{UserID: "e", Role: domain.RoleEngineer},
		{UserID: "p", Role: domain.RolePM},
		{UserID: "a", Role: domain.RoleAdmin},
	}
	ops := []rbac.Operation{
		rbac.OpRead, rbac.OpComment, rbac.OpCreate, rbac.OpUpdate,
		rbac.OpDelete, rbac.OpApprove, rbac.OpAdmin,
	}
	for _, entityType := range schema.Types() {
		sc := mustSchema(t, entityType)
		for _, op := range ops {
			for i := 0; i < len(ordered)-1; i++ {
				lower := rbac.Check(ordered[i], op, sc)
				higher := rbac.Check(ordered[i+1], op, sc)
				if lower.Allowed {
					assert.True(t, higher.Allowed,
						"%s allowed for %s but not %s on %s",
						op, ordered[i].Role, ordered[i+1].Role, entityType)
				}
			}
		}
	}
}

func TestCheck_UnknownRoleDenied(t *testing.T) {
	d := rbac.Check(domain.Actor{UserID: "x", Role: "superuser"}, rbac.OpRead, mustSchema(t, "task"))
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "unknown role")
}

func TestDepartmentFilter(t *testing.T) {
	assert.Empty(t, rbac.DepartmentFilter(domain.Actor{Role: domain.RoleAdmin, DepartmentID: "dep-001"}))
	assert.Equal(t, "dep-001", rbac.DepartmentFilter(domain.Actor{Role: domain.RolePM, DepartmentID: "dep-001"}))
	assert.Empty(t, rbac.DepartmentFilter(domain.Actor{Role: domain.RoleViewer}))
}

func TestCanAccessDepartment(t *testing.T) {
	pm := domain.Actor{Role: domain.RolePM, DepartmentID: "dep-001"}
	assert.True(t, rbac.CanAccessDepartment(pm, "dep-001"))
	assert.True(t, rbac.CanAccessDepartment(pm, ""))
	assert.False(t, rbac.CanAccessDepartment(pm, "dep-002"))

	admin := domain.Actor{Role: domain.RoleAdmin}
	assert.True(t, rbac.CanAccessDepartment(admin, "dep-002"))
}
