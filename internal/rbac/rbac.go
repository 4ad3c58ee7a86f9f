// Package rbac decides whether an actor may perform an operation on an
// entity type. Decisions are values, never errors: a denial carries the
// reason so handlers can surface it verbatim.
package rbac

import (
	"fmt"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	"github.com/pm-hub/pmhub_backend/internal/schema"
)

// Operation is the coarse action class a permission check is made for.
type Operation string

const (
	OpRead    Operation = "read"
	OpComment Operation = "comment"
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpApprove Operation = "approve"
	OpAdmin   Operation = "admin"
)

var roleLevels = map[domain.Role]int{
	domain.RoleAdmin:    100,
	domain.RoleLead:     80,
	domain.RolePM:       80,
	domain.RoleEngineer: 50,
	domain.RoleAnalyst:  50,
	domain.RoleViewer:   20,
}

var operationLevels = map[Operation]int{
	OpRead:    20,
	OpComment: 50,
	OpCreate:  50,
	OpUpdate:  50,
	OpDelete:  80,
	OpApprove: 80,
	OpAdmin:   100,
}

// RoleLevel returns the numeric level for a role, 0 for unknown roles.
func RoleLevel(role domain.Role) int {
	return roleLevels[role]
}

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Check decides whether actor may perform op on entities of type sc.
// Admins bypass every restriction. Engineers and analysts can mutate only
// delivery-level entities (tasks, comments, time entries, retro items);
// everything else requires lead level for mutation.
func Check(actor domain.Actor, op Operation, sc *schema.Schema) Decision {
	level, known := roleLevels[actor.Role]
	if !known {
		return deny("unknown role '%s'", actor.Role)
	}
	if actor.Role == domain.RoleAdmin {
		return allow()
	}
	required, ok := operationLevels[op]
	if !ok {
		return deny("unknown operation '%s'", op)
	}
	if level < required {
		return deny("role '%s' may not %s %s records", actor.Role, op, sc.Label)
	}
	if isMutation(op) && level < roleLevels[domain.RoleLead] && !sc.EngineerMutable {
		return deny("role '%s' may not %s %s records", actor.Role, op, sc.Label)
	}
	return allow()
}

func isMutation(op Operation) bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete, OpApprove:
		return true
	}
	return false
}

// DepartmentFilter returns the department an actor's reads should be scoped
// to, or "" for unrestricted access. Only admins see across departments;
// actors without a department also see everything, since there is nothing
// to scope them to.
func DepartmentFilter(actor domain.Actor) string {
	if actor.Role == domain.RoleAdmin {
		return ""
	}
	return actor.DepartmentID
}

// CanAccessDepartment reports whether actor may read records belonging to
// departmentID. Records without a department are visible to everyone.
func CanAccessDepartment(actor domain.Actor, departmentID string) bool {
	filter := DepartmentFilter(actor)
	return filter == "" || departmentID == "" || filter == departmentID
}
