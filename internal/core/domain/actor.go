package domain

// Role is a team member's organisation-wide role. Roles map to numeric
// permission levels in the rbac package.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleLead     Role = "lead"
	RolePM       Role = "pm"
	RoleEngineer Role = "engineer"
	RoleAnalyst  Role = "analyst"
	RoleViewer   Role = "viewer"
)

// Actor identifies the caller of a service operation. Populated by the auth
// middleware from JWT claims, or constructed directly in tests.
type Actor struct {
	UserID       string `json:"userID"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"departmentID"`
}

// TeamMember is the typed view of a team_members row, used by the auth
// service. Everything else reads team members through the generic Record
// path.
type TeamMember struct {
	UserID       string `json:"userID"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"departmentID"`
	IsActive     bool   `json:"isActive"`
	PasswordHash string `json:"-"`
}

// Actor derives the request actor for a team member.
func (m TeamMember) Actor() Actor {
	return Actor{
		UserID:       m.UserID,
		Email:        m.Email,
		Role:         m.Role,
		DepartmentID: m.DepartmentID,
	}
}
