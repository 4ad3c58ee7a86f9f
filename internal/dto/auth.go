package dto

import (
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
)

// LoginRequest carries the credentials for a login attempt.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response for a successful login.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the public shape of a team member.
type UserResponse struct {
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	DepartmentID string `json:"department_id,omitempty"`
}

// ToUserResponse converts a domain team member to its response DTO.
func ToUserResponse(m *domain.TeamMember) UserResponse {
	return UserResponse{
		UserID:       m.UserID,
		DisplayName:  m.DisplayName,
		Email:        m.Email,
		Role:         string(m.Role),
		DepartmentID: m.DepartmentID,
	}
}
