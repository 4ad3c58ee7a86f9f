package services

import (
	"context"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
)

// AuthSvc authenticates team members and issues access tokens.
type AuthSvc interface {
	// AuthenticateUser verifies credentials and returns the member.
	// Bad credentials yield apperrors.ErrForbidden without detail about
	// which part was wrong.
	AuthenticateUser(ctx context.Context, email, password string) (*domain.TeamMember, error)

	// GenerateToken issues a signed JWT carrying the member's id, role
	// and department.
	GenerateToken(ctx context.Context, member *domain.TeamMember) (string, error)

	// ValidateToken parses a token and rebuilds the acting identity.
	ValidateToken(ctx context.Context, token string) (*domain.Actor, error)
}
