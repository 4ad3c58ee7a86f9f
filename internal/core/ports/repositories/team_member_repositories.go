package repositories

import (
	"context"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
)

// TeamMemberReader defines the credential lookups the auth flow needs.
// Everything else about team members goes through the generic entity store.
type TeamMemberReader interface {
	// FindTeamMemberByEmail retrieves an active member by email, including
	// the password hash. Inactive or deleted members yield
	// apperrors.ErrNotFound.
	FindTeamMemberByEmail(ctx context.Context, email string) (*domain.TeamMember, error)

	// FindTeamMemberByID retrieves an active member by user id.
	FindTeamMemberByID(ctx context.Context, userID string) (*domain.TeamMember, error)
}
