package memory

import (
	"context"
	"strings"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
)

const teamMemberTable = "team_members"

// TeamMemberRepository reads credentials out of the entity store's
// team_members table.
type TeamMemberRepository struct {
	store *EntityStore
}

// NewTeamMemberRepository creates a reader over the given store.
func NewTeamMemberRepository(store *EntityStore) *TeamMemberRepository {
	return &TeamMemberRepository{store: store}
}

var _ portsrepo.TeamMemberReader = (*TeamMemberRepository)(nil)

func toTeamMember(rec domain.Record) *domain.TeamMember {
	active, _ := rec["is_active"].(bool)
	return &domain.TeamMember{
		UserID:       rec.GetString("user_id"),
		DisplayName:  rec.GetString("display_name"),
		Email:        rec.GetString("email"),
		Role:         domain.Role(rec.GetString("role")),
		DepartmentID: rec.GetString("department_id"),
		IsActive:     active,
		PasswordHash: rec.GetString("password_hash"),
	}
}

func (r *TeamMemberRepository) find(match func(domain.Record) bool) (*domain.TeamMember, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, rec := range r.store.table(teamMemberTable) {
		if rec.IsDeleted() {
			continue
		}
		if active, _ := rec["is_active"].(bool); !active {
			continue
		}
		if match(rec) {
			return toTeamMember(rec), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *TeamMemberRepository) FindTeamMemberByEmail(ctx context.Context, email string) (*domain.TeamMember, error) {
	want := strings.ToLower(email)
	return r.find(func(rec domain.Record) bool {
		return strings.ToLower(rec.GetString("email")) == want
	})
}

func (r *TeamMemberRepository) FindTeamMemberByID(ctx context.Context, userID string) (*domain.TeamMember, error) {
	return r.find(func(rec domain.Record) bool {
		return rec.GetString("user_id") == userID
	})
}
