package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
)

// PgxTeamMemberRepository serves the credential lookups the auth flow
// needs. All other team member access goes through the entity store.
type PgxTeamMemberRepository struct {
	db *pgxpool.Pool
}

func newPgxTeamMemberRepository(db *pgxpool.Pool) portsrepo.TeamMemberReader {
	return &PgxTeamMemberRepository{db: db}
}

var _ portsrepo.TeamMemberReader = (*PgxTeamMemberRepository)(nil)

const teamMemberColumns = `user_id, display_name, email, role, department_id, is_active, password_hash`

func (r *PgxTeamMemberRepository) scanMember(row pgx.Row) (*domain.TeamMember, error) {
	var m domain.TeamMember
	var role string
	var departmentID *string
	err := row.Scan(
		&m.UserID,
		&m.DisplayName,
		&m.Email,
		&role,
		&departmentID,
		&m.IsActive,
		&m.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan team member: %w", err)
	}
	m.Role = domain.Role(role)
	if departmentID != nil {
		m.DepartmentID = *departmentID
	}
	return &m, nil
}

func (r *PgxTeamMemberRepository) FindTeamMemberByEmail(ctx context.Context, email string) (*domain.TeamMember, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM team_members
        WHERE email = $1 AND is_active = TRUE AND is_deleted = FALSE;`, teamMemberColumns)
	return r.scanMember(r.db.QueryRow(ctx, query, email))
}

func (r *PgxTeamMemberRepository) FindTeamMemberByID(ctx context.Context, userID string) (*domain.TeamMember, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM team_members
        WHERE user_id = $1 AND is_active = TRUE AND is_deleted = FALSE;`, teamMemberColumns)
	return r.scanMember(r.db.QueryRow(ctx, query, userID))
}
