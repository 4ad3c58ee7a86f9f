package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
)

// NewRepositoryProvider wires the Postgres-backed repositories.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		EntityStore:    newPgxEntityStore(dbPool),
		AuditRepo:      newPgxAuditRepository(dbPool),
		TransitionRepo: newPgxTransitionRepository(dbPool),
		TeamMemberRepo: newPgxTeamMemberRepository(dbPool),
	}
}
