package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
)

// PgxTransitionRepository persists task status transitions.
type PgxTransitionRepository struct {
	db *pgxpool.Pool
}

func newPgxTransitionRepository(db *pgxpool.Pool) portsrepo.TransitionRepositoryFacade {
	return &PgxTransitionRepository{db: db}
}

var _ portsrepo.TransitionRepositoryFacade = (*PgxTransitionRepository)(nil)

func (r *PgxTransitionRepository) SaveStatusTransition(ctx context.Context, tr domain.StatusTransition) error {
	query := `
        INSERT INTO status_transitions (transition_id, task_id, from_status, to_status, changed_by, transitioned_at)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	_, err := r.db.Exec(ctx, query,
		tr.TransitionID,
		tr.TaskID,
		tr.FromStatus,
		tr.ToStatus,
		tr.ChangedBy,
		tr.TransitionedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save status transition: %w", err)
	}
	return nil
}

func (r *PgxTransitionRepository) FindTransitionsByTask(ctx context.Context, taskID string) ([]domain.StatusTransition, error) {
	query := `
        SELECT transition_id, task_id, from_status, to_status, changed_by, transitioned_at
        FROM status_transitions
        WHERE task_id = $1
        ORDER BY transitioned_at ASC;
    `
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions for task %s: %w", taskID, err)
	}
	defer rows.Close()

	transitions := []domain.StatusTransition{}
	for rows.Next() {
		var tr domain.StatusTransition
		err := rows.Scan(
			&tr.TransitionID,
			&tr.TaskID,
			&tr.FromStatus,
			&tr.ToStatus,
			&tr.ChangedBy,
			&tr.TransitionedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition row: %w", err)
		}
		transitions = append(transitions, tr)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating transition rows: %w", rows.Err())
	}
	return transitions, nil
}
