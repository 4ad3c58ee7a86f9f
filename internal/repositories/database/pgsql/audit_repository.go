package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
)

// PgxAuditRepository persists the append-only audit trail. There are no
// update or delete paths on purpose.
type PgxAuditRepository struct {
	db *pgxpool.Pool
}

func newPgxAuditRepository(db *pgxpool.Pool) portsrepo.AuditRepositoryFacade {
	return &PgxAuditRepository{db: db}
}

var _ portsrepo.AuditRepositoryFacade = (*PgxAuditRepository)(nil)

func (r *PgxAuditRepository) SaveAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	query := `
        INSERT INTO audit_log (audit_id, user_email, action, entity_type, entity_id,
                               field_changed, old_value, new_value, details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
    `
	_, err := r.db.Exec(ctx, query,
		entry.AuditID,
		entry.UserEmail,
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		entry.FieldChanged,
		entry.OldValue,
		entry.NewValue,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	return nil
}

func scanAuditRows(rows pgx.Rows) ([]domain.AuditEntry, error) {
	defer rows.Close()
	entries := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		var action string
		err := rows.Scan(
			&e.AuditID,
			&e.UserEmail,
			&action,
			&e.EntityType,
			&e.EntityID,
			&e.FieldChanged,
			&e.OldValue,
			&e.NewValue,
			&e.Details,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.Action = domain.AuditAction(action)
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", rows.Err())
	}
	return entries, nil
}

const auditColumns = `audit_id, user_email, action, entity_type, entity_id,
       field_changed, old_value, new_value, details, created_at`

func (r *PgxAuditRepository) FindAuditByEntity(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditEntry, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM audit_log
        WHERE entity_type = $1 AND entity_id = $2
        ORDER BY created_at DESC
        LIMIT $3;`, auditColumns)
	rows, err := r.db.Query(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit by entity: %w", err)
	}
	return scanAuditRows(rows)
}

func (r *PgxAuditRepository) FindAuditByUser(ctx context.Context, userEmail string, limit int) ([]domain.AuditEntry, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM audit_log
        WHERE user_email = $1
        ORDER BY created_at DESC
        LIMIT $2;`, auditColumns)
	rows, err := r.db.Query(ctx, query, userEmail, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit by user: %w", err)
	}
	return scanAuditRows(rows)
}

func (r *PgxAuditRepository) FindRecentAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM audit_log
        ORDER BY created_at DESC
        LIMIT $1;`, auditColumns)
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent audit: %w", err)
	}
	return scanAuditRows(rows)
}
