package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
	"github.com/pm-hub/pmhub_backend/internal/schema"
)

// PgxEntityStore persists schema-driven records. All SQL is built from the
// schema registry's table, id column and column allow-lists; nothing
// client-supplied ever reaches an identifier position.
type PgxEntityStore struct {
	db *pgxpool.Pool
}

func newPgxEntityStore(db *pgxpool.Pool) portsrepo.EntityStoreFacade {
	return &PgxEntityStore{db: db}
}

var _ portsrepo.EntityStoreFacade = (*PgxEntityStore)(nil)

func guardIdentifiers(sc *schema.Schema) error {
	if !schema.TableAllowed(sc.Table) {
		return fmt.Errorf("table %q not allowed: %w", sc.Table, apperrors.ErrPolicyViolation)
	}
	if !schema.IDColumnAllowed(sc.IDColumn) {
		return fmt.Errorf("id column %q not allowed: %w", sc.IDColumn, apperrors.ErrPolicyViolation)
	}
	return nil
}

// insertable reports whether a column may appear in an INSERT for sc.
func insertable(sc *schema.Schema, column string) bool {
	switch column {
	case sc.IDColumn, domain.FieldCreatedBy, domain.FieldUpdatedBy:
		return true
	}
	return sc.HasField(column) || sc.ColumnMutable(column)
}

// normalizeValue maps the driver types pgx hands back for SMALLINT, REAL
// and NUMERIC columns onto the Go types the rest of the application works
// with, so a record read from the database revalidates the same way a
// freshly cleaned form does.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case int16:
		return int(t)
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return float64(t)
	case pgtype.Numeric:
		if !t.Valid || t.NaN || t.InfinityModifier != pgtype.Finite {
			return nil
		}
		return decimal.NewFromBigInt(t.Int, t.Exp)
	default:
		return v
	}
}

// rowsToRecords maps every returned row to a Record keyed by column name.
func rowsToRecords(rows pgx.Rows) ([]domain.Record, error) {
	defer rows.Close()
	fields := rows.FieldDescriptions()
	out := []domain.Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		rec := make(domain.Record, len(fields))
		for i, fd := range fields {
			rec[string(fd.Name)] = normalizeValue(values[i])
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating rows: %w", rows.Err())
	}
	return out, nil
}

func oneRecord(rows pgx.Rows, err error) (domain.Record, error) {
	if err != nil {
		return nil, err
	}
	recs, err := rowsToRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return recs[0], nil
}

func (r *PgxEntityStore) Find(ctx context.Context, sc *schema.Schema, id string) (domain.Record, error) {
	if err := guardIdentifiers(sc); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT * FROM %s WHERE %s = $1 AND is_deleted = FALSE;`,
		sc.Table, sc.IDColumn,
	)
	rows, err := r.db.Query(ctx, query, id)
	rec, err := oneRecord(rows, err)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s %s: %w", sc.Type, id, err)
	}
	return rec, nil
}

func (r *PgxEntityStore) List(ctx context.Context, sc *schema.Schema, filter portsrepo.ListFilter) ([]domain.Record, error) {
	if err := guardIdentifiers(sc); err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var sb strings.Builder
	args := []any{}
	fmt.Fprintf(&sb, `SELECT * FROM %s WHERE 1 = 1`, sc.Table)
	if !filter.IncludeDeleted {
		sb.WriteString(` AND is_deleted = FALSE`)
	}
	if filter.Department != "" && sc.DepartmentColumn != "" {
		args = append(args, filter.Department)
		fmt.Fprintf(&sb, ` AND %s = $%d`, sc.DepartmentColumn, len(args))
	}
	if filter.Status != "" && sc.StatusField != "" {
		args = append(args, filter.Status)
		fmt.Fprintf(&sb, ` AND %s = $%d`, sc.StatusField, len(args))
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, ` ORDER BY created_at DESC LIMIT $%d`, len(args))
	args = append(args, offset)
	fmt.Fprintf(&sb, ` OFFSET $%d;`, len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", sc.Type, err)
	}
	return rowsToRecords(rows)
}

func (r *PgxEntityStore) Insert(ctx context.Context, sc *schema.Schema, rec domain.Record) (domain.Record, error) {
	if err := guardIdentifiers(sc); err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(rec)+2)
	for col := range rec {
		if !insertable(sc, col) {
			return nil, fmt.Errorf("column %q not allowed for %s: %w", col, sc.Type, apperrors.ErrPolicyViolation)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	args := make([]any, 0, len(columns))
	placeholders := make([]string, 0, len(columns)+2)
	for _, col := range columns {
		args = append(args, rec[col])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	columns = append(columns, domain.FieldCreatedAt, domain.FieldUpdatedAt)
	placeholders = append(placeholders, "clock_timestamp()", "clock_timestamp()")

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING *;`,
		sc.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)
	rows, err := r.db.Query(ctx, query, args...)
	stored, err := oneRecord(rows, err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", sc.Type, err)
	}
	return stored, nil
}

func (r *PgxEntityStore) Update(ctx context.Context, sc *schema.Schema, id string, updates map[string]any, expectedVersion *string, updatedBy string) (domain.Record, error) {
	if err := guardIdentifiers(sc); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("empty update for %s: %w", sc.Type, apperrors.ErrPolicyViolation)
	}

	columns := make([]string, 0, len(updates))
	for col := range updates {
		if col == sc.IDColumn || !sc.ColumnMutable(col) {
			return nil, fmt.Errorf("column %q not updatable for %s: %w", col, sc.Type, apperrors.ErrPolicyViolation)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var sb strings.Builder
	args := []any{}
	fmt.Fprintf(&sb, `UPDATE %s SET `, sc.Table)
	for _, col := range columns {
		args = append(args, updates[col])
		fmt.Fprintf(&sb, `%s = $%d, `, col, len(args))
	}
	args = append(args, updatedBy)
	fmt.Fprintf(&sb, `%s = clock_timestamp(), %s = $%d`, domain.FieldUpdatedAt, domain.FieldUpdatedBy, len(args))

	args = append(args, id)
	fmt.Fprintf(&sb, ` WHERE %s = $%d AND is_deleted = FALSE`, sc.IDColumn, len(args))
	if expectedVersion != nil {
		expected, err := time.Parse(domain.VersionLayout, *expectedVersion)
		if err != nil {
			// A token we cannot parse can never match the stored version.
			return nil, fmt.Errorf("unparseable version token %q: %w", *expectedVersion, apperrors.ErrConflict)
		}
		args = append(args, expected)
		fmt.Fprintf(&sb, ` AND %s = $%d`, domain.FieldUpdatedAt, len(args))
	}
	sb.WriteString(` RETURNING *;`)

	rows, err := r.db.Query(ctx, sb.String(), args...)
	stored, err := oneRecord(rows, err)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to update %s %s: %w", sc.Type, id, err)
	}

	// Zero rows: either the record is gone or the version was stale.
	var exists bool
	checkQuery := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND is_deleted = FALSE);`,
		sc.Table, sc.IDColumn,
	)
	if checkErr := r.db.QueryRow(ctx, checkQuery, id).Scan(&exists); checkErr != nil {
		return nil, fmt.Errorf("failed to check %s %s after update miss: %w", sc.Type, id, checkErr)
	}
	if exists {
		return nil, apperrors.ErrConflict
	}
	return nil, apperrors.ErrNotFound
}

func (r *PgxEntityStore) SoftDelete(ctx context.Context, sc *schema.Schema, id string, deletedBy string) (bool, error) {
	if err := guardIdentifiers(sc); err != nil {
		return false, err
	}
	query := fmt.Sprintf(
		`UPDATE %s
         SET is_deleted = TRUE, deleted_at = clock_timestamp(), deleted_by = $1,
             updated_at = clock_timestamp(), updated_by = $1
         WHERE %s = $2 AND is_deleted = FALSE;`,
		sc.Table, sc.IDColumn,
	)
	cmdTag, err := r.db.Exec(ctx, query, deletedBy, id)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete %s %s: %w", sc.Type, id, err)
	}
	// Zero rows means already deleted or never existed; both are no-ops.
	return cmdTag.RowsAffected() > 0, nil
}
