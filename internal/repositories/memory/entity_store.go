// Package memory provides map-backed repositories guarded by RWMutexes.
// They serve local development and tests; semantics mirror the Postgres
// adapters, including optimistic locking and idempotent soft deletes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
	"github.com/pm-hub/pmhub_backend/internal/schema"
)

// EntityStore keeps records per table. Version tokens come from updated_at,
// which is forced to strictly advance on every write so two writes can
// never share a token.
type EntityStore struct {
	mu        sync.RWMutex
	tables    map[string]map[string]domain.Record
	lastStamp time.Time
	now       func() time.Time
}

// NewEntityStore creates an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		tables: make(map[string]map[string]domain.Record),
		now:    time.Now,
	}
}

var _ portsrepo.EntityStoreFacade = (*EntityStore)(nil)

// stamp returns a timestamp strictly later than any previously issued one.
// Callers must hold the write lock.
func (s *EntityStore) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = t
	return t
}

func (s *EntityStore) table(name string) map[string]domain.Record {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[string]domain.Record)
		s.tables[name] = t
	}
	return t
}

func guardIdentifiers(sc *schema.Schema) error {
	if !schema.TableAllowed(sc.Table) {
		return fmt.Errorf("table %q not allowed: %w", sc.Table, apperrors.ErrPolicyViolation)
	}
	if !schema.IDColumnAllowed(sc.IDColumn) {
		return fmt.Errorf("id column %q not allowed: %w", sc.IDColumn, apperrors.ErrPolicyViolation)
	}
	return nil
}

func insertable(sc *schema.Schema, column string) bool {
	switch column {
	case sc.IDColumn, domain.FieldCreatedBy, domain.FieldUpdatedBy:
		return true
	}
	return sc.HasField(column) || sc.ColumnMutable(column)
}

func (s *EntityStore) Find(ctx context.Context, sc *schema.Schema, id string) (domain.Record, error) {
	if err := guardIdentifiers(sc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.table(sc.Table)[id]
	if !ok || rec.IsDeleted() {
		return nil, apperrors.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *EntityStore) List(ctx context.Context, sc *schema.Schema, filter portsrepo.ListFilter) ([]domain.Record, error) {
	if err := guardIdentifiers(sc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Record{}
	for _, rec := range s.table(sc.Table) {
		if rec.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.Department != "" && sc.DepartmentColumn != "" &&
			rec.GetString(sc.DepartmentColumn) != filter.Department {
			continue
		}
		if filter.Status != "" && sc.StatusField != "" &&
			rec.GetString(sc.StatusField) != filter.Status {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		ti := out[i].GetTime(domain.FieldCreatedAt)
		tj := out[j].GetTime(domain.FieldCreatedAt)
		if ti.Equal(tj) {
			return out[i].GetString(sc.IDColumn) > out[j].GetString(sc.IDColumn)
		}
		return ti.After(tj)
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []domain.Record{}, nil
	}
	out = out[offset:]
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *EntityStore) Insert(ctx context.Context, sc *schema.Schema, rec domain.Record) (domain.Record, error) {
	if err := guardIdentifiers(sc); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(domain.Record, len(rec)+4)
	for col, v := range rec {
		if !insertable(sc, col) {
			return nil, fmt.Errorf("column %q not allowed for %s: %w", col, sc.Type, apperrors.ErrPolicyViolation)
		}
		stored[col] = v
	}
	id := stored.GetString(sc.IDColumn)
	if id == "" {
		return nil, fmt.Errorf("missing %s: %w", sc.IDColumn, apperrors.ErrPolicyViolation)
	}
	if existing, ok := s.table(sc.Table)[id]; ok && !existing.IsDeleted() {
		return nil, fmt.Errorf("%s %s already exists: %w", sc.Type, id, apperrors.ErrDuplicate)
	}

	now := s.stamp()
	stored[domain.FieldCreatedAt] = now
	stored[domain.FieldUpdatedAt] = now
	stored[domain.FieldIsDeleted] = false
	s.table(sc.Table)[id] = stored

	return stored.Clone(), nil
}

func (s *EntityStore) Update(ctx context.Context, sc *schema.Schema, id string, updates map[string]any, expectedVersion *string, updatedBy string) (domain.Record, error) {
	if err := guardIdentifiers(sc); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("empty update for %s: %w", sc.Type, apperrors.ErrPolicyViolation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.table(sc.Table)[id]
	if !ok || rec.IsDeleted() {
		return nil, apperrors.ErrNotFound
	}
	if expectedVersion != nil && rec.Version() != *expectedVersion {
		return nil, apperrors.ErrConflict
	}

	next := rec.Clone()
	for col, v := range updates {
		if col == sc.IDColumn || !sc.ColumnMutable(col) {
			return nil, fmt.Errorf("column %q not updatable for %s: %w", col, sc.Type, apperrors.ErrPolicyViolation)
		}
		next[col] = v
	}
	next[domain.FieldUpdatedAt] = s.stamp()
	next[domain.FieldUpdatedBy] = updatedBy
	s.table(sc.Table)[id] = next

	return next.Clone(), nil
}

func (s *EntityStore) SoftDelete(ctx context.Context, sc *schema.Schema, id string, deletedBy string) (bool, error) {
	if err := guardIdentifiers(sc); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.table(sc.Table)[id]
	if !ok || rec.IsDeleted() {
		return false, nil
	}
	next := rec.Clone()
	now := s.stamp()
	next[domain.FieldIsDeleted] = true
	next[domain.FieldDeletedAt] = now
	next[domain.FieldDeletedBy] = deletedBy
	next[domain.FieldUpdatedAt] = now
	next[domain.FieldUpdatedBy] = deletedBy
	s.table(sc.Table)[id] = next
	return true, nil
}
