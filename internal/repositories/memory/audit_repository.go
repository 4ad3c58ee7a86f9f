package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
)

// AuditRepository keeps the audit trail in memory, append-only.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewAuditRepository creates an empty audit repository.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

var _ portsrepo.AuditRepositoryFacade = (*AuditRepository)(nil)

func (r *AuditRepository) SaveAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *AuditRepository) collect(limit int, match func(domain.AuditEntry) bool) []domain.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.AuditEntry{}
	for _, e := range r.entries {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (r *AuditRepository) FindAuditByEntity(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditEntry, error) {
	return r.collect(limit, func(e domain.AuditEntry) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	}), nil
}

func (r *AuditRepository) FindAuditByUser(ctx context.Context, userEmail string, limit int) ([]domain.AuditEntry, error) {
	return r.collect(limit, func(e domain.AuditEntry) bool {
		return e.UserEmail == userEmail
	}), nil
}

func (r *AuditRepository) FindRecentAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return r.collect(limit, func(domain.AuditEntry) bool { return true }), nil
}

// TransitionRepository keeps task status transitions in memory.
type TransitionRepository struct {
	mu          sync.RWMutex
	transitions []domain.StatusTransition
}

// NewTransitionRepository creates an empty transition repository.
func NewTransitionRepository() *TransitionRepository {
	return &TransitionRepository{}
}

var _ portsrepo.TransitionRepositoryFacade = (*TransitionRepository)(nil)

func (r *TransitionRepository) SaveStatusTransition(ctx context.Context, tr domain.StatusTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
	return nil
}

func (r *TransitionRepository) FindTransitionsByTask(ctx context.Context, taskID string) ([]domain.StatusTransition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.StatusTransition{}
	for _, tr := range r.transitions {
		if tr.TaskID == taskID {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransitionedAt.Before(out[j].TransitionedAt)
	})
	return out, nil
}
