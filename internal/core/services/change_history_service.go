package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/shopspring/decimal"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
	portssvc "github.com/pm-hub/pmhub_backend/internal/core/ports/services"
	"github.com/pm-hub/pmhub_backend/internal/metrics"
	"github.com/pm-hub/pmhub_backend/internal/rbac"
	"github.com/pm-hub/pmhub_backend/internal/schema"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	// Values longer than this get a compact diff in Details instead of
	// full old/new copies in the audit row.
	longValueThreshold = 200
)

// changeHistoryServiceImpl records what changed and serves the audit feed.
type changeHistoryServiceImpl struct {
	BaseService
	auditRepo      portsrepo.AuditRepositoryFacade
	transitionRepo portsrepo.TransitionRepositoryFacade
	now            func() time.Time
	differ         *diffmatchpatch.DiffMatchPatch
}

// NewChangeHistoryService creates the audit recording and feed service.
func NewChangeHistoryService(auditRepo portsrepo.AuditRepositoryFacade, transitionRepo portsrepo.TransitionRepositoryFacade) *changeHistoryServiceImpl {
	return &changeHistoryServiceImpl{
		auditRepo:      auditRepo,
		transitionRepo: transitionRepo,
		now:            time.Now,
		differ:         diffmatchpatch.New(),
	}
}

var (
	_ portssvc.ChangeHistorySvc = (*changeHistoryServiceImpl)(nil)
	_ historyRecorder           = (*changeHistoryServiceImpl)(nil)
)

// canonicalValue renders a stored value the way it is compared and shown in
// the audit feed. Equal canonical strings mean "unchanged".
func canonicalValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.UTC().Format(time.RFC3339)
	case decimal.Decimal:
		return t.StringFixed(2)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// auditSkipFields never produce their own audit rows.
var auditSkipFields = map[string]struct{}{
	domain.FieldCreatedAt: {},
	domain.FieldCreatedBy: {},
	domain.FieldUpdatedAt: {},
	domain.FieldUpdatedBy: {},
	domain.FieldIsDeleted: {},
	domain.FieldDeletedAt: {},
	domain.FieldDeletedBy: {},
}

func (s *changeHistoryServiceImpl) append(ctx context.Context, entry domain.AuditEntry) {
	if entry.AuditID == "" {
		entry.AuditID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.auditRepo.SaveAuditEntry(ctx, entry); err != nil {
		s.LogError(ctx, err, "Failed to append audit entry",
			slog.String("entity_type", entry.EntityType),
			slog.String("entity_id", entry.EntityID),
			slog.String("action", string(entry.Action)))
		return
	}
	metrics.ObserveAuditEntry()
}

func (s *changeHistoryServiceImpl) TrackCreate(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record) {
	s.append(ctx, domain.AuditEntry{
		UserEmail:  actorIdentity(actor),
		Action:     domain.AuditCreate,
		EntityType: sc.Type,
		EntityID:   rec.GetString(sc.IDColumn),
		Details:    fmt.Sprintf("Created %s '%s'", sc.Label, rec.GetString(sc.NameField)),
	})
}

func (s *changeHistoryServiceImpl) TrackUpdate(ctx context.Context, actor domain.Actor, sc *schema.Schema, before, after domain.Record, fields []string) {
	sort.Strings(fields)
	id := after.GetString(sc.IDColumn)
	for _, field := range fields {
		if _, skip := auditSkipFields[field]; skip {
			continue
		}
		oldVal := canonicalValue(before[field])
		newVal := canonicalValue(after[field])
		if oldVal == newVal {
			continue
		}
		entry := domain.AuditEntry{
			UserEmail:    actorIdentity(actor),
			Action:       domain.AuditUpdate,
			EntityType:   sc.Type,
			EntityID:     id,
			FieldChanged: field,
			OldValue:     oldVal,
			NewValue:     newVal,
		}
		if len(oldVal) > longValueThreshold || len(newVal) > longValueThreshold {
			entry.OldValue = truncate(oldVal, longValueThreshold)
			entry.NewValue = truncate(newVal, longValueThreshold)
			entry.Details = s.compactDiff(oldVal, newVal)
		}
		s.append(ctx, entry)
	}
}

func (s *changeHistoryServiceImpl) TrackDelete(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record) {
	s.append(ctx, domain.AuditEntry{
		UserEmail:  actorIdentity(actor),
		Action:     domain.AuditDelete,
		EntityType: sc.Type,
		EntityID:   rec.GetString(sc.IDColumn),
		Details:    fmt.Sprintf("Deleted %s '%s'", sc.Label, rec.GetString(sc.NameField)),
	})
}

func (s *changeHistoryServiceImpl) TrackDecision(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record, approved bool, notes string) {
	action := domain.AuditApprove
	if !approved {
		action = domain.AuditReject
	}
	s.append(ctx, domain.AuditEntry{
		UserEmail:  actorIdentity(actor),
		Action:     action,
		EntityType: sc.Type,
		EntityID:   rec.GetString(sc.IDColumn),
		Details:    notes,
	})
}

// compactDiff summarises a long-text change as insert/delete spans so the
// audit row stays small.
func (s *changeHistoryServiceImpl) compactDiff(oldVal, newVal string) string {
	diffs := s.differ.DiffMain(oldVal, newVal, false)
	diffs = s.differ.DiffCleanupSemantic(diffs)
	out := ""
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			out += fmt.Sprintf("+[%s]", truncate(d.Text, 80))
		case diffmatchpatch.DiffDelete:
			out += fmt.Sprintf("-[%s]", truncate(d.Text, 80))
		}
	}
	return truncate(out, 1000)
}

// truncate cuts s to at most n bytes, stepping back to a rune boundary so
// the result stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func requireReader(actor domain.Actor) error {
	if rbac.RoleLevel(actor.Role) <= 0 {
		return fmt.Errorf("unknown role '%s': %w", actor.Role, apperrors.ErrForbidden)
	}
	return nil
}

func (s *changeHistoryServiceImpl) EntityHistory(ctx context.Context, actor domain.Actor, entityType, entityID string, limit int) ([]domain.AuditEntry, error) {
	if err := requireReader(actor); err != nil {
		return nil, err
	}
	if _, err := schema.Get(entityType); err != nil {
		return nil, err
	}
	return s.auditRepo.FindAuditByEntity(ctx, entityType, entityID, clampLimit(limit))
}

func (s *changeHistoryServiceImpl) UserHistory(ctx context.Context, actor domain.Actor, userEmail string, limit int) ([]domain.AuditEntry, error) {
	if err := requireReader(actor); err != nil {
		return nil, err
	}
	return s.auditRepo.FindAuditByUser(ctx, userEmail, clampLimit(limit))
}

func (s *changeHistoryServiceImpl) RecentActivity(ctx context.Context, actor domain.Actor, limit int) ([]domain.AuditEntry, error) {
	if err := requireReader(actor); err != nil {
		return nil, err
	}
	return s.auditRepo.FindRecentAudit(ctx, clampLimit(limit))
}

func (s *changeHistoryServiceImpl) TaskTransitions(ctx context.Context, actor domain.Actor, taskID string) ([]domain.StatusTransition, error) {
	if err := requireReader(actor); err != nil {
		return nil, err
	}
	return s.transitionRepo.FindTransitionsByTask(ctx, taskID)
}
