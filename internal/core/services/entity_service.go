package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
	portssvc "github.com/pm-hub/pmhub_backend/internal/core/ports/services"
	"github.com/pm-hub/pmhub_backend/internal/dto"
	"github.com/pm-hub/pmhub_backend/internal/metrics"
	"github.com/pm-hub/pmhub_backend/internal/rbac"
	"github.com/pm-hub/pmhub_backend/internal/schema"
)

// conflictMessage is surfaced verbatim whenever an optimistic lock fails,
// so clients can rely on the exact text.
const conflictMessage = "Update conflict — record was modified by another user"

// deniedMessage is the fixed text for every permission denial; the cause
// goes into the result's Detail.
const deniedMessage = "Permission denied"

// historyRecorder is what the entity service needs from the change history
// side: best-effort recording of what happened. Recording failures are
// logged, never propagated, so a full audit table cannot block writes.
type historyRecorder interface {
	TrackCreate(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record)
	TrackUpdate(ctx context.Context, actor domain.Actor, sc *schema.Schema, before, after domain.Record, fields []string)
	TrackDelete(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record)
	TrackDecision(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record, approved bool, notes string)
}

// entityServiceImpl implements the EntitySvcFacade interface.
type entityServiceImpl struct {
	BaseService
	store          portsrepo.EntityStoreFacade
	history        historyRecorder
	transitionRepo portsrepo.TransitionRepositoryFacade
	now            func() time.Time
}

// EntityServiceOption is a functional option for configuring the entity service.
type EntityServiceOption func(*entityServiceImpl)

// WithHistoryRecorder adds the change history dependency.
func WithHistoryRecorder(h historyRecorder) EntityServiceOption {
	return func(s *entityServiceImpl) {
		s.history = h
	}
}

// WithTransitionRepository adds the task status transition dependency.
func WithTransitionRepository(repo portsrepo.TransitionRepositoryFacade) EntityServiceOption {
	return func(s *entityServiceImpl) {
		s.transitionRepo = repo
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) EntityServiceOption {
	return func(s *entityServiceImpl) {
		s.now = now
	}
}

// NewEntityService creates the schema-driven record service.
func NewEntityService(store portsrepo.EntityStoreFacade, options ...EntityServiceOption) portssvc.EntitySvcFacade {
	svc := &entityServiceImpl{
		store: store,
		now:   time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.EntitySvcFacade = (*entityServiceImpl)(nil)

func denied(d rbac.Decision) dto.MutationResult {
	return dto.MutationResult{Success: false, Message: deniedMessage, Detail: d.Reason, Reason: dto.ReasonForbidden}
}

func validationResult(verrs *apperrors.ValidationErrors) dto.MutationResult {
	return dto.MutationResult{
		Success: false,
		Message: "Validation failed",
		Reason:  dto.ReasonValidation,
		Errors:  verrs.FieldMap(),
	}
}

func conflictResult() dto.MutationResult {
	return dto.MutationResult{
		Success: false,
		Message: conflictMessage,
		Detail:  "Please reload and retry.",
		Reason:  dto.ReasonConflict,
	}
}

func blocked(format string, args ...any) dto.MutationResult {
	return dto.MutationResult{Success: false, Message: fmt.Sprintf(format, args...), Reason: dto.ReasonBlocked}
}

// actorIdentity is what goes into created_by/updated_by and audit rows.
func actorIdentity(actor domain.Actor) string {
	if actor.Email != "" {
		return actor.Email
	}
	return actor.UserID
}

func (s *entityServiceImpl) CreateEntity(ctx context.Context, actor domain.Actor, entityType string, form map[string]any) (dto.MutationResult, error) {
	sc, err := schema.Get(entityType)
	if err != nil {
		return dto.MutationResult{}, err
	}
	if d := rbac.Check(actor, rbac.OpCreate, sc); !d.Allowed {
		metrics.ObserveEntityOp(entityType, "create", "forbidden")
		return denied(d), nil
	}

	cleaned, err := sc.Validate(form)
	if err != nil {
		var verrs *apperrors.ValidationErrors
		if errors.As(err, &verrs) {
			s.LogDebug(ctx, "Validation rejected create",
				slog.String("entity_type", entityType),
				slog.Int("error_count", len(verrs.Errors)))
			metrics.ObserveEntityOp(entityType, "create", "validation")
			return validationResult(verrs), nil
		}
		return dto.MutationResult{}, err
	}

	now := s.now()
	rec := domain.Record{}
	for k, v := range cleaned {
		rec[k] = v
	}
	if sc.Defaults != nil {
		for k, v := range sc.Defaults(now) {
			if _, present := rec[k]; !present {
				rec[k] = v
			}
		}
	}
	if sc.StatusField != "" {
		if _, present := rec[sc.StatusField]; !present && sc.InitialStatus != "" {
			rec[sc.StatusField] = sc.InitialStatus
		}
	}
	if _, present := rec[sc.IDColumn]; !present {
		rec[sc.IDColumn] = uuid.NewString()
	}
	rec[domain.FieldCreatedBy] = actorIdentity(actor)
	rec[domain.FieldUpdatedBy] = actorIdentity(actor)

	stored, err := s.store.Insert(ctx, sc, rec)
	if err != nil {
		s.LogError(ctx, err, "Failed to insert record",
			slog.String("entity_type", entityType))
		metrics.ObserveEntityOp(entityType, "create", "error")
		return dto.MutationResult{}, err
	}

	id := stored.GetString(sc.IDColumn)
	if s.history != nil {
		s.history.TrackCreate(ctx, actor, sc, stored)
	}
	s.LogInfo(ctx, "Record created",
		slog.String("entity_type", entityType),
		slog.String("id", id))
	metrics.ObserveEntityOp(entityType, "create", "ok")
	return dto.MutationResult{
		Success: true,
		Message: fmt.Sprintf("%s created", sc.Label),
		ID:      id,
		Record:  stored,
	}, nil
}

func (s *entityServiceImpl) UpdateEntity(ctx context.Context, actor domain.Actor, entityType, id string, updates map[string]any, version string) (dto.MutationResult, error) {
	sc, err := schema.Get(entityType)
	if err != nil {
		return dto.MutationResult{}, err
	}
	if d := rbac.Check(actor, rbac.OpUpdate, sc); !d.Allowed {
		metrics.ObserveEntityOp(entityType, "update", "forbidden")
		return denied(d), nil
	}
	if len(updates) == 0 {
		return blocked("nothing to update"), nil
	}

	before, err := s.loadScoped(ctx, actor, sc, id)
	if err != nil {
		return dto.MutationResult{}, err
	}

	colUpdates, verrs := s.cleanUpdates(sc, before, updates)
	if verrs != nil {
		metrics.ObserveEntityOp(entityType, "update", "validation")
		return validationResult(verrs), nil
	}

	after, err := s.store.Update(ctx, sc, id, colUpdates, &version, actorIdentity(actor))
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.LogInfo(ctx, "Optimistic lock conflict",
				slog.String("entity_type", entityType),
				slog.String("id", id))
			metrics.ObserveConflict(entityType)
			metrics.ObserveEntityOp(entityType, "update", "conflict")
			return conflictResult(), nil
		}
		metrics.ObserveEntityOp(entityType, "update", "error")
		return dto.MutationResult{}, err
	}

	s.recordStatusTransition(ctx, actor, sc, id, before, after)
	if s.history != nil {
		fields := make([]string, 0, len(colUpdates))
		for f := range colUpdates {
			fields = append(fields, f)
		}
		s.history.TrackUpdate(ctx, actor, sc, before, after, fields)
	}
	metrics.ObserveEntityOp(entityType, "update", "ok")
	return dto.MutationResult{
		Success: true,
		Message: fmt.Sprintf("%s updated", sc.Label),
		ID:      id,
		Record:  after,
	}, nil
}

// cleanUpdates validates a partial update against the schema. Provided
// fields are validated in the context of the record's current values so
// cross-field rules still hold, then only the provided columns are kept.
func (s *entityServiceImpl) cleanUpdates(sc *schema.Schema, before domain.Record, updates map[string]any) (map[string]any, *apperrors.ValidationErrors) {
	// Keys the schema has never heard of are client mistakes, reported per
	// field like any other validation failure.
	unknown := &apperrors.ValidationErrors{}
	for k := range updates {
		if sc.HasField(k) || sc.ColumnMutable(k) || k == sc.StatusField {
			continue
		}
		unknown.Errors = append(unknown.Errors, apperrors.NewValidationError(k, "unknown field"))
	}
	if len(unknown.Errors) > 0 {
		return nil, unknown
	}

	merged := map[string]any(before.Clone())
	for k, v := range updates {
		merged[k] = v
	}

	cleaned, err := sc.Validate(merged)
	if err != nil {
		var verrs *apperrors.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, verrs
		}
		return nil, &apperrors.ValidationErrors{Errors: []*apperrors.ValidationError{
			apperrors.NewValidationError("form", "%s", err.Error()),
		}}
	}

	colUpdates := make(map[string]any, len(updates)+1)
	for k := range updates {
		if cv, ok := cleaned[k]; ok {
			colUpdates[k] = cv
			continue
		}
		if k == sc.StatusField && len(sc.StatusEnum) > 0 {
			status, verr := cleanStatus(sc, updates[k])
			if verr != nil {
				return nil, &apperrors.ValidationErrors{Errors: []*apperrors.ValidationError{verr}}
			}
			colUpdates[k] = status
			continue
		}
		// Columns the schema knows but does not validate (ranks, rollups)
		// pass through.
		colUpdates[k] = updates[k]
	}
	// Derived columns recompute whenever their inputs change.
	if score, ok := cleaned["risk_score"]; ok && sc.ColumnMutable("risk_score") {
		if _, probChanged := updates["probability"]; probChanged {
			colUpdates["risk_score"] = score
		} else if _, impactChanged := updates["impact"]; impactChanged {
			colUpdates["risk_score"] = score
		}
	}
	return colUpdates, nil
}

func cleanStatus(sc *schema.Schema, value any) (string, *apperrors.ValidationError) {
	raw, _ := value.(string)
	for _, allowed := range sc.StatusEnum {
		if raw == allowed {
			return raw, nil
		}
	}
	return "", apperrors.NewValidationError(sc.StatusField,
		"must be one of %v, got '%v'", sc.StatusEnum, value)
}

func (s *entityServiceImpl) ChangeStatus(ctx context.Context, actor domain.Actor, entityType, id, status, version string) (dto.MutationResult, error) {
	sc, err := schema.Get(entityType)
	if err != nil {
		return dto.MutationResult{}, err
	}
	if sc.StatusField == "" {
		return blocked("%s records have no status", sc.Label), nil
	}
	if d := rbac.Check(actor, rbac.OpUpdate, sc); !d.Allowed {
		metrics.ObserveEntityOp(entityType, "status", "forbidden")
		return denied(d), nil
	}
	if _, verr := cleanStatus(sc, status); verr != nil {
		metrics.ObserveEntityOp(entityType, "status", "validation")
		return validationResult(&apperrors.ValidationErrors{Errors: []*apperrors.ValidationError{verr}}), nil
	}

	before, err := s.loadScoped(ctx, actor, sc, id)
	if err != nil {
		return dto.MutationResult{}, err
	}

	after, err := s.store.Update(ctx, sc, id, map[string]any{sc.StatusField: status}, &version, actorIdentity(actor))
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			metrics.ObserveConflict(entityType)
			metrics.ObserveEntityOp(entityType, "status", "conflict")
			return conflictResult(), nil
		}
		metrics.ObserveEntityOp(entityType, "status", "error")
		return dto.MutationResult{}, err
	}

	s.recordStatusTransition(ctx, actor, sc, id, before, after)
	if s.history != nil {
		s.history.TrackUpdate(ctx, actor, sc, before, after, []string{sc.StatusField})
	}
	metrics.ObserveEntityOp(entityType, "status", "ok")
	return dto.MutationResult{
		Success: true,
		Message: fmt.Sprintf("%s moved to %s", sc.Label, status),
		ID:      id,
		Record:  after,
	}, nil
}

func (s *entityServiceImpl) Decide(ctx context.Context, actor domain.Actor, entityType, id string, approve bool, version, notes string) (dto.MutationResult, error) {
	sc, err := schema.Get(entityType)
	if err != nil {
		return dto.MutationResult{}, err
	}
	if sc.Approval == nil {
		return blocked("%s records have no approval flow", sc.Label), nil
	}
	if d := rbac.Check(actor, rbac.OpApprove, sc); !d.Allowed {
		metrics.ObserveEntityOp(entityType, "decide", "forbidden")
		return denied(d), nil
	}

	before, err := s.loadScoped(ctx, actor, sc, id)
	if err != nil {
		return dto.MutationResult{}, err
	}
	current := before.GetString(sc.StatusField)
	eligible := false
	for _, from := range sc.Approval.FromStatuses {
		if current == from {
			eligible = true
			break
		}
	}
	if !eligible {
		metrics.ObserveEntityOp(entityType, "decide", "blocked")
		return blocked("%s in status '%s' cannot be decided; expected one of %v",
			sc.Label, current, sc.Approval.FromStatuses), nil
	}

	target := sc.Approval.ApprovedStatus
	if !approve {
		target = sc.Approval.RejectedStatus
	}
	updates := map[string]any{
		sc.StatusField:         target,
		sc.Approval.ByColumn:   actorIdentity(actor),
		sc.Approval.DateColumn: s.now().UTC().Format("2006-01-02"),
	}
	after, err := s.store.Update(ctx, sc, id, updates, &version, actorIdentity(actor))
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			metrics.ObserveConflict(entityType)
			metrics.ObserveEntityOp(entityType, "decide", "conflict")
			return conflictResult(), nil
		}
		metrics.ObserveEntityOp(entityType, "decide", "error")
		return dto.MutationResult{}, err
	}

	if s.history != nil {
		s.history.TrackDecision(ctx, actor, sc, after, approve, notes)
	}
	verb := "approved"
	if !approve {
		verb = "rejected"
	}
	s.LogInfo(ctx, "Record decided",
		slog.String("entity_type", entityType),
		slog.String("id", id),
		slog.String("decision", verb))
	metrics.ObserveEntityOp(entityType, "decide", "ok")
	return dto.MutationResult{
		Success: true,
		Message: fmt.Sprintf("%s %s", sc.Label, verb),
		ID:      id,
		Record:  after,
	}, nil
}

func (s *entityServiceImpl) DeleteEntity(ctx context.Context, actor domain.Actor, entityType, id string) (dto.MutationResult, error) {
	sc, err := schema.Get(entityType)
	if err != nil {
		return dto.MutationResult{}, err
	}
	if d := rbac.Check(actor, rbac.OpDelete, sc); !d.Allowed {
		metrics.ObserveEntityOp(entityType, "delete", "forbidden")
		return denied(d), nil
	}

	rec, err := s.store.Find(ctx, sc, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Idempotent: a second delete of the same record succeeds
			// without another audit entry.
			metrics.ObserveEntityOp(entityType, "delete", "ok")
			return dto.MutationResult{
				Success: true,
				Message: fmt.Sprintf("%s already deleted", sc.Label),
				ID:      id,
			}, nil
		}
		return dto.MutationResult{}, err
	}
	if sc.DepartmentColumn != "" && !rbac.CanAccessDepartment(actor, rec.GetString(sc.DepartmentColumn)) {
		metrics.ObserveEntityOp(entityType, "delete", "forbidden")
		return denied(rbac.Decision{Reason: "record belongs to another department"}), nil
	}

	marked, err := s.store.SoftDelete(ctx, sc, id, actorIdentity(actor))
	if err != nil {
		metrics.ObserveEntityOp(entityType, "delete", "error")
		return dto.MutationResult{}, err
	}
	if marked && s.history != nil {
		s.history.TrackDelete(ctx, actor, sc, rec)
	}
	metrics.ObserveEntityOp(entityType, "delete", "ok")
	return dto.MutationResult{
		Success: true,
		Message: fmt.Sprintf("%s deleted", sc.Label),
		ID:      id,
	}, nil
}

func (s *entityServiceImpl) GetEntity(ctx context.Context, actor domain.Actor, entityType, id string) (domain.Record, error) {
	sc, err := schema.Get(entityType)
	if err != nil {
		return nil, err
	}
	if d := rbac.Check(actor, rbac.OpRead, sc); !d.Allowed {
		return nil, fmt.Errorf("%s: %w", d.Reason, apperrors.ErrForbidden)
	}
	return s.loadScoped(ctx, actor, sc, id)
}

func (s *entityServiceImpl) ListEntities(ctx context.Context, actor domain.Actor, entityType string, params dto.ListEntitiesParams) ([]domain.Record, error) {
	sc, err := schema.Get(entityType)
	if err != nil {
		return nil, err
	}
	if d := rbac.Check(actor, rbac.OpRead, sc); !d.Allowed {
		return nil, fmt.Errorf("%s: %w", d.Reason, apperrors.ErrForbidden)
	}
	filter := portsrepo.ListFilter{
		Status: params.Status,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	if sc.DepartmentColumn != "" {
		filter.Department = rbac.DepartmentFilter(actor)
	}
	return s.store.List(ctx, sc, filter)
}

// loadScoped fetches a live record and enforces the actor's department
// scope for schemas that carry one.
func (s *entityServiceImpl) loadScoped(ctx context.Context, actor domain.Actor, sc *schema.Schema, id string) (domain.Record, error) {
	rec, err := s.store.Find(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	if sc.DepartmentColumn != "" && !rbac.CanAccessDepartment(actor, rec.GetString(sc.DepartmentColumn)) {
		return nil, fmt.Errorf("record belongs to another department: %w", apperrors.ErrForbidden)
	}
	return rec, nil
}

func (s *entityServiceImpl) recordStatusTransition(ctx context.Context, actor domain.Actor, sc *schema.Schema, id string, before, after domain.Record) {
	if !sc.TracksTransitions || s.transitionRepo == nil {
		return
	}
	from := before.GetString(sc.StatusField)
	to := after.GetString(sc.StatusField)
	if from == to {
		return
	}
	tr := domain.StatusTransition{
		TransitionID:   uuid.NewString(),
		TaskID:         id,
		FromStatus:     from,
		ToStatus:       to,
		ChangedBy:      actorIdentity(actor),
		TransitionedAt: s.now().UTC(),
	}
	if err := s.transitionRepo.SaveStatusTransition(ctx, tr); err != nil {
		s.LogError(ctx, err, "Failed to record status transition",
			slog.String("task_id", id),
			slog.String("from", from),
			slog.String("to", to))
	}
}
