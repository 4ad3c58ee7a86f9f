package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
	portssvc "github.com/pm-hub/pmhub_backend/internal/core/ports/services"
	"github.com/pm-hub/pmhub_backend/internal/core/services"
	"github.com/pm-hub/pmhub_backend/internal/dto"
	"github.com/pm-hub/pmhub_backend/internal/schema"
)

// MockEntityStore is a mock type for the EntityStoreFacade interface
type MockEntityStore struct {
	mock.Mock
}

func (m *MockEntityStore) Find(ctx context.Context, sc *schema.Schema, id string) (domain.Record, error) {
	args := m.Called(ctx, sc, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Record), args.Error(1)
}

func (m *MockEntityStore) List(ctx context.Context, sc *schema.Schema, filter portsrepo.ListFilter) ([]domain.Record, error) {
	args := m.Called(ctx, sc, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Record), args.Error(1)
}

func (m *MockEntityStore) Insert(ctx context.Context, sc *schema.Schema, rec domain.Record) (domain.Record, error) {
	args := m.Called(ctx, sc, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Record), args.Error(1)
}

func (m *MockEntityStore) Update(ctx context.Context, sc *schema.Schema, id string, updates map[string]any, expectedVersion *string, updatedBy string) (domain.Record, error) {
	args := m.Called(ctx, sc, id, updates, expectedVersion, updatedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Record), args.Error(1)
}

func (m *MockEntityStore) SoftDelete(ctx context.Context, sc *schema.Schema, id string, deletedBy string) (bool, error) {
	args := m.Called(ctx, sc, id, deletedBy)
	return args.Bool(0), args.Error(1)
}

// MockHistoryRecorder is a mock for the change history dependency
type MockHistoryRecorder struct {
	mock.Mock
}

func (m *MockHistoryRecorder) TrackCreate(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record) {
	m.Called(ctx, actor, sc, rec)
}

func (m *MockHistoryRecorder) TrackUpdate(ctx context.Context, actor domain.Actor, sc *schema.Schema, before, after domain.Record, fields []string) {
	m.Called(ctx, actor, sc, before, after, fields)
}

func (m *MockHistoryRecorder) TrackDelete(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record) {
	m.Called(ctx, actor, sc, rec)
}

func (m *MockHistoryRecorder) TrackDecision(ctx context.Context, actor domain.Actor, sc *schema.Schema, rec domain.Record, approved bool, notes string) {
	m.Called(ctx, actor, sc, rec, approved, notes)
}

// MockTransitionRepository is a mock for the TransitionRepositoryFacade interface
type MockTransitionRepository struct {
	mock.Mock
}

func (m *MockTransitionRepository) SaveStatusTransition(ctx context.Context, tr domain.StatusTransition) error {
	args := m.Called(ctx, tr)
	return args.Error(0)
}

func (m *MockTransitionRepository) FindTransitionsByTask(ctx context.Context, taskID string) ([]domain.StatusTransition, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusTransition), args.Error(1)
}

// --- Test Suite Setup ---

type EntityServiceTestSuite struct {
	suite.Suite
	mockStore       *MockEntityStore
	mockHistory     *MockHistoryRecorder
	mockTransitions *MockTransitionRepository
	service         portssvc.EntitySvcFacade
	pm              domain.Actor
	engineer        domain.Actor
	viewer          domain.Actor
}

var fixedNow = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func (suite *EntityServiceTestSuite) SetupTest() {
	suite.mockStore = new(MockEntityStore)
	suite.mockHistory = new(MockHistoryRecorder)
	suite.mockTransitions = new(MockTransitionRepository)
	suite.service = services.NewEntityService(suite.mockStore,
		services.WithHistoryRecorder(suite.mockHistory),
		services.WithTransitionRepository(suite.mockTransitions),
		services.WithClock(func() time.Time { return fixedNow }),
	)
	suite.pm = domain.Actor{UserID: "usr-pm", Email: "pm@pmhub.dev", Role: domain.RolePM, DepartmentID: "dep-001"}
	suite.engineer = domain.Actor{UserID: "usr-eng", Email: "eng@pmhub.dev", Role: domain.RoleEngineer, DepartmentID: "dep-001"}
	suite.viewer = domain.Actor{UserID: "usr-view", Email: "viewer@pmhub.dev", Role: domain.RoleViewer}
}

// --- Create ---

func (suite *EntityServiceTestSuite) TestCreateEntity_Success() {
	ctx := context.Background()
	form := map[string]any{
		"title":     "Fix login redirect",
		"task_type": "bug",
		"priority":  "high",
	}

	suite.mockStore.On("Insert", ctx, mock.AnythingOfType("*schema.Schema"), mock.MatchedBy(func(rec domain.Record) bool {
		return rec.GetString("title") == "Fix login redirect" &&
			rec.GetString("status") == "backlog" &&
			rec.GetString("created_by") == "pm@pmhub.dev" &&
			rec.GetString("task_id") != ""
	})).Return(domain.Record{
		"task_id": "tsk-100", "title": "Fix login redirect", "status": "backlog",
	}, nil).Once()
	suite.mockHistory.On("TrackCreate", ctx, suite.pm, mock.Anything, mock.Anything).Once()

	result, err := suite.service.CreateEntity(ctx, suite.pm, "task", form)

	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.Equal("tsk-100", result.ID)
	suite.mockStore.AssertExpectations(suite.T())
	suite.mockHistory.AssertExpectations(suite.T())
}

func (suite *EntityServiceTestSuite) TestCreateEntity_CollectsAllValidationErrors() {
	ctx := context.Background()
	form := map[string]any{
		"task_type": "bug",
		"priority":  "urgent", // not in the enum
	}

	result, err := suite.service.CreateEntity(ctx, suite.pm, "task", form)

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(dto.ReasonValidation, result.Reason)
	suite.Contains(result.Errors, "title")
	suite.Contains(result.Errors, "priority")
	suite.mockStore.AssertNotCalled(suite.T(), "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityServiceTestSuite) TestCreateEntity_ViewerDenied() {
	ctx := context.Background()

	result, err := suite.service.CreateEntity(ctx, suite.viewer, "task", map[string]any{
		"title": "T", "task_type": "task", "priority": "low",
	})

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(dto.ReasonForbidden, result.Reason)
	suite.Equal("Permission denied", result.Message)
	suite.NotEmpty(result.Detail)
	suite.mockStore.AssertNotCalled(suite.T(), "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityServiceTestSuite) TestCreateEntity_EngineerCannotCreatePortfolio() {
	ctx := context.Background()

	result, err := suite.service.CreateEntity(ctx, suite.engineer, "portfolio", map[string]any{
		"name": "Platform", "owner": "Someone",
	})

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(dto.ReasonForbidden, result.Reason)
}

func (suite *EntityServiceTestSuite) TestCreateEntity_UnknownTypeIsError() {
	ctx := context.Background()

	_, err := suite.service.CreateEntity(ctx, suite.pm, "widget", map[string]any{})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrPolicyViolation)
}

func (suite *EntityServiceTestSuite) TestCreateEntity_RiskDerivesScoreAndDefaults() {
	ctx := context.Background()
	form := map[string]any{
		"title":       "Vendor API deprecation",
		"category":    "external",
		"probability": 4,
		"impact":      5,
	}

	suite.mockStore.On("Insert", ctx, mock.AnythingOfType("*schema.Schema"), mock.MatchedBy(func(rec domain.Record) bool {
		score, _ := rec["risk_score"].(int)
		return score == 20 &&
			rec.GetString("status") == "identified" &&
			rec.GetString("identified_date") == "2025-06-15"
	})).Return(domain.Record{"risk_id": "rsk-100", "risk_score": 20}, nil).Once()
	suite.mockHistory.On("TrackCreate", ctx, suite.pm, mock.Anything, mock.Anything).Once()

	result, err := suite.service.CreateEntity(ctx, suite.pm, "risk", form)

	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.mockStore.AssertExpectations(suite.T())
}

// --- Update ---

func (suite *EntityServiceTestSuite) TestUpdateEntity_Success() {
	ctx := context.Background()
	before := domain.Record{
		"task_id": "tsk-1", "title": "Old title", "task_type": "task",
		"priority": "low", "status": "todo",
	}
	after := domain.Record{
		"task_id": "tsk-1", "title": "New title", "task_type": "task",
		"priority": "low", "status": "todo",
	}
	version := "2025-06-15T10:00:00Z"

	suite.mockStore.On("Find", ctx, mock.Anything, "tsk-1").Return(before, nil).Once()
	suite.mockStore.On("Update", ctx, mock.Anything, "tsk-1",
		map[string]any{"title": "New title"}, &version, "pm@pmhub.dev").Return(after, nil).Once()
	suite.mockHistory.On("TrackUpdate", ctx, suite.pm, mock.Anything, before, after, []string{"title"}).Once()

	result, err := suite.service.UpdateEntity(ctx, suite.pm, "task", "tsk-1",
		map[string]any{"title": "New title"}, version)

	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.mockStore.AssertExpectations(suite.T())
	suite.mockHistory.AssertExpectations(suite.T())
}

func (suite *EntityServiceTestSuite) TestUpdateEntity_UnknownFieldIsValidationError() {
	ctx := context.Background()
	before := domain.Record{
		"task_id": "tsk-1", "title": "Old title", "task_type": "task",
		"priority": "low", "status": "todo",
	}
	version := "2025-06-15T10:00:00Z"

	suite.mockStore.On("Find", ctx, mock.Anything, "tsk-1").Return(before, nil).Once()

	result, err := suite.service.UpdateEntity(ctx, suite.pm, "task", "tsk-1",
		map[string]any{"bogus": 1, "title": "New title"}, version)

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(dto.ReasonValidation, result.Reason)
	suite.Contains(result.Errors, "bogus")
	suite.mockStore.AssertNotCalled(suite.T(), "Update",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityServiceTestSuite) TestUpdateEntity_VersionConflict() {
	ctx := context.Background()
	before := domain.Record{
		"task_id": "tsk-1", "title": "T", "task_type": "task",
		"priority": "low", "status": "todo",
	}
	version := "2025-06-15T09:00:00Z"

	suite.mockStore.On("Find", ctx, mock.Anything, "tsk-1").Return(before, nil).Once()
	suite.mockStore.On("Update", ctx, mock.Anything, "tsk-1", mock.Anything, &version, "pm@pmhub.dev").
		Return(nil, apperrors.ErrConflict).Once()

	result, err := suite.service.UpdateEntity(ctx, suite.pm, "task", "tsk-1",
		map[string]any{"title": "T2"}, version)

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(dto.ReasonConflict, result.Reason)
	suite.Equal("Update conflict — record was modified by another user", result.Message)
	suite.Contains(result.Detail, "reload and retry")
	suite.mockHistory.AssertNotCalled(suite.T(), "TrackUpdate",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityServiceTestSuite) TestUpdateEntity_NotFound() {
	ctx := context.Background()
	suite.mockStore.On("Find", ctx, mock.Anything, "tsk-missing").
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.UpdateEntity(ctx, suite.pm, "task", "tsk-missing",
		map[string]any{"title": "T"}, "v")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *EntityServiceTestSuite) TestUpdateEntity_EngineerDeniedOnProject() {
	ctx := context.Background()

	result, err := suite.service.UpdateEntity(ctx, suite.engineer, "project", "prj-1",
		map[string]any{"name": "Renamed"}, "v")

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(dto.ReasonForbidden, result.Reason)
	suite.mockStore.AssertNotCalled(suite.T(), "Find", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityServiceTestSuite) TestUpdateEntity_EngineerMayEditTask() {
	ctx := context.Background()
	before := domain.Record{
		"task_id": "tsk-1", "title": "T", "task_type": "task",
		"priority": "low", "status": "todo",
	}
	after := before.Clone()
	after["status"] = "in_progress"
	version := "v1"

	suite.mockStore.On("Find", ctx, mock.Anything, "tsk-1").Return(before, nil).Once()
	suite.mockStore.On("Update", ctx, mock.Anything, "tsk-1",
		map[string]any{"status": "in_progress"}, &version, "eng@pmhub.dev").Return(after, nil).Once()
	suite.mockTransitions.On("SaveStatusTransition", ctx, mock.MatchedBy(func(tr domain.StatusTransition) bool {
		return tr.TaskID == "tsk-1" && tr.FromStatus == "todo" && tr.ToStatus == "in_progress"
	})).Return(nil).Once()
	suite.mockHistory.On("TrackUpdate", ctx, suite.engineer, mock.Anything, before, after, []string{"status"}).Once()

	result, err := suite.service.UpdateEntity(ctx, suite.engineer, "task", "tsk-1",
		map[string]any{"status": "in_progress"}, version)

	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.mockTransitions.AssertExpectations(suite.T())
}

// --- Status ---

func (suite *EntityServiceTestSuite) TestChangeStatus_RejectsUnknownStatus() {
	ctx := context.Background()

	result, err := suite.service.ChangeStatus(ctx, suite.pm, "task", "tsk-1", "parked", "v")

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(dto.ReasonValidation, result.Reason)
	suite.Contains(result.Errors, "status")
}

func (suite *EntityServiceTestSuite) TestChangeStatus_RecordsTransition() {
	ctx := context.Background()
	before := domain.Record{"task_id": "tsk-1", "status": "review"}
	after := domain.Record{"task_id": "tsk-1", "status": "done"}
	version := "v1"

	suite.mockStore.On("Find", ctx, mock.Anything, "tsk-1").Return(before, nil).Once()
	suite.mockStore.On("Update", ctx, mock.Anything, "tsk-1",
		map[string]any{"status": "done"}, &version, "pm@pmhub.dev").Return(after, nil).Once()
	suite.mockTransitions.On("SaveStatusTransition", ctx, mock.MatchedBy(func(tr domain.StatusTransition) bool {
		return tr.FromStatus == "review" && tr.ToStatus == "done" && tr.ChangedBy == "pm@pmhub.dev"
	})).Return(nil).Once()
	suite.mockHistory.On("TrackUpdate", ctx, suite.pm, mock.Anything, before, after, []string{"status"}).Once()

	result, err := suite.service.ChangeStatus(ctx, suite.pm, "task", "tsk-1", "done", version)

	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.mockTransitions.AssertExpectations(suite.T())
}

// --- Decide ---

func (suite *EntityServiceTestSuite) TestDecide_ApproveCharter() {
	ctx := context.Background()
	lead := domain.Actor{UserID: "usr-lead", Email: "lead@pmhub.dev", Role: domain.RoleLead}
	before := domain.Record{"charter_id": "chr-1", "status": "submitted"}
	after := domain.Record{"charter_id": "chr-1", "status": "approved"}
	version := "v1"

	suite.mockStore.On("Find", ctx, mock.Anything, "chr-1").Return(before, nil).Once()
	suite.mockStore.On("Update", ctx, mock.Anything, "chr-1", map[string]any{
		"status":        "approved",
		"approved_by":   "lead@pmhub.dev",
		"approved_date": "2025-06-15",
	}, &version, "lead@pmhub.dev").Return(after, nil).Once()
	suite.mockHistory.On("TrackDecision", ctx, lead, mock.Anything, after, true, "looks solid").Once()

	result, err := suite.service.Decide(ctx, lead, "charter", "chr-1", true, version, "looks solid")

	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.Contains(result.Message, "approved")
	suite.mockStore.AssertExpectations(suite.T())
	suite.mockHistory.AssertExpectations(suite.T())
}

func (suite *EntityServiceTestSuite) TestDecide_BlockedWhenNotSubmitted() {
	ctx := context.Background()
	lead := domain.Actor{UserID: "usr-lead", Email: "lead@pmhub.dev", Role: domain.RoleLead}
	before := domain.Record{"charter_id": "chr-1", "status": "draft"}

	suite.mockStore.On("Find", ctx, mock.Anything, "chr-1").Return(before, nil).Once()

	result, err := suite.service.Decide(ctx, lead, "charter", "chr-1", true, "v", "")

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(dto.ReasonBlocked, result.Reason)
	suite.mockStore.AssertNotCalled(suite.T(), "Update",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityServiceTestSuite) TestDecide_EngineerDenied() {
	ctx := context.Background()

	result, err := suite.service.Decide(ctx, suite.engineer, "charter", "chr-1", true, "v", "")

	suite.Require().NoError(err)
	suite.Equal(dto.ReasonForbidden, result.Reason)
}

func (suite *EntityServiceTestSuite) TestDecide_NoApprovalFlow() {
	ctx := context.Background()

	result, err := suite.service.Decide(ctx, suite.pm, "task", "tsk-1", true, "v", "")

	suite.Require().NoError(err)
	suite.Equal(dto.ReasonBlocked, result.Reason)
}

// --- Delete ---

func (suite *EntityServiceTestSuite) TestDeleteEntity_Success() {
	ctx := context.Background()
	lead := domain.Actor{UserID: "usr-lead", Email: "lead@pmhub.dev", Role: domain.RoleLead}
	rec := domain.Record{"task_id": "tsk-1", "title": "T"}

	suite.mockStore.On("Find", ctx, mock.Anything, "tsk-1").Return(rec, nil).Once()
	suite.mockStore.On("SoftDelete", ctx, mock.Anything, "tsk-1", "lead@pmhub.dev").Return(true, nil).Once()
	suite.mockHistory.On("TrackDelete", ctx, lead, mock.Anything, rec).Once()

	result, err := suite.service.DeleteEntity(ctx, lead, "task", "tsk-1")

	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.mockHistory.AssertExpectations(suite.T())
}

func (suite *EntityServiceTestSuite) TestDeleteEntity_SecondDeleteIsIdempotent() {
	ctx := context.Background()
	lead := domain.Actor{UserID: "usr-lead", Email: "lead@pmhub.dev", Role: domain.RoleLead}

	suite.mockStore.On("Find", ctx, mock.Anything, "tsk-1").Return(nil, apperrors.ErrNotFound).Once()

	result, err := suite.service.DeleteEntity(ctx, lead, "task", "tsk-1")

	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.Contains(result.Message, "already deleted")
	suite.mockStore.AssertNotCalled(suite.T(), "SoftDelete",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockHistory.AssertNotCalled(suite.T(), "TrackDelete",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityServiceTestSuite) TestDeleteEntity_EngineerDenied() {
	ctx := context.Background()

	result, err := suite.service.DeleteEntity(ctx, suite.engineer, "task", "tsk-1")

	suite.Require().NoError(err)
	suite.Equal(dto.ReasonForbidden, result.Reason)
}

// --- Read ---

func (suite *EntityServiceTestSuite) TestGetEntity_DepartmentScopeEnforced() {
	ctx := context.Background()
	rec := domain.Record{"user_id": "usr-9", "display_name": "X", "department_id": "dep-999"}

	suite.mockStore.On("Find", ctx, mock.Anything, "usr-9").Return(rec, nil).Once()

	_, err := suite.service.GetEntity(ctx, suite.pm, "team_member", "usr-9")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *EntityServiceTestSuite) TestListEntities_AdminSeesAllDepartments() {
	ctx := context.Background()
	admin := domain.Actor{UserID: "usr-adm", Email: "admin@pmhub.dev", Role: domain.RoleAdmin}

	suite.mockStore.On("List", ctx, mock.Anything, portsrepo.ListFilter{Limit: 50}).
		Return([]domain.Record{}, nil).Once()

	_, err := suite.service.ListEntities(ctx, admin, "team_member", dto.ListEntitiesParams{Limit: 50})

	suite.Require().NoError(err)
	suite.mockStore.AssertExpectations(suite.T())
}

func (suite *EntityServiceTestSuite) TestListEntities_DepartmentFilterApplied() {
	ctx := context.Background()

	suite.mockStore.On("List", ctx, mock.Anything, portsrepo.ListFilter{Department: "dep-001", Limit: 50}).
		Return([]domain.Record{}, nil).Once()

	_, err := suite.service.ListEntities(ctx, suite.pm, "team_member", dto.ListEntitiesParams{Limit: 50})

	suite.Require().NoError(err)
	suite.mockStore.AssertExpectations(suite.T())
}

func TestEntityServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EntityServiceTestSuite))
}
