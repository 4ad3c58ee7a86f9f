package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	"github.com/pm-hub/pmhub_backend/internal/core/services"
	"github.com/pm-hub/pmhub_backend/internal/dto"
	"github.com/pm-hub/pmhub_backend/internal/handlers"
	"github.com/pm-hub/pmhub_backend/internal/middleware"
	"github.com/pm-hub/pmhub_backend/internal/platform/config"
	"github.com/pm-hub/pmhub_backend/internal/utils"
)

// --- Mock EntityService ---
type MockEntityService struct {
	mock.Mock
}

func (m *MockEntityService) GetEntity(ctx context.Context, actor domain.Actor, entityType, id string) (domain.Record, error) {
	args := m.Called(ctx, actor, entityType, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Record), args.Error(1)
}

func (m *MockEntityService) ListEntities(ctx context.Context, actor domain.Actor, entityType string, params dto.ListEntitiesParams) ([]domain.Record, error) {
	args := m.Called(ctx, actor, entityType, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Record), args.Error(1)
}

func (m *MockEntityService) CreateEntity(ctx context.Context, actor domain.Actor, entityType string, form map[string]any) (dto.MutationResult, error) {
	args := m.Called(ctx, actor, entityType, form)
	return args.Get(0).(dto.MutationResult), args.Error(1)
}

func (m *MockEntityService) UpdateEntity(ctx context.Context, actor domain.Actor, entityType, id string, updates map[string]any, version string) (dto.MutationResult, error) {
	args := m.Called(ctx, actor, entityType, id, updates, version)
	return args.Get(0).(dto.MutationResult), args.Error(1)
}

func (m *MockEntityService) ChangeStatus(ctx context.Context, actor domain.Actor, entityType, id, status, version string) (dto.MutationResult, error) {
	args := m.Called(ctx, actor, entityType, id, status, version)
	return args.Get(0).(dto.MutationResult), args.Error(1)
}

func (m *MockEntityService) Decide(ctx context.Context, actor domain.Actor, entityType, id string, approve bool, version, notes string) (dto.MutationResult, error) {
	args := m.Called(ctx, actor, entityType, id, approve, version, notes)
	return args.Get(0).(dto.MutationResult), args.Error(1)
}

func (m *MockEntityService) DeleteEntity(ctx context.Context, actor domain.Actor, entityType, id string) (dto.MutationResult, error) {
	args := m.Called(ctx, actor, entityType, id)
	return args.Get(0).(dto.MutationResult), args.Error(1)
}

// --- Mock ChangeHistoryService ---
type MockChangeHistoryService struct {
	mock.Mock
}

func (m *MockChangeHistoryService) EntityHistory(ctx context.Context, actor domain.Actor, entityType, entityID string, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, actor, entityType, entityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

func (m *MockChangeHistoryService) UserHistory(ctx context.Context, actor domain.Actor, userEmail string, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, actor, userEmail, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

func (m *MockChangeHistoryService) RecentActivity(ctx context.Context, actor domain.Actor, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, actor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

func (m *MockChangeHistoryService) TaskTransitions(ctx context.Context, actor domain.Actor, taskID string) ([]domain.StatusTransition, error) {
	args := m.Called(ctx, actor, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusTransition), args.Error(1)
}

// --- Test Suite Setup ---

type EntityHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockEntity  *MockEntityService
	mockHistory *MockChangeHistoryService
	cfg         *config.Config
	actor       domain.Actor
}

func (suite *EntityHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.cfg = &config.Config{
		JWTSecret:         "test-secret-key-that-is-long-enough",
		JWTExpiryDuration: time.Hour,
		JWTIssuer:         "pmhub-test",
	}
	suite.actor = domain.Actor{
		UserID: "usr-pm", Email: "pm@pmhub.dev",
		Role: domain.RolePM, DepartmentID: "dep-001",
	}

	suite.mockEntity = new(MockEntityService)
	suite.mockHistory = new(MockChangeHistoryService)

	authSvc := services.NewAuthService(suite.cfg, nil)
	v1 := suite.router.Group("/api/v1", middleware.AuthMiddleware(authSvc))
	handlers.RegisterEntityRoutes(v1, suite.mockEntity, suite.mockHistory)
	handlers.RegisterAuditRoutes(v1, suite.mockHistory)
}

func (suite *EntityHandlerTestSuite) token(actor domain.Actor) string {
	token, err := utils.GenerateJWT(actor.UserID, actor.Email, string(actor.Role),
		actor.DepartmentID, suite.cfg.JWTSecret, time.Hour, suite.cfg.JWTIssuer)
	suite.Require().NoError(err)
	return token
}

func (suite *EntityHandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	suite.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+suite.token(suite.actor))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Test Cases ---

func (suite *EntityHandlerTestSuite) TestListEntities_Success() {
	records := []domain.Record{{"task_id": "tsk-1", "title": "First"}}
	suite.mockEntity.On("ListEntities", mock.Anything, suite.actor, "task",
		dto.ListEntitiesParams{Limit: 50}).Return(records, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/entities/task", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListEntitiesResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(1, resp.Count)
	suite.mockEntity.AssertExpectations(suite.T())
}

func (suite *EntityHandlerTestSuite) TestListEntities_UnknownTypeIs404() {
	suite.mockEntity.On("ListEntities", mock.Anything, suite.actor, "widget", mock.Anything).
		Return(nil, apperrors.ErrPolicyViolation).Once()

	w := suite.do(http.MethodGet, "/api/v1/entities/widget", nil)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Contains(w.Body.String(), "Unknown entity type")
}

func (suite *EntityHandlerTestSuite) TestGetEntity_NotFound() {
	suite.mockEntity.On("GetEntity", mock.Anything, suite.actor, "task", "tsk-404").
		Return(nil, apperrors.ErrNotFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/entities/task/tsk-404", nil)

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *EntityHandlerTestSuite) TestCreateEntity_Returns201() {
	form := map[string]any{"title": "New task", "task_type": "task", "priority": "low"}
	suite.mockEntity.On("CreateEntity", mock.Anything, suite.actor, "task", form).
		Return(dto.MutationResult{Success: true, Message: "Task created", ID: "tsk-9"}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/entities/task", form)

	suite.Equal(http.StatusCreated, w.Code)
	var result dto.MutationResult
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	suite.Equal("tsk-9", result.ID)
}

func (suite *EntityHandlerTestSuite) TestCreateEntity_ValidationIs400() {
	suite.mockEntity.On("CreateEntity", mock.Anything, suite.actor, "task", mock.Anything).
		Return(dto.MutationResult{
			Success: false,
			Message: "Validation failed",
			Reason:  dto.ReasonValidation,
			Errors:  map[string]string{"title": "is required"},
		}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/entities/task", map[string]any{"priority": "low"})

	suite.Equal(http.StatusBadRequest, w.Code)
	var result dto.MutationResult
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	suite.Contains(result.Errors, "title")
}

func (suite *EntityHandlerTestSuite) TestUpdateEntity_ConflictIs409() {
	suite.mockEntity.On("UpdateEntity", mock.Anything, suite.actor, "task", "tsk-1",
		map[string]any{"title": "T2"}, "stale-version").
		Return(dto.MutationResult{
			Success: false,
			Message: "Update conflict — record was modified by another user",
			Detail:  "Please reload and retry.",
			Reason:  dto.ReasonConflict,
		}, nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/entities/task/tsk-1", dto.UpdateEntityRequest{
		Updates: map[string]any{"title": "T2"},
		Version: "stale-version",
	})

	suite.Equal(http.StatusConflict, w.Code)
	suite.Contains(w.Body.String(), "reload and retry")
}

func (suite *EntityHandlerTestSuite) TestUpdateEntity_MissingVersionIs400() {
	w := suite.do(http.MethodPut, "/api/v1/entities/task/tsk-1", map[string]any{
		"updates": map[string]any{"title": "T2"},
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockEntity.AssertNotCalled(suite.T(), "UpdateEntity",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityHandlerTestSuite) TestChangeStatus_ForbiddenIs403() {
	suite.mockEntity.On("ChangeStatus", mock.Anything, suite.actor, "project", "prj-1", "active", "v1").
		Return(dto.MutationResult{
			Success: false,
			Message: "role engineer may not update project records",
			Reason:  dto.ReasonForbidden,
		}, nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/entities/project/prj-1/status", dto.StatusChangeRequest{
		Status:  "active",
		Version: "v1",
	})

	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *EntityHandlerTestSuite) TestDecide_BlockedIs422() {
	suite.mockEntity.On("Decide", mock.Anything, suite.actor, "charter", "chr-1", true, "v1", "ship it").
		Return(dto.MutationResult{
			Success: false,
			Message: "Charter in status 'draft' cannot be decided",
			Reason:  dto.ReasonBlocked,
		}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/entities/charter/chr-1/decision", dto.DecisionRequest{
		Approve: true,
		Version: "v1",
		Notes:   "ship it",
	})

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *EntityHandlerTestSuite) TestDeleteEntity_Success() {
	suite.mockEntity.On("DeleteEntity", mock.Anything, suite.actor, "task", "tsk-1").
		Return(dto.MutationResult{Success: true, Message: "Task deleted", ID: "tsk-1"}, nil).Once()

	w := suite.do(http.MethodDelete, "/api/v1/entities/task/tsk-1", nil)

	suite.Equal(http.StatusOK, w.Code)
}

func (suite *EntityHandlerTestSuite) TestEntityHistory_Success() {
	entries := []domain.AuditEntry{{
		AuditID: "aud-1", UserEmail: "pm@pmhub.dev", Action: domain.AuditUpdate,
		EntityType: "task", EntityID: "tsk-1", FieldChanged: "status",
		OldValue: "todo", NewValue: "done", CreatedAt: time.Now().UTC(),
	}}
	suite.mockHistory.On("EntityHistory", mock.Anything, suite.actor, "task", "tsk-1", 50).
		Return(entries, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/entities/task/tsk-1/history", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "status")
	suite.mockHistory.AssertExpectations(suite.T())
}

func (suite *EntityHandlerTestSuite) TestMissingTokenIs401() {
	req, err := http.NewRequest(http.MethodGet, "/api/v1/entities/task", nil)
	suite.Require().NoError(err)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockEntity.AssertNotCalled(suite.T(), "ListEntities",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EntityHandlerTestSuite) TestExpiredTokenIs401() {
	token, err := utils.GenerateJWT(suite.actor.UserID, suite.actor.Email,
		string(suite.actor.Role), suite.actor.DepartmentID,
		suite.cfg.JWTSecret, -time.Hour, suite.cfg.JWTIssuer)
	suite.Require().NoError(err)

	req, reqErr := http.NewRequest(http.MethodGet, "/api/v1/entities/task", nil)
	suite.Require().NoError(reqErr)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Contains(w.Body.String(), "expired")
}

func (suite *EntityHandlerTestSuite) TestRecentActivityFeed() {
	suite.mockHistory.On("RecentActivity", mock.Anything, suite.actor, 50).
		Return([]domain.AuditEntry{}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/audit/recent", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockHistory.AssertExpectations(suite.T())
}

func (suite *EntityHandlerTestSuite) TestTaskTransitionsFeed() {
	transitions := []domain.StatusTransition{{
		TransitionID: "trn-1", TaskID: "tsk-1",
		FromStatus: "todo", ToStatus: "done",
		ChangedBy: "pm@pmhub.dev", TransitionedAt: time.Now().UTC(),
	}}
	suite.mockHistory.On("TaskTransitions", mock.Anything, suite.actor, "tsk-1").
		Return(transitions, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/tasks/tsk-1/transitions", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "done")
}

func TestEntityHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(EntityHandlerTestSuite))
}
