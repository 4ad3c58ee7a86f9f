package services

import (
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
	portssvc "github.com/pm-hub/pmhub_backend/internal/core/ports/services"
	"github.com/pm-hub/pmhub_backend/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Change history first since the entity service records through it.
	history := NewChangeHistoryService(repos.AuditRepo, repos.TransitionRepo)
	container.ChangeHistory = history

	container.Entity = NewEntityService(
		repos.EntityStore,
		WithHistoryRecorder(history),
		WithTransitionRepository(repos.TransitionRepo),
	)

	container.Auth = NewAuthService(cfg, repos.TeamMemberRepo)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.EntitySvcFacade  = (*entityServiceImpl)(nil)
	_ portssvc.ChangeHistorySvc = (*changeHistoryServiceImpl)(nil)
	_ portssvc.AuthSvc          = (*authServiceImpl)(nil)
)
