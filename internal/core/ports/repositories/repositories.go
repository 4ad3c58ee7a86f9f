package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	EntityStore    EntityStoreFacade
	AuditRepo      AuditRepositoryFacade
	TransitionRepo TransitionRepositoryFacade
	TeamMemberRepo TeamMemberReader
}
