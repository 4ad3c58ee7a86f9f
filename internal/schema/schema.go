package schema

import (
	"time"

	"github.com/pm-hub/pmhub_backend/internal/validation"
)

// ApprovalSpec describes an entity's approve/reject workflow: the statuses a
// decision may be made from and the columns that record who decided and when.
type ApprovalSpec struct {
	FromStatuses   []string
	ApprovedStatus string
	RejectedStatus string
	ByColumn       string
	DateColumn     string
}

// Schema is the full declaration of one entity type. The generic entity
// service, the store adapters, and the permission engine are all driven by
// these declarations; adding an entity type means adding a Schema here and a
// table in the migrations.
type Schema struct {
	// Type is the singular entity-type key, e.g. "risk".
	Type string
	// Label is the human-readable name used in result messages.
	Label string
	// Table and IDColumn are the only identifiers the store may interpolate
	// into SQL for this entity.
	Table    string
	IDColumn string

	// Fields declares the create/update form's composite validator.
	Fields      []validation.FieldSpec
	CrossChecks []validation.CrossCheck

	// NameField is the field quoted in success messages ("Risk 'X' created").
	NameField string

	// MutableColumns is the allowlist of columns an update may touch. Ids and
	// creation metadata are write-once and deliberately absent.
	MutableColumns []string

	// Status machine, when the entity has one. Transitions are not constrained
	// to adjacency: any status in the enum is reachable from any other.
	StatusField   string
	StatusEnum    []string
	InitialStatus string

	// Defaults supplies entity-specific server-side fields at create time.
	Defaults func(now time.Time) map[string]any
	// Derive computes server-side derived fields from the cleaned form
	// (e.g. risk_score = probability * impact), never trusted from the client.
	Derive func(cleaned map[string]any)

	// DepartmentColumn, when set, is the column multi-tenant reads are scoped
	// by for non-admin callers.
	DepartmentColumn string

	// EngineerMutable marks the entity types the lowest mutating role tier may
	// create/update/delete.
	EngineerMutable bool

	// TracksTransitions records from→to status history rows on UpdateStatus.
	TracksTransitions bool

	// Approval, when set, enables the Approve/Reject operations.
	Approval *ApprovalSpec

	mutableSet map[string]struct{}
}

// ColumnMutable reports whether an update may write the column.
func (s *Schema) ColumnMutable(column string) bool {
	_, ok := s.mutableSet[column]
	return ok
}

// HasField reports whether the column belongs to the entity's declared
// business field set.
func (s *Schema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Validate runs the entity's composite validator over raw form input,
// collecting every failure, then applies derived fields on success.
func (s *Schema) Validate(form map[string]any) (map[string]any, error) {
	cleaned, err := validation.ValidateAll(s.Fields, form, s.CrossChecks...)
	if err != nil {
		return nil, err
	}
	if s.Derive != nil {
		s.Derive(cleaned)
	}
	return cleaned, nil
}
