package validation

import (
	"github.com/pm-hub/pmhub_backend/internal/apperrors"
)

// Kind selects which field validator a FieldSpec dispatches to.
type Kind int

const (
	KindString Kind = iota
	KindEnum
	KindInt
	KindFloat
	KindDate
	KindEmail
	KindID
	KindScore
	KindPercent
	KindBool
	KindMoney
)

// FieldSpec declares one entity field: its validator kind and constraints.
// The schema registry assembles these into per-entity composite validators.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Required bool
	MinLen   int // strings; 0 means 1
	MaxLen   int // strings; 0 means 500
	Min      *int
	Max      *int
	MinF     *float64
	MaxF     *float64
	Enum     []string
}

// CrossCheck validates a constraint spanning multiple cleaned fields
// (e.g. end_date >= start_date). It runs only after every field-level check
// and sees only fields that cleaned successfully.
type CrossCheck func(cleaned map[string]any) *apperrors.ValidationError

// CleanField runs the validator selected by the spec. A nil result with a nil
// error means the optional field was absent; callers leave it out of the
// cleaned map.
func CleanField(spec FieldSpec, value any) (any, error) {
	switch spec.Kind {
	case KindString:
		minLen, maxLen := spec.MinLen, spec.MaxLen
		if minLen == 0 {
			minLen = 1
		}
		if maxLen == 0 {
			maxLen = 500
		}
		v, err := ValidateString(value, spec.Name, minLen, maxLen, spec.Required)
		return deref(v), err
	case KindEnum:
		v, err := ValidateEnum(value, spec.Enum, spec.Name, spec.Required)
		return deref(v), err
	case KindInt:
		v, err := ValidateInteger(value, spec.Name, spec.Min, spec.Max, spec.Required)
		return deref(v), err
	case KindFloat:
		v, err := ValidateFloat(value, spec.Name, spec.MinF, spec.MaxF, spec.Required)
		return deref(v), err
	case KindDate:
		v, err := ValidateDate(value, spec.Name, spec.Required, nil, nil)
		return deref(v), err
	case KindEmail:
		v, err := ValidateEmail(value, spec.Name, spec.Required)
		return deref(v), err
	case KindID:
		if value == nil && !spec.Required {
			return nil, nil
		}
		v, err := ValidateUUID(value, spec.Name)
		if err != nil {
			return nil, err
		}
		return v, nil
	case KindScore:
		if value == nil && !spec.Required {
			return nil, nil
		}
		v, err := ValidateScore(value, spec.Name)
		if err != nil {
			return nil, err
		}
		return v, nil
	case KindPercent:
		v, err := ValidatePercentage(value, spec.Name, spec.Required)
		return deref(v), err
	case KindBool:
		v, err := ValidateBoolean(value, spec.Name, spec.Required)
		return deref(v), err
	case KindMoney:
		v, err := ValidateMoney(value, spec.Name, spec.Required)
		return deref(v), err
	default:
		return nil, apperrors.NewValidationError(spec.Name, "unknown field kind")
	}
}

// ValidateAll cleans every declared field, collecting every failure rather
// than stopping at the first, so one form submission surfaces all problems at
// once. On failure it returns a *apperrors.ValidationErrors listing each bad
// field; the partial cleaned map is still returned for cross-check reuse.
func ValidateAll(fields []FieldSpec, form map[string]any, crossChecks ...CrossCheck) (map[string]any, error) {
	cleaned := make(map[string]any, len(fields))
	var failures []*apperrors.ValidationError

	for _, spec := range fields {
		v, err := CleanField(spec, form[spec.Name])
		if err != nil {
			failures = append(failures, asFieldError(spec.Name, err))
			continue
		}
		if v != nil {
			cleaned[spec.Name] = v
		}
	}

	for _, check := range crossChecks {
		if ferr := check(cleaned); ferr != nil {
			failures = append(failures, ferr)
		}
	}

	if len(failures) > 0 {
		return cleaned, &apperrors.ValidationErrors{Errors: failures}
	}
	return cleaned, nil
}

func asFieldError(field string, err error) *apperrors.ValidationError {
	if ve, ok := err.(*apperrors.ValidationError); ok {
		return ve
	}
	return apperrors.NewValidationError(field, "%s", err.Error())
}

// deref converts a typed pointer result into the any/nil convention used by
// cleaned maps.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
