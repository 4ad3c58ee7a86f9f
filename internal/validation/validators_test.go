package validation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/validation"
)

func TestValidateString(t *testing.T) {
	v, err := validation.ValidateString("  hello  ", "name", 1, 10, true)
	require.NoError(t, err)
	assert.Equal(t, "hello", *v)

	_, err = validation.ValidateString("", "name", 1, 10, true)
	assert.Error(t, err)

	_, err = validation.ValidateString("   ", "name", 1, 10, true)
	assert.Error(t, err)

	v, err = validation.ValidateString(nil, "name", 1, 10, false)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = validation.ValidateString("toolongvalue", "name", 1, 5, true)
	assert.Error(t, err)

	_, err = validation.ValidateString(42, "name", 1, 10, true)
	assert.Error(t, err)
}

func TestValidateEnumCanonicalises(t *testing.T) {
	allowed := []string{"todo", "in_progress", "done"}

	v, err := validation.ValidateEnum("  DONE ", allowed, "status", true)
	require.NoError(t, err)
	assert.Equal(t, "done", *v)

	_, err = validation.ValidateEnum("doing", allowed, "status", true)
	require.Error(t, err)
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)
}

func TestValidateIntegerCoercion(t *testing.T) {
	min, max := 0, 100

	v, err := validation.ValidateInteger("42", "story_points", &min, &max, true)
	require.NoError(t, err)
	assert.Equal(t, 42, *v)

	v, err = validation.ValidateInteger(float64(7), "story_points", &min, &max, true)
	require.NoError(t, err)
	assert.Equal(t, 7, *v)

	_, err = validation.ValidateInteger(7.5, "story_points", &min, &max, true)
	assert.Error(t, err)

	_, err = validation.ValidateInteger(101, "story_points", &min, &max, true)
	assert.Error(t, err)

	_, err = validation.ValidateInteger(true, "story_points", &min, &max, true)
	assert.Error(t, err)
}

func TestValidateDate(t *testing.T) {
	v, err := validation.ValidateDate("2025-03-01", "start_date", true, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *v)

	// full timestamps are truncated to their date
	v, err = validation.ValidateDate("2025-03-01T15:04:05Z", "start_date", true, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *v)

	_, err = validation.ValidateDate("01/03/2025", "start_date", true, nil, nil)
	assert.Error(t, err)

	_, err = validation.ValidateDate(nil, "start_date", true, nil, nil)
	assert.Error(t, err)
}

func TestValidateDateRangeBlamesEndField(t *testing.T) {
	_, _, err := validation.ValidateDateRange("2025-06-01", "2025-05-01", "start_date", "end_date")
	require.Error(t, err)

	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "end_date", verr.Field)

	start, end, err := validation.ValidateDateRange("2025-05-01", "2025-05-01", "start_date", "end_date")
	require.NoError(t, err)
	assert.Equal(t, start, end)
}

func TestValidateEmail(t *testing.T) {
	v, err := validation.ValidateEmail("  Ava.Admin@PMHub.dev ", "email", true)
	require.NoError(t, err)
	assert.Equal(t, "ava.admin@pmhub.dev", *v)

	_, err = validation.ValidateEmail("not-an-email", "email", true)
	assert.Error(t, err)
}

func TestValidateUUIDAcceptsShortIDs(t *testing.T) {
	v, err := validation.ValidateUUID("prj-001", "project_id")
	require.NoError(t, err)
	assert.Equal(t, "prj-001", v)

	v, err = validation.ValidateUUID("550e8400-e29b-41d4-a716-446655440000", "project_id")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", v)

	_, err = validation.ValidateUUID("not valid!", "project_id")
	assert.Error(t, err)
}

func TestValidateScoreBounds(t *testing.T) {
	v, err := validation.ValidateScore(3, "probability")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = validation.ValidateScore(0, "probability")
	assert.Error(t, err)

	_, err = validation.ValidateScore(6, "probability")
	assert.Error(t, err)

	_, err = validation.ValidateScore(nil, "probability")
	assert.Error(t, err)
}

func TestValidateBooleanIsStrict(t *testing.T) {
	v, err := validation.ValidateBoolean(true, "is_active", true)
	require.NoError(t, err)
	assert.True(t, *v)

	_, err = validation.ValidateBoolean("true", "is_active", true)
	assert.Error(t, err)

	_, err = validation.ValidateBoolean(1, "is_active", true)
	assert.Error(t, err)
}

func TestValidateMoney(t *testing.T) {
	v, err := validation.ValidateMoney("1250.50", "budget_total", true)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("1250.50")))

	_, err = validation.ValidateMoney("-5", "budget_total", true)
	assert.Error(t, err)

	_, err = validation.ValidateMoney("abc", "budget_total", true)
	assert.Error(t, err)
}

func TestValidateAllCollectsEveryFailure(t *testing.T) {
	fields := []validation.FieldSpec{
		{Name: "title", Kind: validation.KindString, Required: true, MaxLen: 200},
		{Name: "priority", Kind: validation.KindEnum, Required: true, Enum: []string{"high", "low"}},
		{Name: "story_points", Kind: validation.KindInt},
	}

	_, err := validation.ValidateAll(fields, map[string]any{
		"priority":     "urgent",
		"story_points": "NaN",
	})
	require.Error(t, err)

	var verrs *apperrors.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Errors, 3)

	fieldMap := verrs.FieldMap()
	assert.Contains(t, fieldMap, "title")
	assert.Contains(t, fieldMap, "priority")
	assert.Contains(t, fieldMap, "story_points")
}

func TestValidateAllRunsCrossChecks(t *testing.T) {
	fields := []validation.FieldSpec{
		{Name: "start_date", Kind: validation.KindDate, Required: true},
		{Name: "end_date", Kind: validation.KindDate, Required: true},
	}
	check := func(cleaned map[string]any) *apperrors.ValidationError {
		start, _ := cleaned["start_date"].(time.Time)
		end, _ := cleaned["end_date"].(time.Time)
		if end.Before(start) {
			return apperrors.NewValidationError("end_date", "must be on or after start_date")
		}
		return nil
	}

	cleaned, err := validation.ValidateAll(fields, map[string]any{
		"start_date": "2025-01-01",
		"end_date":   "2025-02-01",
	}, check)
	require.NoError(t, err)
	assert.Len(t, cleaned, 2)

	_, err = validation.ValidateAll(fields, map[string]any{
		"start_date": "2025-02-01",
		"end_date":   "2025-01-01",
	}, check)
	require.Error(t, err)

	var verrs *apperrors.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "end_date", verrs.Errors[0].Field)
}
