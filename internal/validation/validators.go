// Package validation holds the stateless field validators shared by the
// service layer. Each validator turns arbitrary external input into a typed,
// constrained value or fails with a field-attributed error. Optional fields
// that are absent (nil, or empty after trimming) yield a nil pointer and no
// error.
package validation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Short domain-style identifiers, e.g. "prj-001", "sp-004".
var shortIDRe = regexp.MustCompile(`^[a-z]{1,10}-\d{1,6}$`)

// Simplified RFC 5322 email shape.
var emailRe = regexp.MustCompile(
	`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+` +
		`@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
		`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

const maxEmailLength = 254

// ValidateString trims and length-checks a string field. Empty after trimming
// counts as absent.
func ValidateString(value any, field string, minLen, maxLen int, required bool) (*string, error) {
	if value == nil {
		if required {
			return nil, apperrors.NewValidationError(field, "is required")
		}
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, apperrors.NewValidationError(field, "must be a string")
	}
	stripped := strings.TrimSpace(s)
	if stripped == "" {
		if required {
			return nil, apperrors.NewValidationError(field, "must not be empty")
		}
		return nil, nil
	}
	if n := len([]rune(stripped)); n < minLen {
		return nil, apperrors.NewValidationError(field, "must be at least %d character(s), got %d", minLen, n)
	} else if n > maxLen {
		return nil, apperrors.NewValidationError(field, "must be at most %d character(s), got %d", maxLen, n)
	}
	return &stripped, nil
}

// ValidateEnum checks case-insensitive membership against a fixed set and
// returns the canonical lowercase form.
func ValidateEnum(value any, allowed []string, field string, required bool) (*string, error) {
	if value == nil {
		if required {
			return nil, apperrors.NewValidationError(field, "is required")
		}
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, apperrors.NewValidationError(field, "must be a string")
	}
	normalised := strings.ToLower(strings.TrimSpace(s))
	if normalised == "" {
		if required {
			return nil, apperrors.NewValidationError(field, "must not be empty")
		}
		return nil, nil
	}
	for _, v := range allowed {
		if v == normalised {
			return &normalised, nil
		}
	}
	sortedVals := append([]string(nil), allowed...)
	sort.Strings(sortedVals)
	return nil, apperrors.NewValidationError(field, "must be one of [%s], got '%s'",
		strings.Join(sortedVals, ", "), normalised)
}

// ValidateInteger coerces and range-checks an integer. String input is
// accepted; booleans are explicitly rejected because they silently coerce to
// 0/1 in loosely typed form payloads.
func ValidateInteger(value any, field string, minVal, maxVal *int, required bool) (*int, error) {
	if value == nil {
		if required {
			return nil, apperrors.NewValidationError(field, "is required")
		}
		return nil, nil
	}
	var intVal int
	switch v := value.(type) {
	case bool:
		return nil, apperrors.NewValidationError(field, "must be an integer, got boolean")
	case int:
		intVal = v
	case int32:
		intVal = int(v)
	case int64:
		intVal = int(v)
	case float64:
		if v != float64(int(v)) {
			return nil, apperrors.NewValidationError(field, "must be an integer, got '%v'", v)
		}
		intVal = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, apperrors.NewValidationError(field, "must be an integer, got '%s'", v)
		}
		intVal = parsed
	default:
		return nil, apperrors.NewValidationError(field, "must be an integer, got '%v'", value)
	}
	if minVal != nil && intVal < *minVal {
		return nil, apperrors.NewValidationError(field, "must be >= %d, got %d", *minVal, intVal)
	}
	if maxVal != nil && intVal > *maxVal {
		return nil, apperrors.NewValidationError(field, "must be <= %d, got %d", *maxVal, intVal)
	}
	return &intVal, nil
}

// ValidateFloat coerces and range-checks a numeric value.
func ValidateFloat(value any, field string, minVal, maxVal *float64, required bool) (*float64, error) {
	if value == nil {
		if required {
			return nil, apperrors.NewValidationError(field, "is required")
		}
		return nil, nil
	}
	var floatVal float64
	switch v := value.(type) {
	case bool:
		return nil, apperrors.NewValidationError(field, "must be a number, got boolean")
	case int:
		floatVal = float64(v)
	case int64:
		floatVal = float64(v)
	case float32:
		floatVal = float64(v)
	case float64:
		floatVal = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, apperrors.NewValidationError(field, "must be a number, got '%s'", v)
		}
		floatVal = parsed
	default:
		return nil, apperrors.NewValidationError(field, "must be a number, got '%v'", value)
	}
	if minVal != nil && floatVal < *minVal {
		return nil, apperrors.NewValidationError(field, "must be >= %v, got %v", *minVal, floatVal)
	}
	if maxVal != nil && floatVal > *maxVal {
		return nil, apperrors.NewValidationError(field, "must be <= %v, got %v", *maxVal, floatVal)
	}
	return &floatVal, nil
}

const dateLayout = "2006-01-02"

// ValidateDate accepts a time.Time (truncated to its date) or an ISO-8601
// YYYY-MM-DD string. Anything else fails.
func ValidateDate(value any, field string, required bool, minDate, maxDate *time.Time) (*time.Time, error) {
	if value == nil {
		if required {
			return nil, apperrors.NewValidationError(field, "is required")
		}
		return nil, nil
	}
	var dateVal time.Time
	switch v := value.(type) {
	case time.Time:
		dateVal = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
	case string:
		stripped := strings.TrimSpace(v)
		if stripped == "" {
			if required {
				return nil, apperrors.NewValidationError(field, "is required")
			}
			return nil, nil
		}
		parsed, err := time.Parse(dateLayout, stripped)
		if err != nil {
			// Allow a full timestamp, truncated to its date.
			ts, tsErr := time.Parse(time.RFC3339, stripped)
			if tsErr != nil {
				return nil, apperrors.NewValidationError(field,
					"invalid date format: '%s' (expected YYYY-MM-DD)", stripped)
			}
			parsed = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		}
		dateVal = parsed
	default:
		return nil, apperrors.NewValidationError(field, "must be a date or ISO date string, got %T", value)
	}
	if minDate != nil && dateVal.Before(*minDate) {
		return nil, apperrors.NewValidationError(field, "must be on or after %s", minDate.Format(dateLayout))
	}
	if maxDate != nil && dateVal.After(*maxDate) {
		return nil, apperrors.NewValidationError(field, "must be on or before %s", maxDate.Format(dateLayout))
	}
	return &dateVal, nil
}

// ValidateDateRange validates both ends individually, then requires
// start <= end, attributing a range violation to the end field.
func ValidateDateRange(start, end any, startField, endField string) (time.Time, time.Time, error) {
	validatedStart, err := ValidateDate(start, startField, true, nil, nil)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	validatedEnd, err := ValidateDate(end, endField, true, nil, nil)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if validatedStart.After(*validatedEnd) {
		return time.Time{}, time.Time{}, apperrors.NewValidationError(endField,
			"must be on or after %s (%s), got %s",
			startField, validatedStart.Format(dateLayout), validatedEnd.Format(dateLayout))
	}
	return *validatedStart, *validatedEnd, nil
}

// ValidateEmail checks a simplified RFC 5322 shape, case-normalised,
// length-capped at 254.
func ValidateEmail(value any, field string, required bool) (*string, error) {
	if value == nil {
		if required {
			return nil, apperrors.NewValidationError(field, "is required")
		}
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, apperrors.NewValidationError(field, "must be a string")
	}
	stripped := strings.ToLower(strings.TrimSpace(s))
	if stripped == "" {
		if required {
			return nil, apperrors.NewValidationError(field, "must not be empty")
		}
		return nil, nil
	}
	if len(stripped) > maxEmailLength {
		return nil, apperrors.NewValidationError(field, "must be at most %d characters", maxEmailLength)
	}
	if !emailRe.MatchString(stripped) {
		return nil, apperrors.NewValidationError(field, "invalid email format: '%s'", stripped)
	}
	return &stripped, nil
}

// ValidateUUID accepts either a canonical UUID or a short domain-style
// identifier like "prj-001".
func ValidateUUID(value any, field string) (string, error) {
	if value == nil {
		return "", apperrors.NewValidationError(field, "is required")
	}
	s, ok := value.(string)
	if !ok {
		return "", apperrors.NewValidationError(field, "must be a string")
	}
	stripped := strings.TrimSpace(s)
	if stripped == "" {
		return "", apperrors.NewValidationError(field, "must not be empty")
	}
	if shortIDRe.MatchString(stripped) {
		return stripped, nil
	}
	parsed, err := uuid.Parse(stripped)
	if err != nil {
		return "", apperrors.NewValidationError(field,
			"invalid identifier format: '%s' (expected UUID or short ID like 'prj-001')", stripped)
	}
	return parsed.String(), nil
}

// ValidateScore checks a 1–5 score (risk probability / impact). Always
// required.
func ValidateScore(value any, field string) (int, error) {
	min, max := 1, 5
	v, err := ValidateInteger(value, field, &min, &max, true)
	if err != nil {
		return 0, err
	}
	return *v, nil
}

// ValidatePercentage checks a 0–100 float.
func ValidatePercentage(value any, field string, required bool) (*float64, error) {
	min, max := 0.0, 100.0
	return ValidateFloat(value, field, &min, &max, required)
}

// ValidateBoolean is a strict boolean check, no truthy coercion.
func ValidateBoolean(value any, field string, required bool) (*bool, error) {
	if value == nil {
		if required {
			return nil, apperrors.NewValidationError(field, "is required")
		}
		return nil, nil
	}
	b, ok := value.(bool)
	if !ok {
		return nil, apperrors.NewValidationError(field, "must be a boolean, got %T", value)
	}
	return &b, nil
}

// ValidateMoney parses a non-negative monetary amount (budgets, spends) into
// a decimal, quantised to two places. Accepts numeric input or a decimal
// string.
func ValidateMoney(value any, field string, required bool) (*decimal.Decimal, error) {
	if value == nil {
		if required {
			return nil, apperrors.NewValidationError(field, "is required")
		}
		return nil, nil
	}
	var amount decimal.Decimal
	switch v := value.(type) {
	case bool:
		return nil, apperrors.NewValidationError(field, "must be an amount, got boolean")
	case decimal.Decimal:
		amount = v
	case int:
		amount = decimal.NewFromInt(int64(v))
	case int64:
		amount = decimal.NewFromInt(v)
	case float64:
		amount = decimal.NewFromFloat(v)
	case string:
		stripped := strings.TrimSpace(v)
		if stripped == "" {
			if required {
				return nil, apperrors.NewValidationError(field, "is required")
			}
			return nil, nil
		}
		parsed, err := decimal.NewFromString(stripped)
		if err != nil {
			return nil, apperrors.NewValidationError(field, "must be an amount, got '%s'", v)
		}
		amount = parsed
	default:
		return nil, apperrors.NewValidationError(field, "must be an amount, got %T", value)
	}
	if amount.IsNegative() {
		return nil, apperrors.NewValidationError(field, "must be >= 0, got %s", amount.String())
	}
	rounded := amount.Round(2)
	return &rounded, nil
}
