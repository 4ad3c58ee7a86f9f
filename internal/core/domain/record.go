package domain

import "time"

// System field names shared by every entity table.
const (
	FieldCreatedAt = "created_at"
	FieldCreatedBy = "created_by"
	FieldUpdatedAt = "updated_at"
	FieldUpdatedBy = "updated_by"
	FieldIsDeleted = "is_deleted"
	FieldDeletedAt = "deleted_at"
	FieldDeletedBy = "deleted_by"
)

// VersionLayout is the canonical string form of a record's updated_at
// timestamp. The Presentation Layer echoes this string back as the
// optimistic-lock precondition on update.
const VersionLayout = time.RFC3339Nano

// Record is one entity row: business fields plus the system fields above.
// Values are the validator library's cleaned types (string, int64, float64,
// bool, time.Time, decimal.Decimal).
type Record map[string]any

// Clone returns a shallow copy. Stores hand out clones so callers cannot
// mutate persisted state behind the version check.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// GetString returns the named field as a string, or "" when absent or not a
// string.
func (r Record) GetString(field string) string {
	s, _ := r[field].(string)
	return s
}

// GetTime returns the named field as a time.Time, or the zero time.
func (r Record) GetTime(field string) time.Time {
	t, _ := r[field].(time.Time)
	return t
}

// IsDeleted reports whether the soft-delete flag is set.
func (r Record) IsDeleted() bool {
	b, _ := r[FieldIsDeleted].(bool)
	return b
}

// Version returns the record's current version token: updated_at rendered in
// VersionLayout. Empty when the record has never been written.
func (r Record) Version() string {
	t := r.GetTime(FieldUpdatedAt)
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(VersionLayout)
}

// FormatVersion renders a timestamp as a version token.
func FormatVersion(t time.Time) string {
	return t.UTC().Format(VersionLayout)
}
