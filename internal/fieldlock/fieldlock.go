// Package fieldlock implements the field-lock engine (spec §4.8,
// component K): a thin policy that gates automation writes to metadata
// fields and asset slots behind the entity's locked_fields array. Grounded
// on the teacher's media.Models LockedFields/MetadataLocked columns
// (internal/media/models.go), generalized from a single metadata_locked
// bool into the per-field wildcard policy §4.8 describes.
package fieldlock

// Wildcard is the locked_fields sentinel that locks every field at once.
const Wildcard = "*"

// Locker is satisfied by any entity carrying a locked_fields array, such as
// models.Movie.
type Locker interface {
	IsFieldLocked(field string) bool
}

// CanAutomationWrite applies L1/L2 (spec §4.8): an automation path may
// write field only if it isn't locked, or force is explicitly set. force
// must never default to true for scheduled work — callers pass it through
// from an explicit user action only.
func CanAutomationWrite(entity Locker, field string, force bool) bool {
	if force {
		return true
	}
	return !entity.IsFieldLocked(field)
}

// LockedFieldsAfterUserWrite returns the locked_fields set that should be
// persisted after a user-initiated write to field (L1: "any user-initiated
// write sets the corresponding lock true").
func LockedFieldsAfterUserWrite(current []string, field string) []string {
	for _, f := range current {
		if f == field || f == Wildcard {
			return current
		}
	}
	return append(append([]string{}, current...), field)
}

// LockedFieldsAfterReset clears field's lock (the "reset to provider"
// action of L3); it never mutates the field's current value, only the lock
// state, leaving the caller to enqueue the enrichment job that is allowed
// to rewrite it.
func LockedFieldsAfterReset(current []string, field string) []string {
	if containsWildcard(current) {
		// A wildcard lock can't be narrowed field-by-field; resetting a
		// single field under "*" has no defined effect (§4.8 doesn't cover
		// this case), so the caller must clear the wildcard explicitly first.
		return current
	}
	out := make([]string, 0, len(current))
	for _, f := range current {
		if f != field {
			out = append(out, f)
		}
	}
	return out
}

func containsWildcard(fields []string) bool {
	for _, f := range fields {
		if f == Wildcard {
			return true
		}
	}
	return false
}

// IsLocked checks a raw locked_fields slice directly, for callers (e.g. the
// repository layer) that don't have a Locker implementation handy.
func IsLocked(lockedFields []string, field string) bool {
	for _, f := range lockedFields {
		if f == field || f == Wildcard {
			return true
		}
	}
	return false
}
