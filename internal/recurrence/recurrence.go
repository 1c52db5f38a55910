// Package recurrence computes when a recurring task is next due.
package recurrence

import (
	"time"

	"upkeep/internal/model"
)

// AddInterval advances t by interval units of unit using calendar-field
// arithmetic, so "1 month" after Jan 31 normalizes forward (Mar 2/3) rather
// than clamping. Unrecognized units fall back to day addition; validation
// belongs to the caller.
func AddInterval(t time.Time, interval int, unit string) time.Time {
	switch unit {
	case model.UnitDay:
		return t.AddDate(0, 0, interval)
	case model.UnitWeek:
		return t.AddDate(0, 0, interval*7)
	case model.UnitMonth:
		return t.AddDate(0, interval, 0)
	case model.UnitYear:
		return t.AddDate(interval, 0, 0)
	default:
		return t.AddDate(0, 0, interval)
	}
}

// NextDue returns the next due time for a task last done at lastDoneAt.
// A nil lastDoneAt bases the computation on the current time.
func NextDue(lastDoneAt *time.Time, interval int, unit string) time.Time {
	base := time.Now().UTC()
	if lastDoneAt != nil {
		base = *lastDoneAt
	}
	return AddInterval(base, interval, unit)
}
