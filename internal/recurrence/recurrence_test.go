package recurrence

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddInterval(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Time
		interval int
		unit     string
		want     time.Time
	}{
		{"one day", date(2024, time.March, 15), 1, "day", date(2024, time.March, 16)},
		{"ten days", date(2024, time.March, 15), 10, "day", date(2024, time.March, 25)},
		{"two weeks", date(2024, time.March, 1), 2, "week", date(2024, time.March, 15)},
		{"one month", date(2024, time.February, 10), 1, "month", date(2024, time.March, 10)},
		{"six months", date(2024, time.January, 15), 6, "month", date(2024, time.July, 15)},
		{"one year", date(2024, time.May, 2), 1, "year", date(2025, time.May, 2)},
		{"leap day plus one year", date(2024, time.February, 29), 1, "year", date(2025, time.March, 1)},
		{"unknown unit falls back to days", date(2024, time.March, 15), 3, "fortnight", date(2024, time.March, 18)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddInterval(tt.base, tt.interval, tt.unit)
			if !got.Equal(tt.want) {
				t.Errorf("AddInterval(%v, %d, %q) = %v, want %v", tt.base, tt.interval, tt.unit, got, tt.want)
			}
		})
	}
}

func TestAddIntervalMonthEndOverflow(t *testing.T) {
	// Jan 31 + 1 month is "Feb 31", which normalizes to Mar 2 in a leap year.
	got := AddInterval(date(2024, time.January, 31), 1, "month")
	want := date(2024, time.March, 2)
	if !got.Equal(want) {
		t.Errorf("Jan 31 + 1 month = %v, want %v", got, want)
	}

	// Jan 31 + 3 months: April has 30 days, so "April 31" normalizes to May 1.
	got = AddInterval(date(2024, time.January, 31), 3, "month")
	want = date(2024, time.May, 1)
	if !got.Equal(want) {
		t.Errorf("Jan 31 + 3 months = %v, want %v", got, want)
	}
}

func TestNextDueWithLastDone(t *testing.T) {
	last := date(2024, time.January, 31)
	got := NextDue(&last, 3, "month")
	want := last.AddDate(0, 3, 0)
	if !got.Equal(want) {
		t.Errorf("NextDue = %v, want %v", got, want)
	}
}

func TestNextDueWithoutLastDone(t *testing.T) {
	before := time.Now().UTC()
	got := NextDue(nil, 2, "week")
	after := time.Now().UTC()

	if got.Before(before.AddDate(0, 0, 14)) || got.After(after.AddDate(0, 0, 14)) {
		t.Errorf("NextDue(nil, 2, week) = %v, want now + 14 days (between %v and %v)",
			got, before.AddDate(0, 0, 14), after.AddDate(0, 0, 14))
	}
}
