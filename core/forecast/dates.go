package forecast

import "time"

// DateLayout is the ISO date format every forecast date is keyed by.
const DateLayout = "2006-01-02"

// DateWindow returns n consecutive calendar dates starting at now (inclusive),
// formatted as ISO YYYY-MM-DD strings. Dates are computed with local calendar
// semantics in now's location, not UTC-shifted.
func DateWindow(n int, now time.Time) []string {
	dates := make([]string, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, now.AddDate(0, 0, i).Format(DateLayout))
	}
	return dates
}

// lockCutoff returns the last locked date. Every date up to and including
// today + lockDays is closed for edits so kitchens can plan ahead.
// ISO date strings compare lexicographically, so callers check `date <= cutoff`.
func lockCutoff(now time.Time, lockDays int) string {
	return now.AddDate(0, 0, lockDays).Format(DateLayout)
}
