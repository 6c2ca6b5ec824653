package forecast

import "sort"

// Ledger holds every change not yet known to be durable, keyed by
// (date, meal). It is the single source of truth for "what is still pending":
// the UI's pending counter is simply Len.
//
// A Ledger is owned by exactly one Session and is not safe for concurrent
// use on its own; the Session serializes access.
type Ledger struct {
	entries map[string]PendingChange
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]PendingChange)}
}

// Upsert records a change, replacing any queued change for the same
// (date, meal). The latest value always wins.
func (l *Ledger) Upsert(ch PendingChange) {
	l.entries[ch.key()] = ch
}

func (l *Ledger) Get(date string, meal Meal) (PendingChange, bool) {
	ch, ok := l.entries[PendingChange{Date: date, Meal: meal}.key()]
	return ch, ok
}

func (l *Ledger) Len() int { return len(l.entries) }

// RemoveByDates drops every entry whose date is in dates.
func (l *Ledger) RemoveByDates(dates ...string) {
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	l.RemoveMatching(func(ch PendingChange) bool { return set[ch.Date] })
}

// RemoveMatching drops every entry for which match returns true.
func (l *Ledger) RemoveMatching(match func(PendingChange) bool) {
	for key, ch := range l.entries {
		if match(ch) {
			delete(l.entries, key)
		}
	}
}

// Snapshot returns the queued changes ordered by date, then serving order.
// The returned slice is detached from the ledger.
func (l *Ledger) Snapshot() []PendingChange {
	snap := make([]PendingChange, 0, len(l.entries))
	for _, ch := range l.entries {
		snap = append(snap, ch)
	}
	sort.Slice(snap, func(i, j int) bool {
		if snap[i].Date != snap[j].Date {
			return snap[i].Date < snap[j].Date
		}
		return mealRank[snap[i].Meal] < mealRank[snap[j].Meal]
	})
	return snap
}
