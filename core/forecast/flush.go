package forecast

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

type (
	// DayOutcome is the result of flushing one date group.
	DayOutcome struct {
		Date      string
		Attempted int // queued changes in this group
		Err       error
	}

	// Report aggregates one flush run. Saved counts ledger entries, not date
	// groups: users are told "N alterations saved".
	Report struct {
		Attempted   int
		Saved       int
		SavedDates  []string
		FailedDates []string
		Outcomes    []DayOutcome
	}

	// daySnapshot freezes a date's full in-memory state at flush time.
	daySnapshot struct {
		meals DayMeals
		unit  string
	}
)

func (r Report) Empty() bool     { return r.Attempted == 0 }
func (r Report) Failed() int     { return r.Attempted - r.Saved }
func (r Report) AllFailed() bool { return r.Attempted > 0 && r.Saved == 0 }
func (r Report) Partial() bool   { return r.Saved > 0 && len(r.FailedDates) > 0 }

// Flush persists every queued change. Changes are grouped by date; each date
// group is flushed independently and concurrently as one delete followed by
// one insert of that date's selected meals, so the persisted rows for a date
// exactly mirror the in-memory state at flush time. A delete failure aborts
// that group's insert; one group's failure never aborts its siblings.
//
// Succeeded groups are pruned from the ledger; failed groups stay queued for
// the next cycle. Entries re-queued while the flush was in flight survive
// the pruning.
//
// Flush is single-flight: a call that arrives while another flush is in
// progress waits for it to finish instead of racing its delete+insert pairs.
func (s *Session) Flush(ctx context.Context) (Report, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Report{}, ErrSessionClosed
	}
	snap := s.ledger.Snapshot()
	if len(snap) == 0 {
		s.mu.Unlock()
		return Report{}, nil
	}
	epoch := s.epoch
	groups := make(map[string][]PendingChange)
	days := make(map[string]daySnapshot)
	for _, ch := range snap {
		groups[ch.Date] = append(groups[ch.Date], ch)
		if _, ok := days[ch.Date]; !ok {
			days[ch.Date] = daySnapshot{meals: s.selections[ch.Date], unit: s.units[ch.Date]}
		}
	}
	s.mu.Unlock()

	dates := make([]string, 0, len(groups))
	for date := range groups {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	// settle all date groups; no ordering between distinct dates
	outcomes := make([]DayOutcome, len(dates))
	var wg sync.WaitGroup
	for i, date := range dates {
		i, date := i, date
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = s.flushDay(ctx, date, len(groups[date]), days[date])
		}()
	}
	wg.Wait()

	report := Report{Attempted: len(snap), Outcomes: outcomes}
	for _, out := range outcomes {
		if out.Err != nil {
			report.FailedDates = append(report.FailedDates, out.Date)
			continue
		}
		report.Saved += out.Attempted
		report.SavedDates = append(report.SavedDates, out.Date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		// session superseded mid-flight; leave the ledger alone
		return report, ErrStaleSession
	}

	flushed := make(map[string]PendingChange, len(snap))
	for _, ch := range snap {
		flushed[ch.key()] = ch
	}
	saved := make(map[string]bool, len(report.SavedDates))
	for _, date := range report.SavedDates {
		saved[date] = true
	}
	s.ledger.RemoveMatching(func(ch PendingChange) bool {
		if !saved[ch.Date] {
			return false
		}
		orig, ok := flushed[ch.key()]
		return ok && orig == ch
	})
	return report, nil
}

// flushDay persists one date: delete everything, then insert one row per
// selected meal. No insert is ever attempted after a failed delete, so a
// failure can not produce duplicate rows.
func (s *Session) flushDay(ctx context.Context, date string, attempted int, day daySnapshot) DayOutcome {
	out := DayOutcome{Date: date, Attempted: attempted}

	if err := s.store.DeleteDay(ctx, s.userID, date); err != nil {
		out.Err = errors.Wrapf(err, "deleting forecasts for %s", date)
		return out
	}

	rows := make([]Record, 0, len(Meals))
	for _, meal := range day.meals.Selected() {
		rows = append(rows, Record{Date: date, Unit: day.unit, Meal: meal, WillAttend: true})
	}
	if len(rows) == 0 {
		// nothing selected: absence of rows is the representation
		return out
	}
	if err := s.store.InsertRows(ctx, s.userID, rows); err != nil {
		out.Err = errors.Wrapf(err, "inserting forecasts for %s", date)
	}
	return out
}
