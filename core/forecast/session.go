package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type (
	// Config tunes one editing session. The zero value is completed with
	// sensible defaults by NewSession.
	Config struct {
		WindowDays     int
		LockWindowDays int
		DefaultUnit    string
		Now            func() time.Time // injectable clock
	}

	// Session is one user's in-memory forecast editing state over the rolling
	// date window: the optimistic per-date meal selections and unit
	// assignments, plus the ledger of changes not yet flushed to the Store.
	//
	// A Session is owned by a single logical user session. All methods are
	// safe for concurrent use, but sessions are never shared across users.
	Session struct {
		userID string
		store  Store
		cfg    Config

		mu         sync.Mutex
		dates      []string
		selections map[string]DayMeals
		units      map[string]string
		ledger     *Ledger
		epoch      uint64 // bumped whenever in-flight results must be dropped
		closed     bool

		flushMu sync.Mutex // single-flight guard; see Flush

		onChange func()
	}
)

const (
	defaultWindowDays = 30
	defaultLockDays   = 2
)

func (cfg Config) withDefaults() Config {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = defaultWindowDays
	}
	if cfg.LockWindowDays == 0 {
		cfg.LockWindowDays = defaultLockDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// NewSession creates a session for userID over a fresh date window. Every
// date starts with no meals selected and the configured default unit;
// Hydrate overlays persisted forecasts.
func NewSession(userID string, store Store, cfg Config) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		userID:     userID,
		store:      store,
		cfg:        cfg,
		dates:      DateWindow(cfg.WindowDays, cfg.Now()),
		selections: make(map[string]DayMeals, cfg.WindowDays),
		units:      make(map[string]string, cfg.WindowDays),
		ledger:     NewLedger(),
	}
	for _, date := range s.dates {
		s.selections[date] = DayMeals{}
		s.units[date] = cfg.DefaultUnit
	}
	return s
}

func (s *Session) UserID() string { return s.userID }

// SetOnChange registers a hook invoked after every ledger mutation,
// typically the auto-save scheduler's Poke.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) notifyChange() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Dates returns the session's date window in order.
func (s *Session) Dates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	dates := make([]string, len(s.dates))
	copy(dates, s.dates)
	return dates
}

// Day returns the current selections and unit for a date in the window.
func (s *Session) Day(date string) (DayMeals, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dm, ok := s.selections[date]
	if !ok {
		return DayMeals{}, "", false
	}
	return dm, s.units[date], true
}

// PendingCount reports how many changes are queued but not yet durable.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Len()
}

// PendingChanges returns a snapshot of the queued changes.
func (s *Session) PendingChanges() []PendingChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

func (s *Session) locked(date string) bool {
	return date <= lockCutoff(s.cfg.Now(), s.cfg.LockWindowDays)
}

// Locked reports whether a date is inside the lock window.
func (s *Session) Locked(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked(date)
}

// ToggleMeal flips one meal on one date and queues the change. Dates inside
// the lock window are rejected with ErrDateLocked; callers decide whether to
// surface the rejection.
func (s *Session) ToggleMeal(date string, meal Meal) error {
	if !meal.Valid() {
		return ErrUnknownMeal
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	cur, ok := s.selections[date]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownDate
	}
	if s.locked(date) {
		s.mu.Unlock()
		return ErrDateLocked
	}

	next := cur.With(meal, !cur.Get(meal))
	s.selections[date] = next
	s.ledger.Upsert(PendingChange{Date: date, Meal: meal, Value: next.Get(meal), Unit: s.units[date]})
	s.mu.Unlock()

	s.notifyChange()
	return nil
}

// SetUnit assigns the unit a date's forecast is attributed to. Every meal
// currently selected on that date gets its queued change re-emitted with the
// new unit, so an already queued change never flushes with a stale unit.
func (s *Session) SetUnit(date, unit string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	dm, ok := s.selections[date]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownDate
	}
	if s.locked(date) {
		s.mu.Unlock()
		return ErrDateLocked
	}
	if s.units[date] == unit {
		s.mu.Unlock()
		return nil
	}

	s.units[date] = unit
	changed := false
	for _, meal := range Meals {
		if dm.Get(meal) {
			s.ledger.Upsert(PendingChange{Date: date, Meal: meal, Value: true, Unit: unit})
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notifyChange()
	}
	return nil
}

// Hydrate loads persisted forecasts for the window and overlays them on the
// session. Results are dropped if the session identity changed while the
// load was in flight (epoch token). The ledger is reset: hydrating discards
// anything still queued.
func (s *Session) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	epoch := s.epoch
	start, end := s.dates[0], s.dates[len(s.dates)-1]
	s.mu.Unlock()

	records, err := s.store.ListRange(ctx, s.userID, start, end)
	if err != nil {
		return errors.Wrap(err, "loading persisted forecasts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrStaleSession
	}

	for _, date := range s.dates {
		s.selections[date] = DayMeals{}
		s.units[date] = s.cfg.DefaultUnit
	}
	for _, rec := range records {
		dm, ok := s.selections[rec.Date]
		if !ok || !rec.WillAttend { // dates outside the window are ignored
			continue
		}
		s.selections[rec.Date] = dm.With(rec.Meal, true)
		s.units[rec.Date] = rec.Unit
	}
	s.ledger = NewLedger()
	return nil
}

// Close tears the session down: pending timers must already be stopped by
// the owner (see Scheduler.Close); any in-flight load or flush result is
// invalidated via the epoch bump.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.epoch++
	s.mu.Unlock()
}
