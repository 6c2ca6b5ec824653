package forecast

import (
	"context"
	"fmt"
	"sync"

	"github.com/userNanni/sisub-sub000/core"
)

type (
	// Handle bundles one user's live session with its auto-save scheduler
	// and remembers the outcome of the last flush for user-facing messaging.
	Handle struct {
		Session   *Session
		Scheduler *Scheduler

		mu         sync.Mutex
		lastReport Report
		lastErr    error
	}

	// Manager owns the per-user forecast sessions of the API tier. Sessions
	// are created and hydrated on first use and torn down on logout; they are
	// never shared between users.
	Manager struct {
		store  Store
		conf   core.ForecastConfig
		logger core.Logger

		mu       sync.Mutex
		sessions map[string]*Handle
	}
)

func NewManager(store Store, conf core.ForecastConfig, logger core.Logger) *Manager {
	return &Manager{
		store:    store,
		conf:     conf,
		logger:   logger,
		sessions: make(map[string]*Handle),
	}
}

// Session returns the live handle for userID, creating and hydrating one if
// needed.
func (m *Manager) Session(ctx context.Context, userID string) (*Handle, error) {
	m.mu.Lock()
	if h, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return h, nil
	}
	m.mu.Unlock()

	sess := NewSession(userID, m.store, Config{
		WindowDays:     m.conf.WindowDays,
		LockWindowDays: m.conf.LockWindowDays,
		DefaultUnit:    m.conf.DefaultUnit,
	})
	if err := sess.Hydrate(ctx); err != nil {
		return nil, err
	}

	h := &Handle{Session: sess}
	h.Scheduler = NewScheduler(sess, m.conf.DebounceDelay, m.conf.FlushTimeout, func(r Report, err error) {
		h.setLast(r, err)
		if err != nil {
			m.logger.Error(fmt.Sprintf("auto-save for user %s: %v", userID, err), err)
		} else if len(r.FailedDates) > 0 {
			m.logger.Warn(fmt.Sprintf("auto-save for user %s: %d of %d changes failed", userID, r.Failed(), r.Attempted))
		}
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[userID]; ok {
		// lost the race; drop ours
		h.Scheduler.Close()
		sess.Close()
		return existing, nil
	}
	m.sessions[userID] = h
	return h, nil
}

// Close tears down userID's session, stopping its timer first so no flush
// dangles. In-flight results are invalidated by the session's epoch bump.
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	h, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		h.Scheduler.Close()
		h.Session.Close()
	}
}

// SaveAll flushes every live session's queued changes, best effort. Called
// during server shutdown before CloseAll so edits whose debounce timer never
// fired are not abandoned; a failed flush is logged and skipped.
func (m *Manager) SaveAll(ctx context.Context) {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.sessions))
	for _, h := range m.sessions {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		if _, err := h.SaveNow(ctx); err != nil {
			m.logger.Error(fmt.Sprintf("shutdown flush for user %s: %v", h.Session.UserID(), err), err)
		}
	}
}

// CloseAll tears down every live session (server shutdown).
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Handle)
	m.mu.Unlock()

	for _, h := range sessions {
		h.Scheduler.Close()
		h.Session.Close()
	}
}

func (h *Handle) setLast(r Report, err error) {
	h.mu.Lock()
	h.lastReport = r
	h.lastErr = err
	h.mu.Unlock()
}

// SaveNow flushes immediately and records the outcome.
func (h *Handle) SaveNow(ctx context.Context) (Report, error) {
	r, err := h.Scheduler.SaveNow(ctx)
	if !r.Empty() || err != nil {
		h.setLast(r, err)
	}
	return r, err
}

// LastReport returns the outcome of the most recent automatic flush.
func (h *Handle) LastReport() (Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastReport, h.lastErr
}
