package forecast

import (
	"context"
	"sync"
	"time"
)

const (
	defaultDebounceDelay = 1500 * time.Millisecond
	defaultFlushTimeout  = 30 * time.Second
)

// Scheduler debounces auto-saves for one Session. Every ledger mutation
// restarts a single quiet-period timer; when the timer fires uninterrupted
// the session is flushed once. The session's own single-flight guard keeps
// a late timer from overlapping an in-flight flush.
type Scheduler struct {
	session *Session
	delay   time.Duration
	timeout time.Duration
	notify  func(Report, error)

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewScheduler wires a debounced auto-save loop to session. notify receives
// the outcome of every automatic flush; it may be nil.
func NewScheduler(session *Session, delay, timeout time.Duration, notify func(Report, error)) *Scheduler {
	if delay <= 0 {
		delay = defaultDebounceDelay
	}
	if timeout <= 0 {
		timeout = defaultFlushTimeout
	}
	sc := &Scheduler{
		session: session,
		delay:   delay,
		timeout: timeout,
		notify:  notify,
	}
	session.SetOnChange(sc.Poke)
	return sc
}

// Poke restarts the quiet-period timer. Called after every ledger mutation.
func (sc *Scheduler) Poke() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return
	}
	if sc.timer != nil {
		sc.timer.Stop()
	}
	sc.timer = time.AfterFunc(sc.delay, sc.fire)
}

func (sc *Scheduler) fire() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.timer = nil
	sc.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sc.timeout)
	defer cancel()
	report, err := sc.session.Flush(ctx)
	if sc.notify != nil && (!report.Empty() || err != nil) {
		sc.notify(report, err)
	}
}

// SaveNow flushes immediately, bypassing the quiet period. This is the
// manual retry entry point: a user who stopped editing would otherwise never
// see a failed date group retried, since only ledger mutations re-arm the
// timer.
func (sc *Scheduler) SaveNow(ctx context.Context) (Report, error) {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return Report{}, ErrSessionClosed
	}
	if sc.timer != nil {
		sc.timer.Stop()
		sc.timer = nil
	}
	sc.mu.Unlock()

	return sc.session.Flush(ctx)
}

// Close stops the pending timer so no flush dangles after teardown. Safe to
// call more than once.
func (sc *Scheduler) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.closed = true
	if sc.timer != nil {
		sc.timer.Stop()
		sc.timer = nil
	}
}
