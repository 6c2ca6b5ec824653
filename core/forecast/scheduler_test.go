package forecast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// reportSink collects scheduler notifications.
type reportSink struct {
	mu      sync.Mutex
	reports []Report
	errs    []error
}

func (rs *reportSink) notify(r Report, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.reports = append(rs.reports, r)
	rs.errs = append(rs.errs, err)
}

func (rs *reportSink) count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.reports)
}

func (rs *reportSink) last() (Report, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.reports) == 0 {
		return Report{}, false
	}
	return rs.reports[len(rs.reports)-1], true
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSchedulerFlushesAfterQuietPeriod(t *testing.T) {
	store := newFakeStore()
	sess := newTestSession(t, store)
	sink := &reportSink{}
	sc := NewScheduler(sess, 30*time.Millisecond, time.Second, sink.notify)
	defer sc.Close()

	_ = sess.ToggleMeal("2024-03-20", MealCafe)

	waitFor(t, func() bool { return sink.count() == 1 }, "auto-save never fired")
	report, _ := sink.last()
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 0, sess.PendingCount())
}

func TestSchedulerDebouncesBursts(t *testing.T) {
	store := newFakeStore()
	sess := newTestSession(t, store)
	sink := &reportSink{}
	sc := NewScheduler(sess, 60*time.Millisecond, time.Second, sink.notify)
	defer sc.Close()

	// a burst of edits inside the quiet period collapses into one flush
	for _, meal := range []Meal{MealCafe, MealAlmoco, MealJanta} {
		_ = sess.ToggleMeal("2024-03-20", meal)
		time.Sleep(10 * time.Millisecond)
	}

	waitFor(t, func() bool { return sink.count() >= 1 }, "auto-save never fired")
	time.Sleep(100 * time.Millisecond) // would catch a second, spurious flush
	assert.Equal(t, 1, sink.count())

	report, _ := sink.last()
	assert.Equal(t, 3, report.Saved)
}

func TestSchedulerCloseCancelsPendingTimer(t *testing.T) {
	store := newFakeStore()
	sess := newTestSession(t, store)
	sink := &reportSink{}
	sc := NewScheduler(sess, 30*time.Millisecond, time.Second, sink.notify)

	_ = sess.ToggleMeal("2024-03-20", MealCafe)
	sc.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, sink.count(), "no flush may dangle after Close")
	assert.Empty(t, store.opLog())
}

func TestSchedulerSaveNow(t *testing.T) {
	store := newFakeStore()
	sess := newTestSession(t, store)
	sc := NewScheduler(sess, time.Hour, time.Second, nil) // debounce effectively off
	defer sc.Close()

	_ = sess.ToggleMeal("2024-03-20", MealCafe)

	report, err := sc.SaveNow(context.Background())
	if err != nil {
		t.Fatalf("SaveNow() error = %v", err)
	}
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 0, sess.PendingCount())
}

func TestSchedulerSaveNowAfterCloseIsRejected(t *testing.T) {
	sess := newTestSession(t, newFakeStore())
	sc := NewScheduler(sess, time.Hour, time.Second, nil)
	sc.Close()

	_, err := sc.SaveNow(context.Background())
	assert.Equal(t, ErrSessionClosed, err)
}

func TestSchedulerRetriesFailedGroupAfterNextEdit(t *testing.T) {
	store := newFakeStore()
	sess := newTestSession(t, store)
	sink := &reportSink{}
	sc := NewScheduler(sess, 30*time.Millisecond, time.Second, sink.notify)
	defer sc.Close()

	store.failDelete["2024-03-20"] = true
	_ = sess.ToggleMeal("2024-03-20", MealCafe)
	waitFor(t, func() bool { return sink.count() == 1 }, "first auto-save never fired")
	assert.Equal(t, 1, sess.PendingCount())

	store.mu.Lock()
	store.failDelete["2024-03-20"] = false
	store.mu.Unlock()

	// an edit elsewhere re-arms the timer; the failed group rides along
	_ = sess.ToggleMeal("2024-03-21", MealJanta)
	waitFor(t, func() bool { return sink.count() == 2 }, "retry auto-save never fired")
	assert.Equal(t, 0, sess.PendingCount())
	assert.Len(t, store.dayRows("2024-03-20"), 1)
	assert.Len(t, store.dayRows("2024-03-21"), 1)
}
