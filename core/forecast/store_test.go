package forecast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

var errStoreDown = errors.New("store unreachable")

// fakeStore is an in-memory Store with per-date failure injection. Rows are
// keyed by date only; tests sharing a store across users use distinct dates.
type fakeStore struct {
	mu         sync.Mutex
	rows       map[string][]Record
	failDelete map[string]bool
	failInsert map[string]bool
	failList   bool
	ops        []string // "delete:<date>" / "insert:<date>" in call order
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:       make(map[string][]Record),
		failDelete: make(map[string]bool),
		failInsert: make(map[string]bool),
	}
}

func (fs *fakeStore) ListRange(_ context.Context, _, start, end string) ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failList {
		return nil, errStoreDown
	}
	var out []Record
	for date, rows := range fs.rows {
		if date >= start && date <= end {
			out = append(out, rows...)
		}
	}
	return out, nil
}

func (fs *fakeStore) DeleteDay(_ context.Context, _, date string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.ops = append(fs.ops, "delete:"+date)
	if fs.failDelete[date] {
		return errStoreDown
	}
	delete(fs.rows, date)
	return nil
}

func (fs *fakeStore) InsertRows(_ context.Context, _ string, rows []Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}
	date := rows[0].Date
	fs.ops = append(fs.ops, "insert:"+date)
	if fs.failInsert[date] {
		return errStoreDown
	}
	fs.rows[date] = append(fs.rows[date], rows...)
	return nil
}

func (fs *fakeStore) dayRows(date string) []Record {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	rows := make([]Record, len(fs.rows[date]))
	copy(rows, fs.rows[date])
	return rows
}

func (fs *fakeStore) opLog() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	ops := make([]string, len(fs.ops))
	copy(ops, fs.ops)
	return ops
}

const (
	testUser        = "b2c7e9a4-0000-0000-0000-000000000001"
	testDefaultUnit = "DIRAD - DIRAD"
)

// testToday matches the dates used throughout the package tests:
// the window runs 2024-03-15..2024-04-13, dates up to 2024-03-17 are locked.
var testToday = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.Local)

func newTestSession(t *testing.T, store Store) *Session {
	t.Helper()
	sess := NewSession(testUser, store, Config{
		WindowDays:     30,
		LockWindowDays: 2,
		DefaultUnit:    testDefaultUnit,
		Now:            func() time.Time { return testToday },
	})
	t.Cleanup(sess.Close)
	return sess
}
