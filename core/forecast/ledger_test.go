package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerUpsertLatestWins(t *testing.T) {
	l := NewLedger()

	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealCafe, Value: true, Unit: "DIRAD - DIRAD"})
	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealCafe, Value: false, Unit: "DIRAD - DIRAD"})
	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealAlmoco, Value: true, Unit: "DIRAD - DIRAD"})

	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	ch, ok := l.Get("2024-03-20", MealCafe)
	if !ok {
		t.Fatal("Get() entry not found")
	}
	if ch.Value {
		t.Error("Get() value = true, want false (latest wins)")
	}
}

func TestLedgerKeyUniqueness(t *testing.T) {
	l := NewLedger()

	// hammer the same keys from varying values/units; at most one entry per
	// (date, meal) must survive
	units := []string{"DIRAD - DIRAD", "GAP-RJ - HCA", "DIRAD - PAME"}
	for i := 0; i < 50; i++ {
		for _, meal := range Meals {
			l.Upsert(PendingChange{Date: "2024-03-21", Meal: meal, Value: i%2 == 0, Unit: units[i%len(units)]})
		}
	}

	assert.Equal(t, len(Meals), l.Len())
	seen := make(map[string]bool)
	for _, ch := range l.Snapshot() {
		key := ch.Date + "|" + string(ch.Meal)
		assert.False(t, seen[key], "duplicate ledger key %s", key)
		seen[key] = true
	}
}

func TestLedgerRemoveByDates(t *testing.T) {
	l := NewLedger()
	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealCafe, Value: true})
	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealJanta, Value: true})
	l.Upsert(PendingChange{Date: "2024-03-21", Meal: MealCafe, Value: true})

	l.RemoveByDates("2024-03-20")

	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
	if _, ok := l.Get("2024-03-21", MealCafe); !ok {
		t.Error("entry for untouched date was removed")
	}
}

func TestLedgerRemoveMatching(t *testing.T) {
	l := NewLedger()
	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealCafe, Value: true, Unit: "A"})
	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealJanta, Value: false, Unit: "A"})
	l.Upsert(PendingChange{Date: "2024-03-21", Meal: MealCafe, Value: true, Unit: "B"})

	l.RemoveMatching(func(ch PendingChange) bool { return ch.Value })

	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
	ch, _ := l.Get("2024-03-20", MealJanta)
	assert.False(t, ch.Value)
}

func TestLedgerSnapshotOrderAndDetachment(t *testing.T) {
	l := NewLedger()
	l.Upsert(PendingChange{Date: "2024-03-21", Meal: MealCeia, Value: true})
	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealJanta, Value: true})
	l.Upsert(PendingChange{Date: "2024-03-20", Meal: MealCafe, Value: true})

	snap := l.Snapshot()
	want := []PendingChange{
		{Date: "2024-03-20", Meal: MealCafe, Value: true},
		{Date: "2024-03-20", Meal: MealJanta, Value: true},
		{Date: "2024-03-21", Meal: MealCeia, Value: true},
	}
	assert.Equal(t, want, snap)

	// mutating the ledger does not touch an existing snapshot
	l.RemoveByDates("2024-03-20", "2024-03-21")
	assert.Equal(t, want, snap)
	assert.Equal(t, 0, l.Len())
}
