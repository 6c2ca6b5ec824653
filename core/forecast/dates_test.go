package forecast

import (
	"testing"
	"time"
)

func TestDateWindow(t *testing.T) {
	today := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.Local)

	dates := DateWindow(30, today)
	if len(dates) != 30 {
		t.Fatalf("DateWindow() len = %d, want 30", len(dates))
	}
	if dates[0] != "2024-03-15" {
		t.Errorf("DateWindow()[0] = %s, want 2024-03-15", dates[0])
	}
	if dates[29] != "2024-04-13" {
		t.Errorf("DateWindow()[29] = %s, want 2024-04-13", dates[29])
	}

	// consecutive, strictly ascending
	for i := 1; i < len(dates); i++ {
		if dates[i] <= dates[i-1] {
			t.Errorf("DateWindow() not ascending at %d: %s <= %s", i, dates[i], dates[i-1])
		}
	}
}

func TestDateWindowCrossesMonthAndYear(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		n     int
		first string
		last  string
	}{
		{"month boundary", time.Date(2024, time.January, 30, 0, 0, 0, 0, time.Local), 5, "2024-01-30", "2024-02-03"},
		{"leap february", time.Date(2024, time.February, 28, 0, 0, 0, 0, time.Local), 3, "2024-02-28", "2024-03-01"},
		{"year boundary", time.Date(2023, time.December, 30, 23, 0, 0, 0, time.Local), 4, "2023-12-30", "2024-01-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := DateWindow(tt.n, tt.today)
			if dates[0] != tt.first {
				t.Errorf("first = %s, want %s", dates[0], tt.first)
			}
			if dates[len(dates)-1] != tt.last {
				t.Errorf("last = %s, want %s", dates[len(dates)-1], tt.last)
			}
		})
	}
}

func TestLockCutoff(t *testing.T) {
	today := time.Date(2024, time.March, 15, 8, 0, 0, 0, time.Local)

	if got := lockCutoff(today, 2); got != "2024-03-17" {
		t.Errorf("lockCutoff() = %s, want 2024-03-17", got)
	}

	// today + 2 days inclusive are locked, the day after is not
	cutoff := lockCutoff(today, 2)
	for _, date := range []string{"2024-03-15", "2024-03-16", "2024-03-17"} {
		if !(date <= cutoff) {
			t.Errorf("date %s should be locked", date)
		}
	}
	if "2024-03-18" <= cutoff {
		t.Error("date 2024-03-18 should not be locked")
	}
}
