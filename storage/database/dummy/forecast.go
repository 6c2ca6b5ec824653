package dummydb

import (
	"context"
	"sort"

	"github.com/userNanni/sisub-sub000/core/forecast"
)

type forecastStore struct {
	db *forecastTable
}

var _ forecast.Store = (*forecastStore)(nil) // interface compliance check

func NewForecastStore(db *DB) forecast.Store {
	return &forecastStore{db: db.forecast}
}

func (store *forecastStore) ListRange(ctx context.Context, userID, start, end string) ([]forecast.Record, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	var records []forecast.Record
	for _, rec := range store.db.table[userID] {
		if rec.Date >= start && rec.Date <= end {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].Meal < records[j].Meal
	})
	return records, nil
}

func (store *forecastStore) DeleteDay(ctx context.Context, userID, date string) error {
	store.db.Lock()
	defer store.db.Unlock()

	rows := store.db.table[userID]
	kept := rows[:0]
	for _, rec := range rows {
		if rec.Date != date {
			kept = append(kept, rec)
		}
	}
	store.db.table[userID] = kept
	return nil
}

func (store *forecastStore) InsertRows(ctx context.Context, userID string, rows []forecast.Record) error {
	store.db.Lock()
	defer store.db.Unlock()

	store.db.table[userID] = append(store.db.table[userID], rows...)
	return nil
}
