package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/userNanni/sisub-sub000/core/forecast"
)

type forecastRow struct {
	Date       time.Time `db:"date"`
	Unit       string    `db:"unit"`
	Meal       string    `db:"meal"`
	WillAttend bool      `db:"will_attend"`
}

type forecastStore struct {
	db *sqlx.DB
}

var _ forecast.Store = (*forecastStore)(nil) // interface compliance check

func NewForecastStore(db *sqlx.DB) forecast.Store {
	return &forecastStore{db: db}
}

func (store *forecastStore) ListRange(ctx context.Context, userID, start, end string) ([]forecast.Record, error) {
	var rows []forecastRow
	query := `
		SELECT date, unit, meal, will_attend FROM forecast
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, meal`
	if err := store.db.SelectContext(ctx, &rows, query, userID, start, end); err != nil {
		return nil, errors.Wrap(err, "listing forecasts")
	}

	records := make([]forecast.Record, len(rows))
	for i, row := range rows {
		records[i] = forecast.Record{
			Date:       row.Date.Format(forecast.DateLayout),
			Unit:       row.Unit,
			Meal:       forecast.Meal(row.Meal),
			WillAttend: row.WillAttend,
		}
	}
	return records, nil
}

func (store *forecastStore) DeleteDay(ctx context.Context, userID, date string) error {
	query := `DELETE FROM forecast WHERE user_id = $1 AND date = $2`
	if _, err := store.db.ExecContext(ctx, query, userID, date); err != nil {
		return errors.Wrap(err, "deleting forecast day")
	}
	return nil
}

func (store *forecastStore) InsertRows(ctx context.Context, userID string, rows []forecast.Record) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO forecast (id, user_id, date, unit, meal, will_attend, created_at)
		VALUES (:id, :user_id, :date, :unit, :meal, :will_attend, :created_at)`
	now := time.Now().UTC()

	args := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		args[i] = map[string]interface{}{
			"id":          uuid.New().String(),
			"user_id":     userID,
			"date":        row.Date,
			"unit":        row.Unit,
			"meal":        string(row.Meal),
			"will_attend": row.WillAttend,
			"created_at":  now,
		}
	}
	if _, err := store.db.NamedExecContext(ctx, query, args); err != nil {
		return errors.Wrap(err, "inserting forecast rows")
	}
	return nil
}
