package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/userNanni/sisub-sub000/core/unit"
)

const unitColumns = `id, code, name, is_active, created_at, updated_at`

type unitRow struct {
	ID        string    `db:"id"`
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r unitRow) toUnit() unit.Unit {
	return unit.Unit{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type unitRepository struct {
	db *sqlx.DB
}

var _ unit.Repository = (*unitRepository)(nil) // interface compliance check

func NewUnitRepository(db *sqlx.DB) unit.Repository {
	return &unitRepository{db: db}
}

func (repo *unitRepository) CheckCodeUniqueness(code string, excludedUnits ...unit.Unit) error {
	exclIDs := make([]string, 0, len(excludedUnits))
	for _, u := range excludedUnits {
		exclIDs = append(exclIDs, u.ID)
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM unit WHERE code = $1 AND NOT (id = ANY($2)))`
	if err := repo.db.Get(&exists, query, code, pq.Array(exclIDs)); err != nil {
		return errors.Wrap(err, "checking unit code uniqueness")
	}
	if exists {
		return unit.ErrCodeExists
	}
	return nil
}

func (repo *unitRepository) CreateUnit(u unit.Unit) (unit.Unit, error) {
	u.ID = uuid.New().String()
	query := `
		INSERT INTO unit (id, code, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.db.Exec(query, u.ID, u.Code, u.Name, u.IsActive, u.CreatedAt, u.UpdatedAt); err != nil {
		return unit.Unit{}, errors.Wrap(err, "creating unit")
	}
	return u, nil
}

func (repo *unitRepository) QueryAllUnits() ([]unit.Unit, error) {
	var rows []unitRow
	query := `SELECT ` + unitColumns + ` FROM unit ORDER BY code`
	if err := repo.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "querying units")
	}
	units := make([]unit.Unit, len(rows))
	for i, row := range rows {
		units[i] = row.toUnit()
	}
	return units, nil
}

func (repo *unitRepository) GetUnitByID(id string) (unit.Unit, error) {
	return repo.getUnit(`SELECT `+unitColumns+` FROM unit WHERE id = $1`, id)
}

func (repo *unitRepository) GetUnitByCode(code string) (unit.Unit, error) {
	return repo.getUnit(`SELECT `+unitColumns+` FROM unit WHERE code = $1`, code)
}

func (repo *unitRepository) getUnit(query string, args ...interface{}) (unit.Unit, error) {
	var row unitRow
	if err := repo.db.Get(&row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return unit.Unit{}, unit.ErrNotFound
		}
		return unit.Unit{}, errors.Wrap(err, "getting unit")
	}
	return row.toUnit(), nil
}

func (repo *unitRepository) UpdateUnit(u unit.Unit, isActive *bool) (unit.Unit, error) {
	query := `
		UPDATE unit SET
			code = $2,
			name = $3,
			is_active = COALESCE($4, is_active),
			updated_at = $5
		WHERE id = $1`
	res, err := repo.db.Exec(query, u.ID, u.Code, u.Name, isActive, u.UpdatedAt)
	if err != nil {
		return unit.Unit{}, errors.Wrap(err, "updating unit")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return unit.Unit{}, unit.ErrNotFound
	}
	return repo.GetUnitByID(u.ID)
}

func (repo *unitRepository) DeleteUnitsByID(ids ...string) error {
	if _, err := repo.db.Exec(`DELETE FROM unit WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting units")
	}
	return nil
}
