package dummydb

import (
	"sort"

	"github.com/google/uuid"

	"github.com/userNanni/sisub-sub000/core/unit"
)

type unitRepository struct {
	db *unitTable
}

var _ unit.Repository = (*unitRepository)(nil) // interface compliance check

func NewUnitRepository(db *DB) unit.Repository {
	return &unitRepository{db: db.unit}
}

func (repo *unitRepository) CheckCodeUniqueness(code string, excludedUnits ...unit.Unit) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, u := range repo.db.table {
		var excluded bool
		for _, excl := range excludedUnits {
			if excl.ID == u.ID {
				excluded = true
				break
			}
		}
		if !excluded && u.Code == code {
			return unit.ErrCodeExists
		}
	}
	return nil
}

func (repo *unitRepository) CreateUnit(u unit.Unit) (unit.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	u.ID = uuid.New().String()
	repo.db.table[u.ID] = &u
	return u, nil
}

func (repo *unitRepository) QueryAllUnits() ([]unit.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	units := make([]unit.Unit, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		units = append(units, *u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Code < units[j].Code })
	return units, nil
}

func (repo *unitRepository) GetUnitByID(id string) (unit.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.db.table[id]; ok {
		return *u, nil
	}
	return unit.Unit{}, unit.ErrNotFound
}

func (repo *unitRepository) GetUnitByCode(code string) (unit.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, u := range repo.db.table {
		if u.Code == code {
			return *u, nil
		}
	}
	return unit.Unit{}, unit.ErrNotFound
}

func (repo *unitRepository) UpdateUnit(u unit.Unit, isActive *bool) (unit.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUnit, ok := repo.db.table[u.ID]
	if !ok {
		return unit.Unit{}, unit.ErrNotFound
	}
	if isActive != nil {
		origUnit.IsActive = *isActive
	}
	origUnit.Code = u.Code
	origUnit.Name = u.Name
	origUnit.UpdatedAt = u.UpdatedAt

	repo.db.table[u.ID] = origUnit
	return *origUnit, nil
}

func (repo *unitRepository) DeleteUnitsByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
