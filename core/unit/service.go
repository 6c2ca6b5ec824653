package unit

import (
	"errors"
	"time"

	"github.com/userNanni/sisub-sub000/core"
)

var (
	// errors
	ErrNotFound   = errors.New("unit not found")
	ErrCodeExists = errors.New("a unit with this code already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(code string, excludedUnits ...Unit) error
		CreateUnit(unit Unit) (Unit, error)
		QueryAllUnits() ([]Unit, error)
		GetUnitByID(id string) (Unit, error)
		GetUnitByCode(code string) (Unit, error)
		UpdateUnit(unit Unit, isActive *bool) (Unit, error)
		DeleteUnitsByID(ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(code string, exclUnits ...Unit) error {
	if err := svc.repo.CheckCodeUniqueness(code, exclUnits...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(nu NewUnit) (Unit, error) {
	now := time.Now().UTC()
	return svc.repo.CreateUnit(Unit{
		Code:      nu.Code,
		Name:      nu.Name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryAll() ([]Unit, error) {
	return svc.repo.QueryAllUnits()
}

func (svc *Service) GetByID(id string) (Unit, error) {
	return svc.repo.GetUnitByID(id)
}

func (svc *Service) GetByCode(code string) (Unit, error) {
	return svc.repo.GetUnitByCode(core.CleanString(code))
}

func (svc *Service) Update(id string, uu UpdateUnit) (Unit, error) {
	return svc.repo.UpdateUnit(Unit{
		ID:        id,
		Code:      uu.Code,
		Name:      uu.Name,
		UpdatedAt: time.Now().UTC(),
	}, uu.IsActive)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteUnitsByID(ids...)
}
