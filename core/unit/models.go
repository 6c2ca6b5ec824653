package unit

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/userNanni/sisub-sub000/core"
)

// Unit is a messing facility users can book meals at.
type Unit struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewUnit contains information needed to register a new Unit.
type NewUnit struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (nu *NewUnit) Validate(validate *validator.Validate, svc *Service) error {
	nu.Code = core.CleanString(nu.Code)
	nu.Name = core.CleanString(nu.Name)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Code)
}

// UpdateUnit defines what information may be provided to modify an existing Unit.
type UpdateUnit struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

func (uu *UpdateUnit) Validate(validate *validator.Validate, origUnit Unit, svc *Service) error {
	code := core.CleanString(uu.Code)
	if code != "" {
		uu.Code = code
	} else {
		uu.Code = origUnit.Code
	}

	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUnit.Name
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Code, origUnit)
}
