package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/userNanni/sisub-sub000/core/unit"
)

type unitApi struct {
	svc      *unit.Service
	validate *validator.Validate
}

func registerUnitAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *unit.Service, validate *validator.Validate) {
	api := unitApi{
		svc:      svc,
		validate: validate,
	}

	ug := g.Group("/units", jwt)
	ug.GET("", api.query)
	ug.POST("", api.create, adminMiddleware())

	dg := ug.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *unitApi) query(ctx echo.Context) error {
	units, err := api.svc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying units")
	}
	if units == nil {
		units = []unit.Unit{}
	}
	return ctx.JSON(http.StatusOK, units)
}

func (api *unitApi) create(ctx echo.Context) error {
	var data unit.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	u, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating unit")
	}
	return ctx.JSON(http.StatusCreated, u)
}

func (api *unitApi) retrieve(ctx echo.Context) error {
	u, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == unit.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding unit by ID")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *unitApi) update(ctx echo.Context) error {
	origUnit, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == unit.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding unit by ID")
	}

	var data unit.UpdateUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUnit")
	}
	if err := data.Validate(api.validate, origUnit, api.svc); err != nil {
		return err
	}

	u, err := api.svc.Update(origUnit.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating unit")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *unitApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting unit")
	}
	return ctx.NoContent(http.StatusNoContent)
}
