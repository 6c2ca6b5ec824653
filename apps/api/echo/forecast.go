package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/userNanni/sisub-sub000/core"
	"github.com/userNanni/sisub-sub000/core/forecast"
)

type forecastApi struct {
	mgr      *forecast.Manager
	store    forecast.Store
	validate *validator.Validate
}

func registerForecastAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	mgr *forecast.Manager,
	store forecast.Store,
	validate *validator.Validate,
) {
	api := forecastApi{
		mgr:      mgr,
		store:    store,
		validate: validate,
	}

	fg := g.Group("/forecasts", jwt)

	// own grid
	mg := fg.Group("/me")
	mg.GET("", api.view)
	mg.POST("/toggle", api.toggle)
	mg.PUT("/unit", api.setUnit)
	mg.POST("/default-unit", api.applyDefaultUnit)
	mg.POST("/apply", api.applyTemplate)
	mg.POST("/save", api.save)
	mg.DELETE("/session", api.closeSession)

	// attendance checks
	fg.GET("/:userID/:date", api.attendance, fiscalMiddleware())
}

// Handlers

func (api *forecastApi) view(ctx echo.Context) error {
	h, err := api.handle(ctx)
	if err != nil {
		return err
	}

	sess := h.Session
	dates := sess.Dates()
	days := make([]DayView, 0, len(dates))
	for _, date := range dates {
		meals, unidade, ok := sess.Day(date)
		if !ok {
			continue
		}
		days = append(days, DayView{
			Date:    date,
			Meals:   meals,
			Unidade: unidade,
			Locked:  sess.Locked(date),
		})
	}

	resp := GridResponse{
		Days:         days,
		PendingCount: sess.PendingCount(),
	}
	if report, rerr := h.LastReport(); rerr != nil {
		resp.LastSave = &SaveResponse{Error: rerr.Error()}
	} else if !report.Empty() {
		resp.LastSave = newSaveResponse(report)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *forecastApi) toggle(ctx echo.Context) error {
	var data ToggleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ToggleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	h, err := api.handle(ctx)
	if err != nil {
		return err
	}
	if err := h.Session.ToggleMeal(data.Date, data.Meal); err != nil {
		return forecastError(err)
	}

	meals, unidade, _ := h.Session.Day(data.Date)
	return ctx.JSON(http.StatusOK, DayView{
		Date:    data.Date,
		Meals:   meals,
		Unidade: unidade,
	})
}

func (api *forecastApi) setUnit(ctx echo.Context) error {
	var data SetUnitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetUnitRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	h, err := api.handle(ctx)
	if err != nil {
		return err
	}
	if err := h.Session.SetUnit(data.Date, data.Unidade); err != nil {
		return forecastError(err)
	}

	meals, unidade, _ := h.Session.Day(data.Date)
	return ctx.JSON(http.StatusOK, DayView{
		Date:    data.Date,
		Meals:   meals,
		Unidade: unidade,
	})
}

func (api *forecastApi) applyDefaultUnit(ctx echo.Context) error {
	var data ApplyDefaultUnitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApplyDefaultUnitRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	h, err := api.handle(ctx)
	if err != nil {
		return err
	}
	changed := h.Session.ApplyDefaultUnit(data.Unidade)
	return ctx.JSON(http.StatusOK, ApplyResponse{Changed: changed})
}

func (api *forecastApi) applyTemplate(ctx echo.Context) error {
	var data ApplyTemplateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApplyTemplateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	h, err := api.handle(ctx)
	if err != nil {
		return err
	}

	dates := data.Dates
	if len(dates) == 0 {
		dates = h.Session.Dates()
	}
	changed := h.Session.ApplyTemplate(data.Meals, data.Mode, dates)
	return ctx.JSON(http.StatusOK, ApplyResponse{Changed: changed})
}

func (api *forecastApi) save(ctx echo.Context) error {
	h, err := api.handle(ctx)
	if err != nil {
		return err
	}

	report, err := h.SaveNow(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == forecast.ErrStaleSession {
			return errSessionClosed
		}
		return forecastError(err)
	}
	return ctx.JSON(http.StatusOK, newSaveResponse(report))
}

func (api *forecastApi) closeSession(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	api.mgr.Close(claims.Subject)
	return ctx.NoContent(http.StatusNoContent)
}

// attendance lets inspectors verify a user's booking for one date.
func (api *forecastApi) attendance(ctx echo.Context) error {
	date := ctx.Param("date")
	if !isISODate(date) {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a date in YYYY-MM-DD format"})
	}

	records, err := api.store.ListRange(ctx.Request().Context(), ctx.Param("userID"), date, date)
	if err != nil {
		return errors.Wrap(err, "listing forecasts")
	}

	resp := AttendanceResponse{Date: date, Meals: map[forecast.Meal]AttendanceMeal{}}
	for _, rec := range records {
		resp.Meals[rec.Meal] = AttendanceMeal{WillAttend: rec.WillAttend, Unidade: rec.Unit}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *forecastApi) handle(ctx echo.Context) (*forecast.Handle, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context claims")
	}
	h, err := api.mgr.Session(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "getting forecast session")
	}
	return h, nil
}

var errSessionClosed = echo.NewHTTPError(http.StatusConflict, "session closed")

func forecastError(err error) error {
	switch errors.Cause(err) {
	case forecast.ErrDateLocked:
		return errDateLocked
	case forecast.ErrUnknownDate:
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date is outside the forecast window"})
	case forecast.ErrUnknownMeal:
		return core.NewValidationError(nil, core.FieldError{Field: "refeicao", Error: "unknown meal"})
	case forecast.ErrSessionClosed, forecast.ErrStaleSession:
		return errSessionClosed
	}
	return err
}

func isISODate(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			if c != '-' {
				return false
			}
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Bindings

type (
	DayView struct {
		Date    string            `json:"date"`
		Meals   forecast.DayMeals `json:"meals"`
		Unidade string            `json:"unidade"`
		Locked  bool              `json:"locked,omitempty"`
	}

	GridResponse struct {
		Days         []DayView     `json:"days"`
		PendingCount int           `json:"pending_count"`
		LastSave     *SaveResponse `json:"last_save,omitempty"`
	}

	SaveResponse struct {
		Attempted   int      `json:"attempted"`
		Saved       int      `json:"saved"`
		SavedDates  []string `json:"saved_dates,omitempty"`
		FailedDates []string `json:"failed_dates,omitempty"`
		Error       string   `json:"error,omitempty"`
	}

	ToggleRequest struct {
		Date string        `json:"date" validate:"required,isodate"`
		Meal forecast.Meal `json:"refeicao" validate:"required"`
	}

	SetUnitRequest struct {
		Date    string `json:"date" validate:"required,isodate"`
		Unidade string `json:"unidade" validate:"required"`
	}

	ApplyDefaultUnitRequest struct {
		Unidade string `json:"unidade" validate:"required"`
	}

	ApplyTemplateRequest struct {
		Meals forecast.DayMeals  `json:"meals"`
		Mode  forecast.ApplyMode `json:"mode" validate:"required,oneof=fill-missing override"`
		Dates []string           `json:"dates" validate:"omitempty,dive,isodate"`
	}

	ApplyResponse struct {
		Changed int `json:"changed"`
	}

	AttendanceMeal struct {
		WillAttend bool   `json:"vai_comer"`
		Unidade    string `json:"unidade"`
	}

	AttendanceResponse struct {
		Date  string                           `json:"date"`
		Meals map[forecast.Meal]AttendanceMeal `json:"meals"`
	}
)

func newSaveResponse(r forecast.Report) *SaveResponse {
	return &SaveResponse{
		Attempted:   r.Attempted,
		Saved:       r.Saved,
		SavedDates:  r.SavedDates,
		FailedDates: r.FailedDates,
	}
}

func (tr *ToggleRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(tr)
}

func (sr *SetUnitRequest) Validate(validate *validator.Validate) error {
	sr.Unidade = core.CleanString(sr.Unidade)
	return validate.Struct(sr)
}

func (ar *ApplyDefaultUnitRequest) Validate(validate *validator.Validate) error {
	ar.Unidade = core.CleanString(ar.Unidade)
	return validate.Struct(ar)
}

func (ar *ApplyTemplateRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(ar)
}
