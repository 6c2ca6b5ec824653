package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/userNanni/sisub-sub000/core/forecast"
	"github.com/userNanni/sisub-sub000/core/user"
)

func Test_forecastApi_view(t *testing.T) {
	d := setup(t)

	usr := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	token := getToken(t, usr)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())

	// a forecast persisted before the session exists must show up in the grid
	seeded := []forecast.Record{
		{Date: dates[5], Unit: "GAP-SP - GAP-SP", Meal: forecast.MealAlmoco, WillAttend: true},
		{Date: dates[5], Unit: "GAP-SP - GAP-SP", Meal: forecast.MealJanta, WillAttend: true},
	}
	if err := d.store.InsertRows(context.Background(), usr.ID, seeded); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/forecasts/me", token)
	d.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp GridResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Len(t, resp.Days, d.conf.Forecast.WindowDays)
	assert.Equal(t, 0, resp.PendingCount)
	assert.Nil(t, resp.LastSave)

	assert.True(t, resp.Days[0].Locked)
	assert.True(t, resp.Days[2].Locked)
	assert.False(t, resp.Days[3].Locked)
	assert.False(t, resp.Days[10].Locked)

	assert.Equal(t, testDefaultUnit, resp.Days[10].Unidade)
	assert.Equal(t, forecast.DayMeals{Almoco: true, Janta: true}, resp.Days[5].Meals)
	assert.Equal(t, "GAP-SP - GAP-SP", resp.Days[5].Unidade)
}

func Test_forecastApi_toggle(t *testing.T) {
	d := setup(t)

	usr := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	token := getToken(t, usr)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())

	tests := []httpTest{
		{
			name:     "no token",
			body:     marchallObj(t, ToggleRequest{Date: dates[10], Meal: forecast.MealAlmoco}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "malformed date",
			token:    token,
			body:     marchallObj(t, ToggleRequest{Date: "31/12/2026", Meal: forecast.MealAlmoco}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "must be a date in YYYY-MM-DD format"}),
		},
		{
			name:     "unknown meal",
			token:    token,
			body:     marchallObj(t, ToggleRequest{Date: dates[10], Meal: "lanche"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"refeicao": "unknown meal"}),
		},
		{
			name:     "date outside window",
			token:    token,
			body:     marchallObj(t, ToggleRequest{Date: "1999-01-01", Meal: forecast.MealAlmoco}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "date is outside the forecast window"}),
		},
		{
			name:     "locked date",
			token:    token,
			body:     marchallObj(t, ToggleRequest{Date: dates[0], Meal: forecast.MealAlmoco}),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "date is locked for changes"}),
		},
		{
			name:     "ok",
			token:    token,
			body:     marchallObj(t, ToggleRequest{Date: dates[10], Meal: forecast.MealAlmoco}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, DayView{Date: dates[10], Meals: forecast.DayMeals{Almoco: true}, Unidade: testDefaultUnit}),
		},
		{
			name:     "toggle back off",
			token:    token,
			body:     marchallObj(t, ToggleRequest{Date: dates[10], Meal: forecast.MealAlmoco}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, DayView{Date: dates[10], Meals: forecast.DayMeals{}, Unidade: testDefaultUnit}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/toggle", tt.token, tt.body)
			d.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// flipping the same cell twice coalesces into one pending change
	h, err := d.mgr.Session(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("getting session: %v", err)
	}
	assert.Equal(t, 1, h.Session.PendingCount())
}

func Test_forecastApi_setUnit(t *testing.T) {
	d := setup(t)

	usr := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	token := getToken(t, usr)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())

	tests := []httpTest{
		{
			name:     "missing unit",
			token:    token,
			body:     marchallObj(t, SetUnitRequest{Date: dates[10]}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"unidade": "this field is required"}),
		},
		{
			name:     "locked date",
			token:    token,
			body:     marchallObj(t, SetUnitRequest{Date: dates[1], Unidade: "GAP-SP - GAP-SP"}),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "date is locked for changes"}),
		},
		{
			name:     "ok",
			token:    token,
			body:     marchallObj(t, SetUnitRequest{Date: dates[10], Unidade: "GAP-SP - GAP-SP"}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, DayView{Date: dates[10], Meals: forecast.DayMeals{}, Unidade: "GAP-SP - GAP-SP"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/forecasts/me/unit", tt.token, tt.body)
			d.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_forecastApi_applyTemplate(t *testing.T) {
	d := setup(t)

	usr := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	token := getToken(t, usr)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())
	editable := d.conf.Forecast.WindowDays - (d.conf.Forecast.LockWindowDays + 1)

	t.Run("invalid mode", func(t *testing.T) {
		body := marchallObj(t, ApplyTemplateRequest{Meals: forecast.DayMeals{Almoco: true}, Mode: "merge"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/apply", token, body)
		d.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("fill-missing over whole window", func(t *testing.T) {
		body := marchallObj(t, ApplyTemplateRequest{
			Meals: forecast.DayMeals{Almoco: true, Janta: true},
			Mode:  forecast.ApplyFillMissing,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/apply", token, body)
		d.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ApplyResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, editable*2, resp.Changed)
	})

	t.Run("fill-missing is idempotent", func(t *testing.T) {
		body := marchallObj(t, ApplyTemplateRequest{
			Meals: forecast.DayMeals{Almoco: true, Janta: true},
			Mode:  forecast.ApplyFillMissing,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/apply", token, body)
		d.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ApplyResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Changed)
	})

	t.Run("override narrows a single date", func(t *testing.T) {
		body := marchallObj(t, ApplyTemplateRequest{
			Meals: forecast.DayMeals{Almoco: true},
			Mode:  forecast.ApplyOverride,
			Dates: []string{dates[10]},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/apply", token, body)
		d.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ApplyResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Changed) // janta off; almoco already on

		h, err := d.mgr.Session(context.Background(), usr.ID)
		if err != nil {
			t.Fatalf("getting session: %v", err)
		}
		meals, _, _ := h.Session.Day(dates[10])
		assert.Equal(t, forecast.DayMeals{Almoco: true}, meals)
	})

	t.Run("locked dates are skipped even when named", func(t *testing.T) {
		body := marchallObj(t, ApplyTemplateRequest{
			Meals: forecast.DayMeals{Ceia: true},
			Mode:  forecast.ApplyFillMissing,
			Dates: []string{dates[0], dates[1]},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/apply", token, body)
		d.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ApplyResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Changed)
	})
}

func Test_forecastApi_applyDefaultUnit(t *testing.T) {
	d := setup(t)

	usr := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	token := getToken(t, usr)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())
	editable := d.conf.Forecast.WindowDays - (d.conf.Forecast.LockWindowDays + 1)

	// deliberately assign one date first; the bulk apply must not touch it
	setBody := marchallObj(t, SetUnitRequest{Date: dates[10], Unidade: "GAP-RJ - GAP-RJ"})
	req, rec := newAuthRequest(http.MethodPut, "/v1/forecasts/me/unit", token, setBody)
	d.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := marchallObj(t, ApplyDefaultUnitRequest{Unidade: "GAP-SP - GAP-SP"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/forecasts/me/default-unit", token, body)
	d.app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ApplyResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, editable-1, resp.Changed)

	h, err := d.mgr.Session(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("getting session: %v", err)
	}
	_, unidade, _ := h.Session.Day(dates[10])
	assert.Equal(t, "GAP-RJ - GAP-RJ", unidade)
	_, unidade, _ = h.Session.Day(dates[11])
	assert.Equal(t, "GAP-SP - GAP-SP", unidade)
}

func Test_forecastApi_save(t *testing.T) {
	d := setup(t)

	usr := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	token := getToken(t, usr)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())

	t.Run("nothing pending", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/save", token)
		d.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp SaveResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Attempted)
	})

	t.Run("persists pending changes", func(t *testing.T) {
		for _, meal := range []forecast.Meal{forecast.MealAlmoco, forecast.MealJanta} {
			body := marchallObj(t, ToggleRequest{Date: dates[10], Meal: meal})
			req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/toggle", token, body)
			d.app.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/save", token)
		d.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp SaveResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Attempted)
		assert.Equal(t, 2, resp.Saved)
		assert.Equal(t, []string{dates[10]}, resp.SavedDates)
		assert.Empty(t, resp.FailedDates)

		records, err := d.store.ListRange(context.Background(), usr.ID, dates[10], dates[10])
		assert.NoError(t, err)
		if assert.Len(t, records, 2) {
			for _, rec := range records {
				assert.True(t, rec.WillAttend)
				assert.Equal(t, testDefaultUnit, rec.Unit)
			}
		}

		// the grid reflects the save once pending changes drain
		greq, grec := newAuthRequest(http.MethodGet, "/v1/forecasts/me", token)
		d.app.ServeHTTP(grec, greq)
		assert.Equal(t, http.StatusOK, grec.Code)
		var grid GridResponse
		assert.NoError(t, json.Unmarshal(grec.Body.Bytes(), &grid))
		assert.Equal(t, 0, grid.PendingCount)
		if assert.NotNil(t, grid.LastSave) {
			assert.Equal(t, 2, grid.LastSave.Saved)
		}
	})

	t.Run("deselecting removes rows", func(t *testing.T) {
		for _, meal := range []forecast.Meal{forecast.MealAlmoco, forecast.MealJanta} {
			body := marchallObj(t, ToggleRequest{Date: dates[10], Meal: meal})
			req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/toggle", token, body)
			d.app.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/save", token)
		d.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		records, err := d.store.ListRange(context.Background(), usr.ID, dates[10], dates[10])
		assert.NoError(t, err)
		assert.Empty(t, records)
	})
}

func Test_forecastApi_autoSave(t *testing.T) {
	d := setup(t)

	usr := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	token := getToken(t, usr)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())

	body := marchallObj(t, ToggleRequest{Date: dates[10], Meal: forecast.MealCafe})
	req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/toggle", token, body)
	d.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the change must land in the store without an explicit save
	assert.Eventually(t, func() bool {
		records, err := d.store.ListRange(context.Background(), usr.ID, dates[10], dates[10])
		return err == nil && len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	h, err := d.mgr.Session(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("getting session: %v", err)
	}
	assert.Eventually(t, func() bool { return h.Session.PendingCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	report, rerr := h.LastReport()
	assert.NoError(t, rerr)
	assert.Equal(t, 1, report.Saved)
}

func Test_forecastApi_closeSession(t *testing.T) {
	d := setup(t)

	usr := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	token := getToken(t, usr)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())

	body := marchallObj(t, ToggleRequest{Date: dates[10], Meal: forecast.MealCeia})
	req, rec := newAuthRequest(http.MethodPost, "/v1/forecasts/me/toggle", token, body)
	d.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/forecasts/me/session", token)
	d.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// a fresh session is hydrated on next use; the unsaved toggle is gone
	req, rec = newAuthRequest(http.MethodGet, "/v1/forecasts/me", token)
	d.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var grid GridResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, 0, grid.PendingCount)
	assert.Equal(t, forecast.DayMeals{}, grid.Days[10].Meals)
}

func Test_forecastApi_attendance(t *testing.T) {
	d := setup(t)

	diner := d.createUser(t, "Joao Silva", "joaosilva", "joao@test.test", "S3kr3t!pwd", []string{user.RoleRancho})
	fiscal := d.createUser(t, "Fiscal", "fiscal01", "fiscal@test.test", "S3kr3t!pwd", []string{user.RoleFiscal})

	dinerToken := getToken(t, diner)
	fiscalToken := getToken(t, fiscal)

	dates := forecast.DateWindow(d.conf.Forecast.WindowDays, time.Now())
	rows := []forecast.Record{
		{Date: dates[0], Unit: testDefaultUnit, Meal: forecast.MealAlmoco, WillAttend: true},
		{Date: dates[0], Unit: testDefaultUnit, Meal: forecast.MealJanta, WillAttend: true},
	}
	if err := d.store.InsertRows(context.Background(), diner.ID, rows); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	tests := []httpTest{
		{
			name:     "non-fiscal forbidden",
			token:    dinerToken,
			path:     "/v1/forecasts/" + diner.ID + "/" + dates[0],
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "malformed date",
			token:    fiscalToken,
			path:     "/v1/forecasts/" + diner.ID + "/notadate12",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "must be a date in YYYY-MM-DD format"}),
		},
		{
			name:     "booked meals",
			token:    fiscalToken,
			path:     "/v1/forecasts/" + diner.ID + "/" + dates[0],
			wantCode: http.StatusOK,
			wantData: marchallObj(t, AttendanceResponse{
				Date: dates[0],
				Meals: map[forecast.Meal]AttendanceMeal{
					forecast.MealAlmoco: {WillAttend: true, Unidade: testDefaultUnit},
					forecast.MealJanta:  {WillAttend: true, Unidade: testDefaultUnit},
				},
			}),
		},
		{
			name:     "no booking",
			token:    fiscalToken,
			path:     "/v1/forecasts/" + diner.ID + "/" + dates[1],
			wantCode: http.StatusOK,
			wantData: marchallObj(t, AttendanceResponse{Date: dates[1], Meals: map[forecast.Meal]AttendanceMeal{}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			d.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
