package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/userNanni/sisub-sub000/core"
	"github.com/userNanni/sisub-sub000/core/forecast"
	"github.com/userNanni/sisub-sub000/core/unit"
	"github.com/userNanni/sisub-sub000/core/user"
	appfs "github.com/userNanni/sisub-sub000/fs"
	emailsvc "github.com/userNanni/sisub-sub000/services/email"
	dummydb "github.com/userNanni/sisub-sub000/storage/database/dummy"
)

const testDefaultUnit = "DIRAD - DIRAD"

type testDeps struct {
	app      Server
	conf     *core.Config
	usrSvc   *user.Service
	unitSvc  *unit.Service
	mgr      *forecast.Manager
	store    forecast.Store
	validate *validator.Validate
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testConfig() *core.Config {
	return &core.Config{
		TestMode:                  true,
		AppName:                   "SISUB",
		SecretKey:                 []byte("s3kr3t"),
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromName:           "SISUB",
		DefaultFromAddress:        "noreply@test.test",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Host:                      ":0",
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
		},
		Forecast: core.ForecastConfig{
			WindowDays:     30,
			LockWindowDays: 2,
			DefaultUnit:    testDefaultUnit,
			DebounceDelay:  250 * time.Millisecond,
			FlushTimeout:   5 * time.Second,
		},
	}
}

func setup(t *testing.T) *testDeps {
	t.Helper()

	conf := testConfig()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	logger := nopLogger{}
	mailSvc := emailsvc.NewConsoleService(conf)
	usrSvc := user.NewService(dummydb.NewUserRepository(db), mailSvc, conf)
	unitSvc := unit.NewService(dummydb.NewUnitRepository(db))

	store := dummydb.NewForecastStore(db)
	mgr := forecast.NewManager(store, conf.Forecast, logger)
	t.Cleanup(mgr.CloseAll)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, appfs.FS, logger)

	core.ConfigureEmailTemplates(appfs.FS, conf)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		UnitSvc:        unitSvc,
		ForecastMgr:    mgr,
		ForecastStore:  store,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testDeps{
		app:      app,
		conf:     conf,
		usrSvc:   usrSvc,
		unitSvc:  unitSvc,
		mgr:      mgr,
		store:    store,
		validate: validate,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (d *testDeps) createUser(t *testing.T, name, uname, email, pwd string, roles []string) user.User {
	t.Helper()
	usr, err := d.usrSvc.Create(user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
		DefaultUnit:     testDefaultUnit,
	})
	if err != nil {
		t.Fatalf("creating user %q: %v", uname, err)
	}
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
