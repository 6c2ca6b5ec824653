package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/userNanni/sisub-sub000/core/unit"
	"github.com/userNanni/sisub-sub000/core/user"
)

func Test_unitApi(t *testing.T) {
	d := setup(t)

	admin := d.createUser(t, "Boss", "bigboss1", "boss@test.test", "S3kr3t!pwd", []string{user.RoleAdmin})
	rancho := d.createUser(t, "Rancho", "rancho01", "rancho@test.test", "S3kr3t!pwd", []string{user.RoleRancho})

	adminToken := getToken(t, admin)
	ranchoToken := getToken(t, rancho)

	gap, err := d.unitSvc.Create(unit.NewUnit{Code: "GAP-SP", Name: "Grupamento de Apoio de São Paulo"})
	if err != nil {
		t.Fatalf("creating unit: %v", err)
	}

	tests := []httpTest{
		{
			name:     "query: no token",
			method:   http.MethodGet,
			path:     "/v1/units",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "query: any authed user",
			method:   http.MethodGet,
			path:     "/v1/units",
			token:    ranchoToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []unit.Unit{gap}),
		},
		{
			name:     "create: non-admin forbidden",
			method:   http.MethodPost,
			path:     "/v1/units",
			token:    ranchoToken,
			body:     marchallObj(t, unit.NewUnit{Code: "GAP-RJ", Name: "Grupamento de Apoio do Rio de Janeiro"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "create: duplicate code refused",
			method:   http.MethodPost,
			path:     "/v1/units",
			token:    adminToken,
			body:     marchallObj(t, unit.NewUnit{Code: gap.Code, Name: "Duplicata"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": unit.ErrCodeExists.Error()}),
		},
		{
			name:     "retrieve: unknown id",
			method:   http.MethodGet,
			path:     "/v1/units/4709ee62-0000-0000-0000-000000000000",
			token:    ranchoToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "retrieve: ok",
			method:   http.MethodGet,
			path:     "/v1/units/" + gap.ID,
			token:    ranchoToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, gap),
		},
		{
			name:     "update: non-admin forbidden",
			method:   http.MethodPut,
			path:     "/v1/units/" + gap.ID,
			token:    ranchoToken,
			body:     marchallObj(t, unit.UpdateUnit{Name: "Renomeado"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "destroy: admin ok",
			method:   http.MethodDelete,
			path:     "/v1/units/" + gap.ID,
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			d.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update: admin ok", func(t *testing.T) {
		u, err := d.unitSvc.Create(unit.NewUnit{Code: "GAP-RJ", Name: "Grupamento de Apoio do Rio de Janeiro"})
		if err != nil {
			t.Fatalf("creating unit: %v", err)
		}

		body := marchallObj(t, unit.UpdateUnit{Name: "GAP Rio"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/units/"+u.ID, adminToken, body)
		d.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var updated unit.Unit
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "GAP Rio", updated.Name)
		assert.Equal(t, u.Code, updated.Code) // untouched fields keep their value
	})
}
