package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/bill-tracker/backend/internal/auth"
	"example.com/bill-tracker/backend/internal/bills"
	"example.com/bill-tracker/backend/internal/repository/memory"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestEcho(t *testing.T, middlewareCfg auth.MiddlewareConfig) (*echo.Echo, *auth.TokenManager) {
	t.Helper()

	v := validator.New()
	require.NoError(t, RegisterValidations(v))

	e := echo.New()
	e.Validator = &testValidator{validator: v}

	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	service := bills.NewService(memory.NewBillRepository(), bills.Options{
		ExpandOnList: true,
		Now:          func() time.Time { return now },
	})
	handler := NewBillHandler(service)
	manager := auth.NewTokenManager("secret", "bill-tracker", time.Hour)
	mw := auth.JWTMiddleware(manager, middlewareCfg)

	e.Any("/api/bills", handler.Legacy, mw)
	group := e.Group("/api/v1/bills", mw)
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/summary", handler.Summary)
	group.GET("/categories", handler.Categories)
	group.GET("/stats/monthly", handler.Monthly)
	group.GET("/export/json", handler.ExportJSON)
	group.GET("/export/csv", handler.ExportCSV)
	group.PUT("/:id", handler.Update)
	group.PATCH("/:id/toggle", handler.Toggle)
	group.DELETE("/:id", handler.Delete)

	return e, manager
}

func devEcho(t *testing.T) *echo.Echo {
	e, _ := newTestEcho(t, auth.MiddlewareConfig{SkipAuth: true, DevUserEmail: "local@development.com"})
	return e
}

func doJSON(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// TestLegacyLifecycle проверяет полный цикл на /api/bills.
func TestLegacyLifecycle(t *testing.T) {
	e := devEcho(t)

	rec := doJSON(e, http.MethodPost, "/api/bills",
		`{"id":1700000000000,"name":"Rent","amount":1200,"dueDate":"2024-03-01","category":"Rent/Mortgage","isPaid":false,"datePaid":null,"recurring":""}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, float64(1700000000000), created["id"])
	assert.Equal(t, "local@development.com", created["userEmail"])
	assert.Equal(t, "2024-03-01", created["dueDate"])

	rec = doJSON(e, http.MethodGet, "/api/bills", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Rent", list[0]["name"])

	rec = doJSON(e, http.MethodPut, "/api/bills", `{"id":"1700000000000","name":"Rent March","isPaid":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"matchedCount":1}`, rec.Body.String())

	rec = doJSON(e, http.MethodPut, "/api/bills", `{"id":"999","name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Bill not found"}`, rec.Body.String())

	rec = doJSON(e, http.MethodDelete, "/api/bills?id=1700000000000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"deletedCount":1}`, rec.Body.String())

	rec = doJSON(e, http.MethodDelete, "/api/bills?id=1700000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPatch, "/api/bills", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
}

// TestUnauthorizedWithoutBypass проверяет отказ без токена.
func TestUnauthorizedWithoutBypass(t *testing.T) {
	e, manager := newTestEcho(t, auth.MiddlewareConfig{})

	rec := doJSON(e, http.MethodGet, "/api/bills", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	token, err := manager.NewAccessToken(uuid.New(), "a@example.com")
	require.NoError(t, err)

	rec = doJSON(e, http.MethodGet, "/api/v1/bills", "", "Authorization", "Bearer "+token.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bills":[]}`, rec.Body.String())
}

// TestCreateValidationErrors проверяет отказ при неверной категории.
func TestCreateValidationErrors(t *testing.T) {
	e := devEcho(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/bills", `{"name":"Food","amount":10,"dueDate":"2024-03-01","category":"Groceries"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bill_category")

	rec = doJSON(e, http.MethodPost, "/api/v1/bills", `{"name":"Food","amount":-1,"dueDate":"2024-03-01","category":"Other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/bills", `{"name":"Food","amount":1,"dueDate":"2024-03-01","category":"Other","recurring":"weekly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/bills", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestCreateDuplicateConflict проверяет 409 при повторном идентификаторе.
func TestCreateDuplicateConflict(t *testing.T) {
	e := devEcho(t)
	body := `{"id":5,"name":"Phone","amount":"45.99","dueDate":"2024-03-05","category":"Phone/Internet"}`

	rec := doJSON(e, http.MethodPost, "/api/v1/bills", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodPost, "/api/v1/bills", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// TestV1UpdateToggleSummary проверяет изменение, отметку оплаты и сводку.
func TestV1UpdateToggleSummary(t *testing.T) {
	e := devEcho(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/bills", `{"id":"a1","name":"Power","amount":80.25,"dueDate":"2024-02-01","category":"Utilities"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doJSON(e, http.MethodPost, "/api/v1/bills", `{"id":"a2","name":"Water","amount":19.75,"dueDate":"2024-03-01","category":"Utilities"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodPut, "/api/v1/bills/a2", `{"amount":"20.75"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 20.75, updated["amount"])
	assert.NotNil(t, updated["updatedAt"])

	rec = doJSON(e, http.MethodPatch, "/api/v1/bills/a1/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var toggled map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.Equal(t, true, toggled["isPaid"])
	assert.Equal(t, "2024-02-10", toggled["datePaid"])

	rec = doJSON(e, http.MethodGet, "/api/v1/bills/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "20.75", summary["totalUnpaid"])
	assert.Equal(t, float64(1), summary["unpaidCount"])
	assert.Equal(t, float64(1), summary["paidCount"])

	rec = doJSON(e, http.MethodPatch, "/api/v1/bills/a1/toggle", `{"isPaid":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.Equal(t, false, toggled["isPaid"])
	assert.Nil(t, toggled["datePaid"])

	rec = doJSON(e, http.MethodDelete, "/api/v1/bills/a1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(e, http.MethodPut, "/api/v1/bills/a1", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestPatchFromFields проверяет разбор частичного изменения.
func TestPatchFromFields(t *testing.T) {
	fields := map[string]json.RawMessage{
		"id":            json.RawMessage(`"1"`),
		"userEmail":     json.RawMessage(`"other@example.com"`),
		"name":          json.RawMessage(`"Internet"`),
		"recurring":     json.RawMessage(`"none"`),
		"datePaid":      json.RawMessage(`null`),
		"lastGenerated": json.RawMessage(`"2024-01-02"`),
	}

	patch, err := patchFromFields(fields)
	require.NoError(t, err)
	require.NotNil(t, patch.Name)
	assert.Equal(t, "Internet", *patch.Name)
	require.NotNil(t, patch.Recurring)
	assert.False(t, patch.Recurring.IsRecurring())
	assert.True(t, patch.ClearDatePaid)
	require.NotNil(t, patch.LastGenerated)
	assert.Equal(t, "2024-01-02", patch.LastGenerated.String())
	assert.Nil(t, patch.Amount)

	_, err = patchFromFields(map[string]json.RawMessage{"category": json.RawMessage(`"Food"`)})
	assert.Error(t, err)
	_, err = patchFromFields(map[string]json.RawMessage{"dueDate": json.RawMessage(`null`)})
	assert.Error(t, err)
}

// TestBillErrorStoreFailure проверяет тело ответа при отказе хранилища.
func TestBillErrorStoreFailure(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/bills", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, billError(c, &bills.StoreError{Op: "update", Err: assert.AnError}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Database operation failed","method":"PUT"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

// TestMonthlyStats проверяет суммы по месяцам через HTTP.
func TestMonthlyStats(t *testing.T) {
	e := devEcho(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/bills", `{"id":1,"name":"Gas","amount":40,"dueDate":"2024-01-15","category":"Utilities"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/api/v1/bills/stats/monthly?months=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"months":[{"month":"2024-01","total":"40.00","paid":"0.00","unpaid":"40.00","count":1}]}`, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/api/v1/bills/stats/monthly?months=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestCategories проверяет справочник категорий.
func TestCategories(t *testing.T) {
	e := devEcho(t)

	rec := doJSON(e, http.MethodGet, "/api/v1/bills/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"categories":["Utilities","Credit Card","Rent/Mortgage","Insurance","Phone/Internet","Other"],"recurring":["","monthly","quarterly","yearly"]}`, rec.Body.String())
}
