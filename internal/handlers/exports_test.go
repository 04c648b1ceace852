package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/bill-tracker/backend/internal/models"
)

// TestWriteBillsCSV проверяет строки выгрузки.
func TestWriteBillsCSV(t *testing.T) {
	paid := models.MustParseDate("2024-02-01")
	items := []models.Bill{{
		ID:       "1",
		Name:     "Power, main",
		Category: models.CategoryUtilities,
		Amount:   decimal.RequireFromString("80.5"),
		DueDate:  models.MustParseDate("2024-02-01"),
		IsPaid:   true,
		DatePaid: &paid,
	}}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	require.NoError(t, writeBillsCSV(writer, items))
	writer.Flush()

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{"1", "", "Power, main", "Utilities", "80.50", "2024-02-01", "true", "2024-02-01", ""}, records[1][:9])
}

// TestExportRoutes проверяет выгрузку через HTTP.
func TestExportRoutes(t *testing.T) {
	e := devEcho(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/bills", `{"id":3,"name":"Card","amount":55,"dueDate":"2024-02-20","category":"Credit Card"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/api/v1/bills/export/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bills.csv")
	assert.Contains(t, rec.Body.String(), "3,,Card,Credit Card,55.00,2024-02-20,false")

	rec = doJSON(e, http.MethodGet, "/api/v1/bills/export/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Card"`)
}
