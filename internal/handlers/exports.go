package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/bill-tracker/backend/internal/auth"
	"example.com/bill-tracker/backend/internal/models"
)

const timeLayout = time.RFC3339

// ExportJSON выгружает счета владельца в JSON-файл.
func (h *BillHandler) ExportJSON(c echo.Context) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	items, err := h.Bills.List(c.Request().Context(), owner)
	if err != nil {
		return billError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\"bills.json\"")
	return c.JSON(http.StatusOK, map[string][]models.Bill{"bills": items})
}

// ExportCSV выгружает счета владельца в CSV-файл.
func (h *BillHandler) ExportCSV(c echo.Context) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	items, err := h.Bills.List(c.Request().Context(), owner)
	if err != nil {
		return billError(c, err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeBillsCSV(writer, items); err != nil {
		return serverError(c)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\"bills.csv\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func writeBillsCSV(writer *csv.Writer, items []models.Bill) error {
	header := []string{
		"id",
		"series_id",
		"name",
		"category",
		"amount",
		"due_date",
		"is_paid",
		"date_paid",
		"recurring",
		"last_generated",
		"created_at",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, bill := range items {
		record := []string{
			bill.ID.String(),
			bill.SeriesID.String(),
			bill.Name,
			string(bill.Category),
			bill.Amount.StringFixed(2),
			bill.DueDate.String(),
			strconv.FormatBool(bill.IsPaid),
			formatDate(bill.DatePaid),
			string(bill.Recurring),
			formatDate(bill.LastGenerated),
			bill.CreatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func formatDate(date *models.Date) string {
	if date == nil || date.IsZero() {
		return ""
	}
	return date.String()
}
