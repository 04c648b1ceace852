package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"example.com/bill-tracker/backend/internal/auth"
	"example.com/bill-tracker/backend/internal/bills"
)

const defaultStatsMonths = 6

type MonthlyResponse struct {
	Months []bills.MonthlyTotal `json:"months"`
}

// Monthly возвращает суммы счетов по месяцам.
func (h *BillHandler) Monthly(c echo.Context) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	months := defaultStatsMonths
	if raw := c.QueryParam("months"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 || value > 60 {
			return badRequest(c, "invalid months")
		}
		months = value
	}

	totals, err := h.Bills.Monthly(c.Request().Context(), owner, months)
	if err != nil {
		return billError(c, err)
	}

	return c.JSON(http.StatusOK, MonthlyResponse{Months: totals})
}
