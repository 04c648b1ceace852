package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/bill-tracker/backend/internal/auth"
	"example.com/bill-tracker/backend/internal/bills"
	"example.com/bill-tracker/backend/internal/models"
)

type BillHandler struct {
	Bills *bills.Service
}

// NewBillHandler создает обработчик счетов.
func NewBillHandler(service *bills.Service) *BillHandler {
	return &BillHandler{Bills: service}
}

type BillRequest struct {
	ID            models.BillID   `json:"id"`
	Name          string          `json:"name" validate:"required,max=200"`
	Category      string          `json:"category" validate:"required,bill_category"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       models.Date     `json:"dueDate"`
	IsPaid        bool            `json:"isPaid"`
	DatePaid      *models.Date    `json:"datePaid"`
	Recurring     string          `json:"recurring" validate:"omitempty,recurrence"`
	LastGenerated *models.Date    `json:"lastGenerated"`
}

type ToggleRequest struct {
	IsPaid *bool `json:"isPaid"`
}

type UpdateResponse struct {
	Success      bool  `json:"success"`
	MatchedCount int64 `json:"matchedCount"`
}

type DeleteResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deletedCount"`
}

// Legacy обслуживает /api/bills: метод запроса выбирает операцию,
// а идентификатор передается в теле (PUT) или в параметре id (DELETE).
func (h *BillHandler) Legacy(c echo.Context) error {
	switch c.Request().Method {
	case http.MethodGet:
		return h.list(c, false)
	case http.MethodPost:
		return h.create(c, http.StatusOK)
	case http.MethodPut:
		return h.legacyUpdate(c)
	case http.MethodDelete:
		return h.delete(c, c.QueryParam("id"))
	default:
		return methodNotAllowed(c)
	}
}

// List возвращает счета владельца.
func (h *BillHandler) List(c echo.Context) error {
	return h.list(c, true)
}

// Create создает счет.
func (h *BillHandler) Create(c echo.Context) error {
	return h.create(c, http.StatusCreated)
}

// Update применяет частичное изменение к счету из пути и возвращает результат.
func (h *BillHandler) Update(c echo.Context) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := models.ParseBillID(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid bill id")
	}

	fields, err := decodeFields(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid payload")
	}

	patch, err := patchFromFields(fields)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	if _, err := h.Bills.Update(ctx, owner, id, patch); err != nil {
		return billError(c, err)
	}

	bill, err := h.Bills.Get(ctx, owner, id)
	if err != nil {
		return billError(c, err)
	}

	return c.JSON(http.StatusOK, bill)
}

// Toggle меняет отметку оплаты счета.
func (h *BillHandler) Toggle(c echo.Context) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := models.ParseBillID(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid bill id")
	}

	var req ToggleRequest
	if c.Request().ContentLength != 0 {
		if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
			return badRequest(c, "invalid payload")
		}
	}

	bill, err := h.Bills.Toggle(c.Request().Context(), owner, id, req.IsPaid)
	if err != nil {
		return billError(c, err)
	}

	return c.JSON(http.StatusOK, bill)
}

// Delete удаляет счет из пути.
func (h *BillHandler) Delete(c echo.Context) error {
	return h.delete(c, c.Param("id"))
}

// Categories возвращает допустимые категории и правила повторения.
func (h *BillHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"categories": models.Categories(),
		"recurring": []models.Recurrence{
			models.RecurrenceNone,
			models.RecurrenceMonthly,
			models.RecurrenceQuarterly,
			models.RecurrenceYearly,
		},
	})
}

// Summary возвращает итоги по счетам владельца.
func (h *BillHandler) Summary(c echo.Context) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	summary, err := h.Bills.Summary(c.Request().Context(), owner)
	if err != nil {
		return billError(c, err)
	}

	return c.JSON(http.StatusOK, summary)
}

func (h *BillHandler) list(c echo.Context, wrapped bool) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	items, err := h.Bills.List(c.Request().Context(), owner)
	if err != nil {
		return billError(c, err)
	}

	if wrapped {
		return c.JSON(http.StatusOK, map[string][]models.Bill{"bills": items})
	}
	return c.JSON(http.StatusOK, items)
}

func (h *BillHandler) create(c echo.Context, status int) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req BillRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	recurring, _ := models.ParseRecurrence(req.Recurring)
	bill, err := h.Bills.Create(c.Request().Context(), owner, bills.CreateInput{
		ID:            req.ID,
		Name:          req.Name,
		Category:      models.Category(req.Category),
		Amount:        req.Amount,
		DueDate:       req.DueDate,
		IsPaid:        req.IsPaid,
		DatePaid:      presentDate(req.DatePaid),
		Recurring:     recurring,
		LastGenerated: presentDate(req.LastGenerated),
	})
	if err != nil {
		return billError(c, err)
	}

	return c.JSON(status, bill)
}

func (h *BillHandler) legacyUpdate(c echo.Context) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	fields, err := decodeFields(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid payload")
	}

	var id models.BillID
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return badRequest(c, "invalid bill id")
		}
	}
	if id == "" {
		return badRequest(c, "id is required")
	}

	patch, err := patchFromFields(fields)
	if err != nil {
		return badRequest(c, err.Error())
	}

	matched, err := h.Bills.Update(c.Request().Context(), owner, id, patch)
	if err != nil {
		return billError(c, err)
	}

	return c.JSON(http.StatusOK, UpdateResponse{Success: true, MatchedCount: matched})
}

func (h *BillHandler) delete(c echo.Context, rawID string) error {
	owner, ok := auth.OwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := models.ParseBillID(rawID)
	if err != nil {
		return badRequest(c, "id is required")
	}

	deleted, err := h.Bills.Delete(c.Request().Context(), owner, id)
	if err != nil {
		return billError(c, err)
	}

	return c.JSON(http.StatusOK, DeleteResponse{Success: true, DeletedCount: deleted})
}

func decodeFields(body io.Reader) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.NewDecoder(body).Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return fields, nil
		}
		return nil, err
	}
	return fields, nil
}

// patchFromFields строит патч из присланных полей. Отсутствующее поле не меняется,
// null или пустая строка очищают datePaid и lastGenerated. Идентификатор, владелец
// и служебные отметки времени не редактируются.
func patchFromFields(fields map[string]json.RawMessage) (models.BillPatch, error) {
	var patch models.BillPatch

	for key, raw := range fields {
		switch key {
		case "name":
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return patch, errors.New("name must be a string")
			}
			patch.Name = &name
		case "category":
			var category string
			if err := json.Unmarshal(raw, &category); err != nil || !models.Category(category).Valid() {
				return patch, errors.New("unknown category")
			}
			value := models.Category(category)
			patch.Category = &value
		case "amount":
			var amount decimal.Decimal
			if err := json.Unmarshal(raw, &amount); err != nil {
				return patch, errors.New("amount must be a number")
			}
			patch.Amount = &amount
		case "dueDate":
			var due models.Date
			if err := json.Unmarshal(raw, &due); err != nil || due.IsZero() {
				return patch, errors.New("dueDate must be a date")
			}
			patch.DueDate = &due
		case "isPaid":
			var paid bool
			if err := json.Unmarshal(raw, &paid); err != nil {
				return patch, errors.New("isPaid must be a boolean")
			}
			patch.IsPaid = &paid
		case "datePaid":
			date, clear, err := optionalDate(raw)
			if err != nil {
				return patch, errors.New("datePaid must be a date")
			}
			patch.DatePaid, patch.ClearDatePaid = date, clear
		case "recurring":
			var value *string
			if err := json.Unmarshal(raw, &value); err != nil {
				return patch, errors.New("recurring must be a string")
			}
			recurring := models.RecurrenceNone
			if value != nil {
				parsed, ok := models.ParseRecurrence(*value)
				if !ok {
					return patch, errors.New("unknown recurrence")
				}
				recurring = parsed
			}
			patch.Recurring = &recurring
		case "lastGenerated":
			date, clear, err := optionalDate(raw)
			if err != nil {
				return patch, errors.New("lastGenerated must be a date")
			}
			patch.LastGenerated, patch.ClearLastGenerated = date, clear
		}
	}

	return patch, nil
}

func optionalDate(raw json.RawMessage) (*models.Date, bool, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil, true, nil
	}

	var date models.Date
	if err := json.Unmarshal(raw, &date); err != nil {
		return nil, false, err
	}
	if date.IsZero() {
		return nil, true, nil
	}
	return &date, false, nil
}

func presentDate(date *models.Date) *models.Date {
	if date == nil || date.IsZero() {
		return nil
	}
	return date
}
