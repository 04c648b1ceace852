package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"example.com/bill-tracker/backend/internal/bills"
)

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

func invalidCredentials(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func methodNotAllowed(c echo.Context) error {
	return c.JSON(http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

// billError переводит ошибку сервиса счетов в HTTP-ответ.
func billError(c echo.Context, err error) error {
	var storeErr *bills.StoreError
	switch {
	case errors.Is(err, bills.ErrUnauthorized):
		return unauthorized(c)
	case errors.Is(err, bills.ErrValidation):
		return badRequest(c, err.Error())
	case errors.Is(err, bills.ErrNotFound):
		return notFound(c, "Bill not found")
	case errors.Is(err, bills.ErrConflict):
		return conflict(c, "Bill already exists")
	case errors.As(err, &storeErr):
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":  "Database operation failed",
			"method": c.Request().Method,
		})
	default:
		return serverError(c)
	}
}

// validationMessage перечисляет поля, не прошедшие проверку.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(fields, ", ")
}
