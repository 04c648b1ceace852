package server

import (
	"github.com/go-playground/validator/v10"

	"example.com/bill-tracker/backend/internal/handlers"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор на базе go-playground/validator с правилами для счетов.
func NewValidator() *CustomValidator {
	v := validator.New()
	if err := handlers.RegisterValidations(v); err != nil {
		panic(err)
	}
	return &CustomValidator{validator: v}
}

// Validate запускает проверку структуры по тегам.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
