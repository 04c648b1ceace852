package handlers

import (
	"github.com/go-playground/validator/v10"

	"example.com/bill-tracker/backend/internal/models"
)

// RegisterValidations добавляет правила bill_category и recurrence.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("bill_category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}

	return v.RegisterValidation("recurrence", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRecurrence(fl.Field().String())
		return ok
	})
}
