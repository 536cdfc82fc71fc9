package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"winery_backend/internal/models"
)

// RegisterValidators adds the enum validations used in request binding tags.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	rules := map[string]validator.Func{
		"role": func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).IsValid()
		},
		"product_category": func(fl validator.FieldLevel) bool {
			return models.ProductCategory(fl.Field().String()).IsValid()
		},
		"direction": func(fl validator.FieldLevel) bool {
			return models.Direction(fl.Field().String()).IsValid()
		},
		"reference_type": func(fl validator.FieldLevel) bool {
			return models.ReferenceType(fl.Field().String()).IsValid()
		},
		"order_status": func(fl validator.FieldLevel) bool {
			return models.OrderStatus(fl.Field().String()).IsValid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validation: %w", tag, err)
		}
	}
	return nil
}
