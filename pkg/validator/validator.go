package validator

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

func init() {
	// Register custom validation for UUID
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})

	// Decimals are validated through their float value so numeric tags (gte, lte) apply.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errs []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return []*ErrorResponse{{FailedField: "", Tag: err.Error()}}
		}
		for _, err := range validationErrors {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errs = append(errs, &element)
		}
	}
	return errs
}

// Validate returns an error describing the first failed field, or nil.
func Validate(data interface{}) error {
	errs := ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return fmt.Errorf("Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag)
}
