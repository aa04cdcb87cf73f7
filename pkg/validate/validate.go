// Package validate runs struct-tag validation (go-playground/validator) and
// turns the result into Laravel-style field messages.
//
// Example:
//
//	type Input struct {
//	    Name  string          `json:"name"  validate:"required,max=100"`
//	    Email string          `json:"email" validate:"required,email"`
//	    Price decimal.Decimal `json:"price" validate:"gt=0"`
//	    Items []Item          `json:"items" validate:"required,min=1,dive"`
//	}
//
//	errs := validate.Struct(in)  // {"items[0].quantity": "The items[0].quantity must be at least 1."}
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		// Money is validated as a number so gt=0 and friends apply.
		v.RegisterCustomTypeFunc(func(f reflect.Value) any {
			if d, ok := f.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
	})
	return v
}

// Struct validates s and returns field → message. An empty map means valid.
// Only the first failing rule per field is reported.
func Struct(s any) map[string]string {
	errs := make(map[string]string)
	err := instance().Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: s is not a struct. Nothing to report per field.
		return errs
	}
	for _, fe := range verrs {
		field := fieldPath(fe)
		if _, seen := errs[field]; !seen {
			errs[field] = message(field, fe)
		}
	}
	return errs
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// fieldPath drops the root struct name: "Input.items[0].price" → "items[0].price".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(field string, fe validator.FieldError) string {
	param := fe.Param()
	numeric := isNumeric(fe.Kind())

	switch fe.Tag() {
	case "required", "required_without", "required_if":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "url", "http_url":
		return fmt.Sprintf("The %s must be a valid URL.", field)
	case "alphanum":
		return fmt.Sprintf("The %s field must contain only letters and numbers.", field)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", field)
	case "len":
		return fmt.Sprintf("The %s must be exactly %s characters.", field, param)
	case "min":
		switch {
		case numeric:
			return fmt.Sprintf("The %s must be at least %s.", field, param)
		case fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array:
			return fmt.Sprintf("The %s must have at least %s items.", field, param)
		default:
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}
	case "max":
		switch {
		case numeric:
			return fmt.Sprintf("The %s must not be greater than %s.", field, param)
		case fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array:
			return fmt.Sprintf("The %s must not have more than %s items.", field, param)
		default:
			return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
		}
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", field, param)
	case "gte":
		return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
	case "lt":
		return fmt.Sprintf("The %s must be less than %s.", field, param)
	case "lte":
		return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
	}
	return fmt.Sprintf("The %s is invalid.", field)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}
