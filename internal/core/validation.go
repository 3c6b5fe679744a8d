package core

// validation.go checks request structs before any storage access.
//
// Request types carry go-playground/validator tags. validateStruct turns the
// library's field errors into a single *ValidationError whose message names
// every offending field, so the web layer can answer 400 without knowing
// the validator exists.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateStruct validates s and returns a *ValidationError or nil.
func validateStruct(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Validationf("invalid request: %v", err)
	}

	ve := &ValidationError{}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ve.Fields = append(ve.Fields, fe.Field())
		parts = append(parts, fmt.Sprintf("%s %s", fe.Field(), describeFieldError(fe)))
	}
	ve.Message = strings.Join(parts, "; ")
	return ve
}

// describeFieldError renders a validator.FieldError as a short phrase.
func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// ValidEmail reports whether s is a syntactically valid email address.
func ValidEmail(s string) bool {
	return structValidator().Var(s, "email") == nil
}
