package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	apperrors "github.com/raphaelgruber/girs/internal/errors"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		// "password" requires at least one uppercase letter and one digit.
		_ = validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			var upper, digit bool
			for _, r := range fl.Field().String() {
				switch {
				case unicode.IsUpper(r):
					upper = true
				case unicode.IsDigit(r):
					digit = true
				}
			}
			return upper && digit
		})
	})
	return validate
}

// Validate checks input against its validate tags. Failures wrap
// errors.ErrValidation with a readable per-field message.
func Validate(input any) error {
	err := getValidator().Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "password":
		return fmt.Sprintf("%s must contain an uppercase letter and a number", fe.Field())
	case "eqfield":
		return "passwords do not match"
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", fe.Field())
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
	}
}
