// internal/validator/validator.go
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var (
	nonSpace   = regexp.MustCompile(`\S`)
	whitespace = regexp.MustCompile(`\s`)
)

func init() {
	Validate = validator.New()

	// Регистрируем валидацию: строка не пустая и не только пробелы
	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonSpace.MatchString(fl.Field().String())
	})

	// Логин без пробелов
	_ = Validate.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !whitespace.MatchString(fl.Field().String())
	})

	// Длина в байтах UTF-8 (bcrypt принимает не больше 72 байт)
	_ = Validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
}

// Struct validates v and folds field errors into one readable message.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var errs []string
	for _, e := range fieldErrs {
		errs = append(errs, fieldErrorToString(e))
	}
	return errors.New(strings.Join(errs, "; "))
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", e.Field())
	case "nospace":
		return fmt.Sprintf("%s must not contain spaces", e.Field())
	case "max", "maxbytes":
		return fmt.Sprintf("%s is too long", e.Field())
	case "min", "gte":
		return fmt.Sprintf("%s is too small", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
