package node

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// identifierPattern — допустимое имя переменной.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Имена полей в сообщениях — как в JSON конфиге
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})

	return v
}

// IsIdentifier проверяет, годится ли строка как имя переменной.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// CheckStruct проверяет struct-теги validate и возвращает человекочитаемые ошибки.
func CheckStruct(v any) []string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return msgs
}

// describe формирует сообщение для одной ошибки поля.
func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "identifier":
		return fmt.Sprintf("%s must be a valid identifier", field)
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ValidateConfig декодирует сырой конфиг в C и проверяет его теги.
// Используется реализациями Validator.
func ValidateConfig[C any](raw any) (C, ValidationResult) {
	var zero C
	cfg, err := DecodeConfig(raw, zero)
	if err != nil {
		return cfg, Invalid(err.Error())
	}
	return cfg, Invalid(CheckStruct(cfg)...)
}
