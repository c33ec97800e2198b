package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so messages match what the caller sent.
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = val.RegisterValidation("hexcolor", func(fl validator.FieldLevel) bool {
		return HexColor(fl.Field().String())
	})
	_ = val.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		return Date(fl.Field().String())
	})
	_ = val.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return val
}

// HexColor reports whether c is a #RRGGBB colour.
func HexColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// Date reports whether d is a YYYY-MM-DD calendar date.
func Date(d string) bool {
	_, err := time.Parse("2006-01-02", d)
	return err == nil
}

// Struct validates s against its `validate` tags. Pointer fields tagged
// omitempty are only checked when set.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, describe(f))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Var validates a single value against tag, naming it name in the message.
func Var(name string, value any, tag string) error {
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Replace(describe(fields[0]), fields[0].Field(), name, 1))
}

func describe(f validator.FieldError) string {
	switch f.Tag() {
	case "required", "notblank":
		return f.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f.Field(), f.Param())
	case "hexcolor":
		return f.Field() + " must be a #RRGGBB colour"
	case "date":
		return f.Field() + " must be a YYYY-MM-DD date"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", f.Field(), f.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", f.Field(), f.Param())
	default:
		return fmt.Sprintf("%s failed %s", f.Field(), f.Tag())
	}
}
