package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/roach88/fichas/internal/ficha"
)

// Validator adapts go-playground/validator to echo. Failures are reported
// as ficha.ValidationError named after the JSON field.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that reports JSON field names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ficha.NewValidationError("", "%v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return ficha.NewValidationError(fe.Field(), "is required")
	case "gt":
		return ficha.NewValidationError(fe.Field(), "must be > %s", fe.Param())
	case "max":
		return ficha.NewValidationError(fe.Field(), "must be at most %s characters", fe.Param())
	default:
		return ficha.NewValidationError(fe.Field(), "failed %q check", fe.Tag())
	}
}

// Binder decodes request bodies and parameters with echo's default binder
// and turns decoding failures into validation errors.
type Binder struct {
	echo.DefaultBinder
}

// NewBinder creates a Binder.
func NewBinder() *Binder {
	return &Binder{}
}

// Bind implements echo.Binder.
func (b *Binder) Bind(i any, c echo.Context) error {
	if err := b.DefaultBinder.Bind(i, c); err != nil {
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			if he.Internal != nil {
				msg = he.Internal.Error()
			}
		}
		return ficha.NewValidationError("body", "%s", msg)
	}
	return nil
}
