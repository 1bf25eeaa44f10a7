package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"erpcore/internal/apperrors"

	"github.com/go-playground/validator/v10"
)

// Validator validates request payloads through struct tags. Besides the
// built-in tags it understands "cpf" and "uf" (two-letter state code).
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return IsValidCPF(fl.Field().String())
	})
	_ = v.RegisterValidation("uf", func(fl validator.FieldLevel) bool {
		return IsStateCode(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct returns nil or a validation *apperrors.Error with one message per field.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Internal(err, "validate request")
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	return apperrors.Validation("invalid request", details...)
}

// IsStateCode reports whether s is exactly two ASCII letters once trimmed.
func IsStateCode(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", f)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", f)
	case "cpf":
		return fmt.Sprintf("%s must be a valid CPF", f)
	case "uf":
		return fmt.Sprintf("%s must be a two-letter state code", f)
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", f, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s characters", f, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", f, strings.ToLower(fe.Param()[:1])+fe.Param()[1:])
	default:
		return fmt.Sprintf("%s is invalid (%s)", f, fe.Tag())
	}
}

var shared = NewValidator()

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return shared.v.Var(s, "required,email") == nil
}
