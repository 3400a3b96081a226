package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var (
	ErrValidationFailed       = errors.New("validation failed")
	ErrFieldRequired          = errors.New("field is required")
	ErrFieldOneOf             = errors.New("field must be one of allowed values")
	ErrFieldMaxItems          = errors.New("field exceeds maximum size")
	ErrFieldPositiveAmount    = errors.New("field must be a positive amount")
	ErrFieldIdentity          = errors.New("field must be a valid identity")
	ErrFieldUUID              = errors.New("field must be a valid UUID")
	ErrBodyParseFailed        = errors.New("failed to parse request body")
	ErrUnsupportedContentType = errors.New("Content-Type must be application/json")
	ErrValidatorInit          = errors.New("validator initialization failed")
)

// customRules are the gateway's own validate tags. Empty values pass so that
// "required" is the tag that reports them.
var customRules = map[string]func(string) bool{
	"positive_amount": func(s string) bool {
		d, err := decimal.NewFromString(s)
		return err == nil && d.IsPositive() && gated.AmountWithinBounds(d)
	},
	"identity": func(s string) bool {
		id, err := gated.ParseIdentity(s)
		return err == nil && string(id) == s
	},
}

// tagErrors maps a failed tag to the sentinel it is reported with.
var tagErrors = map[string]error{
	"required":        ErrFieldRequired,
	"oneof":           ErrFieldOneOf,
	"max":             ErrFieldMaxItems,
	"positive_amount": ErrFieldPositiveAmount,
	"identity":        ErrFieldIdentity,
	"uuid":            ErrFieldUUID,
}

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
	validatorErr  error
)

// GetValidator returns the shared validator with the custom rules registered.
func GetValidator() (*validator.Validate, error) {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Errors name fields the way clients send them.
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}

			if name == "" {
				return field.Name
			}

			return name
		})

		for tag, ok := range customRules {
			check := ok
			if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				s := fl.Field().String()
				return s == "" || check(s)
			}); err != nil {
				validatorErr = fmt.Errorf("%w: register %q: %w", ErrValidatorInit, tag, err)
				return
			}
		}

		validatorInst = v
	})

	return validatorInst, validatorErr
}

// ValidateStruct runs the validate tags of payload and reports the first
// violation wrapped in its field sentinel, e.g. "steps[1].amount".
func ValidateStruct(payload any) error {
	v, err := GetValidator()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	err = v.Struct(payload)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) || len(violations) == 0 {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	first := violations[0]
	field := first.Namespace()

	if _, rest, found := strings.Cut(field, "."); found {
		field = rest
	}

	sentinel, known := tagErrors[first.Tag()]
	if !known {
		return fmt.Errorf("%w: '%s' failed '%s' check", ErrValidationFailed, field, first.Tag())
	}

	if first.Param() != "" {
		return fmt.Errorf("%w: '%s' (%s=%s)", sentinel, field, first.Tag(), first.Param())
	}

	return fmt.Errorf("%w: '%s'", sentinel, field)
}

// ParseBodyAndValidate decodes a JSON body into payload and validates it.
// A missing Content-Type is accepted.
func ParseBodyAndValidate(c *fiber.Ctx, payload any) error {
	if ct := c.Get(fiber.HeaderContentType); ct != "" && !strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		return ErrUnsupportedContentType
	}

	if err := c.BodyParser(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrBodyParseFailed, err)
	}

	return ValidateStruct(payload)
}
