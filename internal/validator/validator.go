package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// Validator wraps go-playground/validator with the rules of this service
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single failed rule
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// New creates a validator with the custom rules registered
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report json names rather than Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerRules()
	return v
}

// Validate returns ValidationErrors (as error) when s breaks any rule
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts validator output into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// TitleError is returned for a bank title that is too long
func TitleError(title string) ValidationErrors {
	return ValidationErrors{{
		Field:   "title",
		Message: fmt.Sprintf("must be at most %d characters", models.MaxTitleLength),
		Value:   title,
		Rule:    "bank_title",
	}}
}

func (v *Validator) registerRules() {
	_ = v.validate.RegisterValidation("context_type", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseContextType(fl.Field().String())
		return ok
	})

	// Blank titles are allowed and later defaulted from the owning context
	_ = v.validate.RegisterValidation("bank_title", func(fl validator.FieldLevel) bool {
		return ValidTitle(fl.Field().String())
	})
}

// ValidTitle reports whether a bank title fits the column once trimmed
func ValidTitle(title string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(title)) <= models.MaxTitleLength
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "context_type":
		return "must be Account or Course"
	case "bank_title":
		return fmt.Sprintf("must be at most %d characters", models.MaxTitleLength)
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
