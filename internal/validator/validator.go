package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

var (
	phonePattern       = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	subjectCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,20}$`)
)

const (
	MinExamDuration = 1
	MaxExamDuration = 24 * 60
)

// ValidationError represents a single field validation failure
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

// Validator wraps go-playground validator with the service's custom rules
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with all custom rules registered
func New() *Validator {
	validate := validator.New()

	// Report JSON field names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerRules()
	return v
}

// Validate validates a struct and returns ValidationErrors on failure
func (v *Validator) Validate(s interface{}) error {
	if errs := v.validateStruct(s); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *Validator) validateStruct(s interface{}) ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return ToValidationErrors(err)
}

// ToValidationErrors converts go-playground errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	result := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		result = append(result, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return result
}

func (v *Validator) registerRules() {
	// Exam duration in minutes
	v.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= MinExamDuration && d <= MaxExamDuration
	})

	v.validate.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= models.MinDifficulty && d <= models.MaxDifficulty
	})

	v.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})

	v.validate.RegisterValidation("subject_code", func(fl validator.FieldLevel) bool {
		return subjectCodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})

	v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "alphanum":
		return "must contain only letters and digits"
	case "exam_duration":
		return fmt.Sprintf("must be between %d and %d minutes", MinExamDuration, MaxExamDuration)
	case "difficulty":
		return fmt.Sprintf("must be between %d and %d", models.MinDifficulty, models.MaxDifficulty)
	case "user_role":
		return "must be one of student, teacher, hod, admin"
	case "subject_code":
		return "must be 2-20 letters, digits, '-' or '_'"
	case "phone":
		return "must be a valid phone number"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// IsValidEmail reports whether s passes the same email rule used on requests.
func (v *Validator) IsValidEmail(s string) bool {
	return v.validate.Var(s, "required,email") == nil
}

// IsValidPhone reports whether s looks like a phone number.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}
