package utils

import (
	"reflect"
	"strings"

	"github.com/brightclass/assessment-delivery/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps a validator.Validate instance with the custom rules
// registered. Services share one instance.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	RegisterCustomValidators(v)
	return &Validator{validate: v}
}

// Validate checks struct tags and returns the raw validator error so callers
// can convert it with errors.ToValidationErrors for responses.
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// Engine exposes the underlying validate instance for binding integration
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Custom validation functions

func ValidateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.MultipleChoice,
		models.TrueFalse,
		models.ShortAnswer,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateAssessmentStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.AssessmentStatus{
		models.StatusDraft,
		models.StatusActive,
		models.StatusArchived,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("assessment_status", ValidateAssessmentStatus)

	// Report field names from json tags so error messages match the wire format
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
