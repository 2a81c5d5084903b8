package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"eventa/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type EventValidator struct {
	validate *validator.Validate
}

func NewEventValidator() *EventValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return &EventValidator{
		validate: v,
	}
}

func (v *EventValidator) Validate(event *model.Event) error {
	return v.validateStruct(event)
}

func (v *EventValidator) ValidateUpdate(update *model.EventUpdate) error {
	if update.IsEmpty() {
		return ValidationErrors{{Field: "body", Message: "at least one field must be provided"}}
	}
	if err := v.validateStruct(update); err != nil {
		return err
	}
	if update.Date != nil && update.Date.IsZero() {
		return ValidationErrors{{Field: "date", Message: "date is required"}}
	}
	return nil
}

func (v *EventValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		var message string

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be positive", err.Field())
		case "gte":
			message = fmt.Sprintf("%s must be non-negative", err.Field())
		default:
			message = fmt.Sprintf("%s failed %s validation", err.Field(), err.Tag())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
