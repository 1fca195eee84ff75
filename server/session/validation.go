package session

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

const MIN_PASSWORD_LENGTH = 6

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type TripInput struct {
	Departure   string `json:"departure" validate:"notblank"`
	Destination string `json:"destination" validate:"notblank"`
	ETA         string `json:"eta" validate:"notblank"`
}

// ContactInput describes a contact to add for the current user.
// A nil LinkedUserID links the contact to the current user.
type ContactInput struct {
	Name               string `json:"name" validate:"notblank"`
	PhoneNumber        string `json:"phone_number" validate:"notblank"`
	LinkedUserID       *uint  `json:"linked_user_id"`
	IsEmergencyContact bool   `json:"is_emergency_contact"`
}

func validateInput(op string, input interface{}) *Error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &Error{Kind: Validation, Op: op, Message: "Invalid input", Err: err}
	}

	details := []string{}
	for _, fieldErr := range validationErrs {
		details = append(details, describeFieldError(fieldErr))
	}

	return &Error{Kind: Validation, Op: op, Message: "Invalid input", Details: details}
}

func describeFieldError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fieldErr.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fieldErr.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fieldErr.Field(), fieldErr.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fieldErr.Field(), fieldErr.Param())
	}
	return fmt.Sprintf("%s failed '%s' validation", fieldErr.Field(), fieldErr.Tag())
}
