package account

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength matches the register form's minimum.
const MinPasswordLength = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

// SignUpInput holds the fields of a sign-up request.
type SignUpInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=256"`
}

// Normalized returns a copy with a trimmed name and a normalized email.
// The password is left as given.
func (in SignUpInput) Normalized() SignUpInput {
	return SignUpInput{
		Name:     strings.TrimSpace(in.Name),
		Email:    NormalizeEmail(in.Email),
		Password: in.Password,
	}
}

// Validate checks the normalized input. Errors wrap ErrInvalidInput.
func (in SignUpInput) Validate() error {
	if err := validate.Struct(in.Normalized()); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, formatValidationErrors(err))
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, e.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}
