package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers storefront-specific validation rules.
// Must be called before validating StorefrontConfig.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("storage_backend", validateStorageBackend); err != nil {
		return fmt.Errorf("failed to register storage_backend validator: %w", err)
	}
	return nil
}

func validateStorageBackend(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case BackendFile, BackendSQLite, BackendMemory:
		return true
	}
	return false
}

// Validate validates the StorefrontConfig using struct tags and cross-field rules.
func (c *StorefrontConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if c.Storage.Backend != BackendMemory && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage: path is required for the %s backend", c.Storage.Backend)
	}

	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "storage_backend":
		return fmt.Sprintf("%s must be 'file', 'sqlite' or 'memory'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
