package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const validationErrorFormat = "%s: validation failed on '%s' tag (value: %v)"

var validate = validator.New()

// Validate checks the resolved configuration against its struct tags.
func Validate(configuration *ApplicationConfiguration) error {
	if err := validate.Struct(configuration); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError reports the first failing field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fieldError := validationErrs[0]
		return fmt.Errorf(validationErrorFormat, fieldError.Namespace(), fieldError.Tag(), fieldError.Value())
	}
	return err
}
