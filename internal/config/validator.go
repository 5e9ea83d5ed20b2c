package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags and cross-field
// rules, mirroring the source's validator.v10-based approach.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateAdminAuth(); err != nil {
		return err
	}
	if err := c.validateHostAdapter(); err != nil {
		return err
	}

	return nil
}

// validateAdminAuth ensures an enabled handshake always carries a
// secret hash to check incoming connections against.
func (c *Config) validateAdminAuth() error {
	if c.AdminAuth.Enabled && c.AdminAuth.SecretHash == "" {
		return errors.New("admin_auth: secret_hash is required when enabled")
	}
	return nil
}

// validateHostAdapter ensures the posixfs adapter always has at least
// one root to watch.
func (c *Config) validateHostAdapter() error {
	if c.HostAdapter.Kind == "posixfs" && len(c.HostAdapter.WatchRoots) == 0 {
		return errors.New("host_adapter: watch_roots must list at least one directory for kind=posixfs")
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
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

// formatSingleValidationError creates a user-friendly message for a
// single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required given the current configuration", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
