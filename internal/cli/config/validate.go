package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/leapcurate/internal/coverage"
)

var validate = newValidator()

// newValidator reports fields by their koanf key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", configPath(fe.Namespace()), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(c.Coverage.Dimensions) > 0 {
		if err := coverage.ValidateDimensions(c.Coverage.Dimensions); err != nil {
			return fmt.Errorf("invalid configuration: coverage.dimensions: %w", err)
		}
	}
	return nil
}

// configPath turns "Config.backend.url" into "backend.url".
func configPath(ns string) string {
	return strings.TrimPrefix(ns, "Config.")
}
