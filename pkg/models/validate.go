package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("models: register %s validation: %v", tag, err))
		}
	}
	must("network_type", func(fl validator.FieldLevel) bool {
		return NetworkType(fl.Field().String()).Valid()
	})
	must("environment", func(fl validator.FieldLevel) bool {
		return Environment(fl.Field().String()).Valid()
	})
	must("traffic_profile", func(fl validator.FieldLevel) bool {
		return TrafficProfile(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks the configuration against the selector domains.
// The returned error wraps ErrInvalidConfiguration.
func (c Configuration) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be between %d and %d, got %v", fe.Field(), MinDevices, MaxDevices, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s has unsupported value %q", fe.Field(), fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, strings.Join(msgs, "; "))
}
