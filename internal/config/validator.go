package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	releaseerrors "github.com/strapi/strapi-sub004/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "" || name == "-" {
				return strings.ToLower(field.Name)
			}
			return name
		})

		_ = v.RegisterValidation("iana_timezone", func(fl validator.FieldLevel) bool {
			return IsTimezone(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// IsTimezone reports whether name is empty or a loadable IANA zone.
func IsTimezone(name string) bool {
	if name == "" {
		return true
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if cfg == nil {
		return releaseerrors.NewValidationError("config", "configuration is nil", nil)
	}
	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}
	return nil
}

// convertValidationError turns the first validator failure into a
// ValidationError addressed by its YAML path.
func convertValidationError(err error) error {
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		ve := ves[0]
		field := strings.TrimPrefix(ve.Namespace(), "Config.")
		return releaseerrors.NewValidationError(field, fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag()), err)
	}
	return releaseerrors.NewValidationError("config", err.Error(), err)
}
