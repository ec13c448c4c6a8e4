package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

// Validate checks the validate tags of config. Every invalid field is logged and reported as an
// ErrInvalidArgument inside the returned multierror.
func Validate(config interface{}) error {
	err := validator.New().Struct(config)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.WithStack(err)
	}
	LogValidationErrors(validationErrors)

	var result *multierror.Error
	for _, fieldErr := range validationErrors {
		result = multierror.Append(result, &gateerrors.ErrInvalidArgument{
			Name:    stripPrefix(fieldErr.Namespace()),
			Value:   fmt.Sprintf("%v", fieldErr.Value()),
			Message: "failed " + fieldErr.Tag() + " check",
		})
	}
	return result.ErrorOrNil()
}

func LogValidationErrors(err validator.ValidationErrors) {
	for _, err := range err {
		fieldName := stripPrefix(err.Namespace())
		tag := err.Tag()
		switch tag {
		case "required":
			log.Errorf("ConfigError: Field %s is required but was not found", fieldName)
		default:
			log.Errorf("ConfigError: Field %s has invalid value %v: %s", fieldName, err.Value(), tag)
		}
	}
}

func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
