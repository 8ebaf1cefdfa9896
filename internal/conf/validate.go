// conf/validate.go

package conf

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/batatlas/batatlas/internal/errors"
)

var supportedDatastores = []string{"sqlite", "mysql", "postgres"}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := getValidator().Struct(settings); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			ve.Errors = append(ve.Errors, describeFieldError(fe))
		}
	}

	if err := validateDatastoreSettings(&settings.Datastore); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLoggingLevels(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// describeFieldError renders a validator error using config key names,
// e.g. "pipeline.finelevel must be >= pipeline.coarselevel".
func describeFieldError(fe validator.FieldError) string {
	// Namespace is "Settings.pipeline.finelevel"; drop the root type
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}

	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", key, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must be >= %s", key, strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

// validateDatastoreSettings checks that the selected backend has what it
// needs to connect.
func validateDatastoreSettings(settings *DatastoreSettings) error {
	var errs []string

	switch settings.Type {
	case "sqlite":
		if settings.SQLite.Path == "" {
			errs = append(errs, "datastore.sqlite.path is required for sqlite")
		}
	case "mysql":
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" || settings.MySQL.Username == "" {
			errs = append(errs, "datastore.mysql requires host, username and database")
		}
	case "postgres":
		if settings.Postgres.Host == "" || settings.Postgres.Database == "" || settings.Postgres.Username == "" {
			errs = append(errs, "datastore.postgres requires host, username and database")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("datastore settings errors: %v", errs)
	}
	return nil
}

func validateLoggingLevels(settings *Settings) error {
	valid := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}

	var bad []string
	check := func(key, level string) {
		if level != "" && !valid[level] {
			bad = append(bad, fmt.Sprintf("%s=%q", key, level))
		}
	}

	check("logging.default_level", settings.Logging.DefaultLevel)
	if settings.Logging.Console != nil {
		check("logging.console.level", settings.Logging.Console.Level)
	}
	if settings.Logging.FileOutput != nil {
		check("logging.file_output.level", settings.Logging.FileOutput.Level)
	}
	for module, level := range settings.Logging.ModuleLevels {
		check("logging.module_levels."+module, level)
	}

	if len(bad) > 0 {
		return fmt.Errorf("invalid log levels: %s", strings.Join(bad, ", "))
	}
	return nil
}
