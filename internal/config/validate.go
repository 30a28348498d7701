package config

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rileyhilliard/statwatch/internal/errors"
)

var structValidator = newStructValidator()

// newStructValidator reports fields by their YAML key so messages match what
// the user wrote in .statwatch.yaml.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but statwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade statwatch to a newer release.")
	}

	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.New(errors.ErrConfig,
				describeField(fe),
				fmt.Sprintf("Check '%s' in your %s.", fieldKey(fe), ConfigFileName))
		}
		return errors.WrapWithCode(err, errors.ErrConfig, "Config validation failed", "")
	}

	if err := validateServer(cfg.Server); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'server' section in your "+ConfigFileName+".")
	}

	return nil
}

// validateServer checks URL schemes, which the struct tags cannot express.
func validateServer(s ServerConfig) error {
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("server.url must use http, https, ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server.url %q has no host", s.URL)
	}

	if s.APIURL != "" {
		api, err := url.Parse(s.APIURL)
		if err != nil {
			return fmt.Errorf("server.api_url is not a valid URL: %w", err)
		}
		if api.Scheme != "http" && api.Scheme != "https" {
			return fmt.Errorf("server.api_url must use http or https, got %q", api.Scheme)
		}
	}
	return nil
}

// fieldKey turns "Config.stream.reconnect_delay" into "stream.reconnect_delay".
func fieldKey(fe validator.FieldError) string {
	_, key, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return key
}

func describeField(fe validator.FieldError) string {
	key := fieldKey(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "url":
		return fmt.Sprintf("%s must be a URL like http://localhost:8080", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "startswith":
		return fmt.Sprintf("%s must start with %q", key, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", key, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", key, fe.Tag())
	}
}
