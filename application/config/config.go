// Package config holds the tunables of the guest-side host call layer.
package config

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ocwasm/ocsafe/domain/errors"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = validator.New()

// Config bounds buffer growth, size negotiation and value nesting.
type Config struct {
	// InitialBufferSize is the starting capacity of each arena buffer.
	InitialBufferSize int `yaml:"initial_buffer_size" json:"initial_buffer_size" validate:"gte=1" jsonschema:"minimum=1,default=256"`

	// MaxBufferSize caps arena growth. Larger payloads fail with BufferTooLarge.
	MaxBufferSize int `yaml:"max_buffer_size" json:"max_buffer_size" validate:"gtefield=InitialBufferSize" jsonschema:"default=1048576"`

	// MaxNegotiationRounds bounds the host calls spent on one size negotiation.
	MaxNegotiationRounds int `yaml:"max_negotiation_rounds" json:"max_negotiation_rounds" validate:"gte=2,lte=16" jsonschema:"minimum=2,maximum=16,default=4"`

	// MaxDecodeDepth bounds the nesting of arrays and tables.
	MaxDecodeDepth int `yaml:"max_decode_depth" json:"max_decode_depth" validate:"gte=1,lte=256" jsonschema:"minimum=1,maximum=256,default=32"`

	// LogLevel is the minimum level of records routed to the host log.
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		InitialBufferSize:    256,
		MaxBufferSize:        1 << 20,
		MaxNegotiationRounds: 4,
		MaxDecodeDepth:       32,
		LogLevel:             "info",
	}
}

// Validate checks the configuration against its constraints.
// The first violated field is reported as a *errors.ConfigError.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &errors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("failed on '%s' rule (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &errors.ConfigError{Err: err}
}

// Level returns LogLevel as a slog level.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load parses YAML over the defaults and validates the result.
// Keys absent from data keep their default values.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &errors.ConfigError{Err: fmt.Errorf("failed to parse YAML: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
