package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/florianilch/infusionsoft/internal/crm"
	"github.com/florianilch/infusionsoft/internal/tokensource"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
// Nested keys are separated by a double underscore: INFUSIONSOFT_AUTH__CLIENT_ID.
const EnvPrefix = "INFUSIONSOFT_"

// TokenStorageType selects where the CLI keeps tokens.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	TokenStorageTypeEnv     TokenStorageType = "env"
)

// Config is the complete CLI configuration.
type Config struct {
	Auth AuthConfig `koanf:"auth"`
	API  APIConfig  `koanf:"api"`
	Log  LogConfig  `koanf:"log"`
}

// AuthConfig holds the application credentials and token storage settings.
type AuthConfig struct {
	ClientID     string           `koanf:"client_id" validate:"required"`
	ClientSecret string           `koanf:"client_secret" validate:"required"`
	RedirectURL  string           `koanf:"redirect_url" validate:"required,url"`
	Storage      TokenStorageType `koanf:"storage" validate:"required,oneof=file keyring env"`
	TokenFile    string           `koanf:"token_file" validate:"required_if=Storage file"`

	// Only read with env storage.
	AccessToken  string `koanf:"access_token"`
	RefreshToken string `koanf:"refresh_token"`
}

// APIConfig holds provider endpoints and transport settings.
type APIConfig struct {
	BaseURL  string        `koanf:"base_url" validate:"required,url"`
	AuthURL  string        `koanf:"auth_url" validate:"required,url"`
	TokenURL string        `koanf:"token_url" validate:"required,url"`
	Timeout  time.Duration `koanf:"timeout" validate:"gte=0"`
}

// LogConfig selects log verbosity and output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `koanf:"format" validate:"required,oneof=text json otel otlp-http otlp-grpc"`
}

// Credentials returns the application credentials for the token flow.
func (c AuthConfig) Credentials() tokensource.Credentials {
	return tokensource.Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}

// defaults are the lowest-precedence layer.
func defaults() map[string]any {
	return map[string]any{
		"auth.redirect_url": "http://127.0.0.1:8976/callback",
		"auth.storage":      string(TokenStorageTypeKeyring),
		"api.base_url":      crm.DefaultBaseURL,
		"api.auth_url":      tokensource.Endpoint.AuthURL,
		"api.token_url":     tokensource.Endpoint.TokenURL,
		"api.timeout":       "0s",
		"log.level":         "info",
		"log.format":        "text",
	}
}

// LoadConfig layers defaults, the optional TOML file at path, environment
// variables from environ and overrides (dotted keys, e.g. "auth.client_id"),
// in increasing precedence, then validates the result.
func LoadConfig(path string, overrides map[string]any, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if environ != nil {
		envProvider := env.Provider(".", env.Opt{
			Prefix: EnvPrefix,
			TransformFunc: func(key, value string) (string, any) {
				key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
				return strings.ReplaceAll(key, "__", "."), value
			},
			EnvironFunc: environ,
		})
		if err := k.Load(envProvider, nil); err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
