package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"parceltracker/internal/core/proxy"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// DefaultLanguage is the language used when a request carries none.
	// When unset it is derived from LC_ALL/LANG, falling back to "en".
	DefaultLanguage string `mapstructure:"DEFAULT_LANGUAGE"`
	// StrictErrors makes carrier failures propagate as errors instead of
	// being converted into degraded fallback responses.
	StrictErrors bool `mapstructure:"STRICT_ERRORS" default:"false"`
	// RedisURL enables the Redis-backed token cache when set.
	RedisURL string `mapstructure:"REDIS_URL"`

	// HTTP holds the outbound transport configuration.
	HTTP HTTPConfig `mapstructure:",squash"`

	// Proxy optionally routes carrier requests through an HTTP proxy.
	Proxy proxy.Settings `mapstructure:",squash"`

	// Carriers holds per-carrier credentials and server selection.
	Carriers CarrierConfig `mapstructure:",squash"`
}

// HTTPConfig holds outbound HTTP transport settings shared by all carriers.
type HTTPConfig struct {
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `mapstructure:"HTTP_TIMEOUT_SECONDS" default:"20"`
	// MaxRetries is the number of attempts for retryable failures.
	MaxRetries int `mapstructure:"HTTP_MAX_RETRIES" default:"3"`
}

// CarrierConfig holds credentials for carriers that require them.
// Credentials are optional at load time: a carrier without credentials is
// still registered and fails with a credential error only when queried.
type CarrierConfig struct {
	// DHLAPIKey is the UTAPI subscription key.
	DHLAPIKey string `mapstructure:"DHL_API_KEY"`
	// DHLServer selects the UTAPI environment: "prod" or "test".
	DHLServer string `mapstructure:"DHL_SERVER" default:"prod"`
	// GLSClientID is the OAuth2 client-credentials id.
	GLSClientID string `mapstructure:"GLS_CLIENT_ID"`
	// GLSClientSecret is the OAuth2 client-credentials secret.
	GLSClientSecret string `mapstructure:"GLS_CLIENT_SECRET"`
	// GLSServer selects the GLS environment: "prod" or "test".
	GLSServer string `mapstructure:"GLS_SERVER" default:"prod"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if config.DefaultLanguage == "" {
		config.DefaultLanguage = systemLanguage()
	}
	config.DefaultLanguage = strings.ToLower(config.DefaultLanguage)

	return &config, nil
}

// systemLanguage derives a two-letter language from the process locale
// (LC_ALL then LANG, e.g. "es_ES.UTF-8" -> "es"), defaulting to "en".
func systemLanguage() string {
	for _, env := range []string{"LC_ALL", "LANG"} {
		val := os.Getenv(env)
		if val == "" || val == "C" || strings.HasPrefix(val, "C.") || val == "POSIX" {
			continue
		}
		lang := strings.SplitN(val, ".", 2)[0]
		lang = strings.SplitN(lang, "_", 2)[0]
		if len(lang) >= 2 {
			return strings.ToLower(lang[:2])
		}
	}
	return "en"
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
