package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv        string `validate:"oneof=dev prod test"`
	LogLevel      string `validate:"oneof=trace debug info warn error"`
	StoreDriver   string `validate:"oneof=file postgres"`
	StorePath     string `validate:"required_if=StoreDriver file"`
	DatabaseURL   string `validate:"required_if=StoreDriver postgres"`
	EncryptionKey string `validate:"required_if=StoreDriver postgres,omitempty,len=64,hexadecimal"`
}

var validate = validator.New()

// IsDev reports whether human-readable logging should be used.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	bindings := map[string]string{
		"app.env":        "APP_ENV",
		"log.level":      "LOG_LEVEL",
		"store.driver":   "STORE_DRIVER",
		"store.path":     "STORE_PATH",
		"database.url":   "DATABASE_URL",
		"encryption.key": "ENCRYPTION_KEY",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.path", "communicationhub.txt")

	cfg := Config{
		AppEnv:        strings.ToLower(v.GetString("app.env")),
		LogLevel:      strings.ToLower(v.GetString("log.level")),
		StoreDriver:   strings.ToLower(v.GetString("store.driver")),
		StorePath:     v.GetString("store.path"),
		DatabaseURL:   v.GetString("database.url"),
		EncryptionKey: v.GetString("encryption.key"),
	}

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, fmt.Errorf("invalid configuration: %s", describe(fieldErrs[0]))
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required_if":
		return e.Field() + " is required when " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "len":
		return e.Field() + " must be " + e.Param() + " characters long"
	case "hexadecimal":
		return e.Field() + " must be hex-encoded"
	default:
		return e.Field() + " failed validation: " + e.Tag()
	}
}
