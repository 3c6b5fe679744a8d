package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	// Database
	check(c.Database.URL != "", "DATABASE_URL is required")
	check(c.Database.MaxConns > 0, "DB_MAX_CONNS must be positive")
	check(c.Database.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
	check(c.Database.MaxConns >= c.Database.MinConns,
		"DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)

	// Server
	check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	check(c.Server.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	check(c.Server.RequestTimeout > 0, "SERVER_REQUEST_TIMEOUT must be positive")

	// Import
	check(c.Import.MaxFileSize > 0, "IMPORT_MAX_FILE_SIZE must be positive")
	check(c.Import.MaxConcurrent > 0, "IMPORT_MAX_CONCURRENT must be positive")
	check(c.Import.MaxWaitTime > 0, "IMPORT_MAX_WAIT_TIME must be positive")
	check(c.Import.Timeout > 0, "IMPORT_TIMEOUT must be positive")
	check(c.Import.ErrorLimit > 0, "IMPORT_ERROR_LIMIT must be positive")

	// Rate limit
	if c.Rate.Enabled {
		check(c.Rate.RequestsPerMinute > 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		check(c.Rate.ImportLimit > 0, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
		check(c.Rate.Burst > 0, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	// Auth
	if !c.Auth.Disabled {
		check(len(c.Auth.JWTSecret) >= 32, "AUTH_JWT_SECRET must be at least 32 bytes; set it or AUTH_DISABLED=true for development")
	} else {
		check(c.Auth.DevUser != "", "AUTH_DEV_USER must be set when AUTH_DISABLED is true")
	}
	check(c.Auth.TokenTTL > 0, "AUTH_TOKEN_TTL must be positive")

	// Metrics
	if c.Metrics.Enabled {
		check(strings.HasPrefix(c.Metrics.Path, "/"), "METRICS_PATH (%q) must start with /", c.Metrics.Path)
	}

	// Audit retention
	check(c.Audit.RetentionDays > 0, "AUDIT_RETENTION_DAYS must be positive")
	check(c.Audit.BatchSize > 0, "AUDIT_PRUNE_BATCH_SIZE must be positive")
	check(c.Audit.CheckInterval > 0, "AUDIT_PRUNE_INTERVAL must be positive")

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	check(validLevels[strings.ToLower(c.Logging.Level)],
		"LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	validFormats := map[string]bool{"text": true, "json": true}
	check(validFormats[strings.ToLower(c.Logging.Format)],
		"LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL and JWT secret are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d, Timeout: %s}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.Timeout)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Auth: {Secret: [MASKED], Disabled: %v}, ", c.Auth.Disabled)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
