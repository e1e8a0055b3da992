package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"intake/internal/models"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, an optional YAML file, the
// legacy environment names and finally the INTAKE_* environment variables.
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Legacy names first so INTAKE_* wins when both are set.
	loadLegacyEnvironment(config)
	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// deprecatedConfig mirrors keys from older config layouts.
type deprecatedConfig struct {
	Security struct {
		RateLimit interface{} `yaml:"rate_limit"`
	} `yaml:"security"`
	RateLimit interface{} `yaml:"rate_limit"`
	Captcha   interface{} `yaml:"captcha"`
	Cache     interface{} `yaml:"cache"`
}

// warnDeprecatedKeys logs a warning for each moved key. The main decoder
// ignores them, so startup continues with the defaults for those settings.
func warnDeprecatedKeys(data []byte) {
	var dep deprecatedConfig
	if err := yaml.Unmarshal(data, &dep); err != nil {
		return
	}
	if dep.Security.RateLimit != nil {
		slog.Warn("Config key has moved; use admission.rate_limit", "config_key", "security.rate_limit")
	}
	if dep.RateLimit != nil {
		slog.Warn("Config key has moved; use admission.rate_limit", "config_key", "rate_limit")
	}
	if dep.Captcha != nil {
		slog.Warn("Config key has moved; use admission.captcha", "config_key", "captcha")
	}
	if dep.Cache != nil {
		slog.Warn("Config key is no longer supported; use storage.cache_ttl", "config_key", "cache")
	}
}

func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnDeprecatedKeys(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadLegacyEnvironment honours the variable names existing deployments of
// the contact backend already set.
func loadLegacyEnvironment(config *models.Config) {
	setString(&config.Environment, "ENVIRONMENT")

	if origins := splitList(os.Getenv("CORS_ORIGINS")); len(origins) > 0 {
		config.Server.CORS.AllowedOrigins = origins
	} else if frontend := strings.TrimSpace(os.Getenv("FRONTEND_URL")); frontend != "" {
		config.Server.CORS.AllowedOrigins = []string{frontend}
	}

	if url := strings.TrimSpace(os.Getenv("DATABASE_URL")); url != "" {
		applyDatabaseURL(&config.Storage, url)
	}

	setInt(&config.Admission.RateLimit.Requests, "RATE_LIMIT_QTY")
	setInt(&config.Admission.RateLimit.WindowSeconds, "RATE_LIMIT_WINDOW")
	setBool(&config.Admission.Captcha.Enabled, "CAPTCHA_ENABLED")
	setString(&config.Admission.Captcha.TurnstileSecret, "TURNSTILE_SECRET_KEY")
	setString(&config.Admission.Captcha.RecaptchaSecret, "RECAPTCHA_SECRET_KEY")

	setString(&config.Scoring.APIKey, "OPENAI_API_KEY")
	setString(&config.Scoring.Model, "LEAD_SCORE_MODEL")
	setBool(&config.Scoring.Enabled, "AI_SCORING_ENABLED")

	setString(&config.Mirror.APIKey, "NOTION_API_KEY")
	setString(&config.Mirror.DatabaseID, "NOTION_DATABASE_ID")
	setBool(&config.Mirror.Enabled, "NOTION_ENABLED")

	setString(&config.Notify.Resend.APIKey, "RESEND_API_KEY")
	setString(&config.Notify.From, "RESEND_FROM")
	if to := splitList(os.Getenv("CONTACT_TO_EMAIL")); len(to) > 0 {
		config.Notify.To = to
	}
}

// applyDatabaseURL maps a SQLAlchemy-style URL onto the storage section.
func applyDatabaseURL(storage *models.StorageConfig, url string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		storage.Type = models.StorageTypePostgres
		storage.Database.DSN = url
	case strings.HasPrefix(url, "sqlite:///"):
		storage.Type = models.StorageTypeSQLite
		storage.Database.DSN = strings.TrimPrefix(url, "sqlite:///")
	default:
		slog.Warn("Ignoring DATABASE_URL with unsupported scheme", "env", "DATABASE_URL")
	}
}

func loadFromEnvironment(config *models.Config) {
	setString(&config.Environment, "INTAKE_ENVIRONMENT")

	// Server configuration
	setInt(&config.Server.Port, "INTAKE_PORT")
	setString(&config.Server.Host, "INTAKE_HOST")
	setDuration(&config.Server.ReadTimeout, "INTAKE_READ_TIMEOUT")
	setDuration(&config.Server.WriteTimeout, "INTAKE_WRITE_TIMEOUT")
	setDuration(&config.Server.IdleTimeout, "INTAKE_IDLE_TIMEOUT")
	setBool(&config.Server.TLSEnabled, "INTAKE_TLS_ENABLED")
	setString(&config.Server.TLSCertFile, "INTAKE_TLS_CERT_FILE")
	setString(&config.Server.TLSKeyFile, "INTAKE_TLS_KEY_FILE")
	setInt(&config.Server.TrustedProxies, "INTAKE_TRUSTED_PROXIES")
	if origins := splitList(os.Getenv("INTAKE_CORS_ORIGINS")); len(origins) > 0 {
		config.Server.CORS.AllowedOrigins = origins
	}

	// Storage configuration
	setString(&config.Storage.Type, "INTAKE_STORAGE_TYPE")
	setString(&config.Storage.Path, "INTAKE_STORAGE_PATH")
	setString(&config.Storage.Database.DSN, "INTAKE_DATABASE_DSN")
	setInt(&config.Storage.Database.MaxOpenConns, "INTAKE_DATABASE_MAX_OPEN_CONNS")

	// Admission configuration
	setInt(&config.Admission.RateLimit.Requests, "INTAKE_RATE_LIMIT_REQUESTS")
	setInt(&config.Admission.RateLimit.WindowSeconds, "INTAKE_RATE_LIMIT_WINDOW_SECONDS")
	setInt(&config.Admission.RateLimit.MaxKeys, "INTAKE_RATE_LIMIT_MAX_KEYS")
	setBool(&config.Admission.Captcha.Enabled, "INTAKE_CAPTCHA_ENABLED")
	setString(&config.Admission.Captcha.TurnstileSecret, "INTAKE_TURNSTILE_SECRET")
	setString(&config.Admission.Captcha.RecaptchaSecret, "INTAKE_RECAPTCHA_SECRET")

	setString(&config.Security.AdminToken, "INTAKE_ADMIN_TOKEN")

	// Collaborators
	setBool(&config.Scoring.Enabled, "INTAKE_SCORING_ENABLED")
	setString(&config.Scoring.APIKey, "INTAKE_SCORING_API_KEY")
	setString(&config.Scoring.Model, "INTAKE_SCORING_MODEL")
	setBool(&config.Mirror.Enabled, "INTAKE_MIRROR_ENABLED")
	setString(&config.Mirror.APIKey, "INTAKE_MIRROR_API_KEY")
	setString(&config.Mirror.DatabaseID, "INTAKE_MIRROR_DATABASE_ID")
	setString(&config.Notify.Provider, "INTAKE_NOTIFY_PROVIDER")
	setString(&config.Notify.From, "INTAKE_NOTIFY_FROM")
	if to := splitList(os.Getenv("INTAKE_NOTIFY_TO")); len(to) > 0 {
		config.Notify.To = to
	}
	setString(&config.Notify.Resend.APIKey, "INTAKE_RESEND_API_KEY")
	setString(&config.Notify.SMTP.Host, "INTAKE_SMTP_HOST")
	setInt(&config.Notify.SMTP.Port, "INTAKE_SMTP_PORT")
	setString(&config.Notify.SMTP.Username, "INTAKE_SMTP_USERNAME")
	setString(&config.Notify.SMTP.Password, "INTAKE_SMTP_PASSWORD")
	setDuration(&config.SideTasks.Timeout, "INTAKE_SIDE_TASK_TIMEOUT")

	// Logging configuration
	setString(&config.Logging.Level, "INTAKE_LOG_LEVEL")
	setString(&config.Logging.Format, "INTAKE_LOG_FORMAT")
	setString(&config.Logging.Output, "INTAKE_LOG_OUTPUT")
	setString(&config.Logging.FilePath, "INTAKE_LOG_FILE_PATH")

	// Metrics and tracing
	setBool(&config.Metrics.Enabled, "INTAKE_METRICS_ENABLED")
	setString(&config.Metrics.Path, "INTAKE_METRICS_PATH")
	setInt(&config.Metrics.Port, "INTAKE_METRICS_PORT")
	setBool(&config.Observability.Tracing.Enabled, "INTAKE_TRACING_ENABLED")
	setString(&config.Observability.Tracing.Exporter, "INTAKE_TRACING_EXPORTER")
	setString(&config.Observability.Tracing.OTLPEndpoint, "INTAKE_OTLP_ENDPOINT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("Ignoring non-integer environment value", "env", key)
		return
	}
	*dst = n
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("Ignoring invalid duration environment value", "env", key)
		return
	}
	*dst = d
}

// setBool accepts the spellings older deployments used for their switches.
func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		slog.Warn("Ignoring invalid boolean environment value", "env", key)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SaveExample writes the default configuration with placeholder secrets.
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()
	config.Security.AdminToken = "change-me"
	config.Notify.To = []string{"owner@example.com"}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
