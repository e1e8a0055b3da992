// Package models - Service configuration and operational settings.
// This file defines the configuration structures for every service component.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, admission, collaborators)
// - Defaults that run locally with no external accounts
// - Validation that catches misconfigurations at startup
// - Third-party integrations stay disabled until credentials are supplied
package models

import (
	"errors"
	"fmt"
	"time"
)

// Storage type constants
const (
	StorageTypeJSON     = "json"
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// Notification provider constants
const (
	NotifyProviderNone   = "none"
	NotifyProviderResend = "resend"
	NotifyProviderSMTP   = "smtp"
)

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server and network settings
// - Storage: Lead persistence
// - Admission: Rate limiting and CAPTCHA verification
// - Security: Access to the lead listing endpoint
// - Scoring, Mirror, Notify: best-effort third-party collaborators
// - SideTasks: Timeouts and circuit breaking for collaborator calls
// - Logging, Metrics, Observability: operational visibility
type Config struct {
	Environment   string              `yaml:"environment" json:"environment"`
	Server        ServerConfig        `yaml:"server" json:"server"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Admission     AdmissionConfig     `yaml:"admission" json:"admission"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Scoring       ScoringConfig       `yaml:"scoring" json:"scoring"`
	Mirror        MirrorConfig        `yaml:"mirror" json:"mirror"`
	Notify        NotifyConfig        `yaml:"notify" json:"notify"`
	SideTasks     SideTaskConfig      `yaml:"side_tasks" json:"side_tasks"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	// TrustedProxies is how many reverse proxies sit in front of the server.
	// Zero keys clients by the connection address and ignores X-Forwarded-For.
	TrustedProxies int        `yaml:"trusted_proxies" json:"trusted_proxies"`
	CORS           CORSConfig `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" json:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" json:"max_age"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path" json:"path"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	CacheTTL time.Duration  `yaml:"cache_ttl" json:"cache_ttl"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn" json:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" json:"max_open_conns"`
}

// AdmissionConfig groups the checks every submission passes before any
// side-effecting work.
type AdmissionConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Captcha   CaptchaConfig   `yaml:"captcha" json:"captcha"`
}

// RateLimitConfig configures the per-key sliding window. The same settings
// apply to every key dimension (ip, email) and to the chat endpoint.
type RateLimitConfig struct {
	Requests      int           `yaml:"requests" json:"requests"`
	WindowSeconds int           `yaml:"window_seconds" json:"window_seconds"`
	MaxKeys       int           `yaml:"max_keys" json:"max_keys"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// Window returns the window length as a duration.
func (rl RateLimitConfig) Window() time.Duration {
	return time.Duration(rl.WindowSeconds) * time.Second
}

// CaptchaConfig holds the kill-switch and vendor secrets. Turnstile takes
// priority over reCAPTCHA when both are set.
type CaptchaConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	TurnstileSecret   string        `yaml:"turnstile_secret" json:"-"`
	RecaptchaSecret   string        `yaml:"recaptcha_secret" json:"-"`
	TurnstileEndpoint string        `yaml:"turnstile_endpoint" json:"turnstile_endpoint,omitempty"`
	RecaptchaEndpoint string        `yaml:"recaptcha_endpoint" json:"recaptcha_endpoint,omitempty"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

type SecurityConfig struct {
	// AdminToken guards the lead listing endpoint. Empty disables the endpoint.
	AdminToken string `yaml:"admin_token" json:"-"`
}

type ScoringConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	APIKey  string        `yaml:"api_key" json:"-"`
	Model   string        `yaml:"model" json:"model"`
	BaseURL string        `yaml:"base_url" json:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Active reports whether scoring is switched on and has credentials.
func (sc ScoringConfig) Active() bool {
	return sc.Enabled && sc.APIKey != ""
}

type MirrorConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	APIKey            string        `yaml:"api_key" json:"-"`
	DatabaseID        string        `yaml:"database_id" json:"database_id"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	NotionVersion     string        `yaml:"notion_version" json:"notion_version"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

// Active reports whether mirroring is switched on and fully configured.
func (mc MirrorConfig) Active() bool {
	return mc.Enabled && mc.APIKey != "" && mc.DatabaseID != ""
}

type NotifyConfig struct {
	Provider string       `yaml:"provider" json:"provider"`
	From     string       `yaml:"from" json:"from"`
	To       []string     `yaml:"to" json:"to"`
	Resend   ResendConfig `yaml:"resend" json:"resend"`
	SMTP     SMTPConfig   `yaml:"smtp" json:"smtp"`
}

type ResendConfig struct {
	APIKey  string        `yaml:"api_key" json:"-"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type SMTPConfig struct {
	Host               string `yaml:"host" json:"host"`
	Port               int    `yaml:"port" json:"port"`
	Username           string `yaml:"username" json:"username"`
	Password           string `yaml:"password" json:"-"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

type SideTaskConfig struct {
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout" json:"breaker_timeout"`
	MaxFailures    uint32        `yaml:"max_failures" json:"max_failures"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration that runs locally out of the box.
//
// Default Values Rationale:
// - Port 8080: Standard non-privileged HTTP port
// - SQLite storage: durable without an external database
// - 5 requests / 60 seconds per key: the historical contact form limit
// - CAPTCHA kill-switch on: a configured secret is enforced, no secret means no check
// - Scoring, mirroring and email stay inert until credentials are supplied
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
			MaxBodyBytes: 64 << 10,
			CORS: CORSConfig{
				Enabled:          true,
				AllowedOrigins:   []string{"http://localhost:3000"},
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type", "Authorization"},
				AllowCredentials: true,
				MaxAge:           86400,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeSQLite,
			Path: "./data/leads.json",
			Database: DatabaseConfig{
				DSN:          "./data/leads.db",
				MaxOpenConns: 10,
			},
			CacheTTL: 5 * time.Minute,
		},
		Admission: AdmissionConfig{
			RateLimit: RateLimitConfig{
				Requests:      5,
				WindowSeconds: 60,
				MaxKeys:       100000,
				SweepInterval: time.Minute,
			},
			Captcha: CaptchaConfig{
				Enabled: true,
				Timeout: 10 * time.Second,
			},
		},
		Scoring: ScoringConfig{
			Enabled: true,
			Model:   "gpt-4o-mini",
			Timeout: 20 * time.Second,
		},
		Mirror: MirrorConfig{
			Enabled:           true,
			BaseURL:           "https://api.notion.com/v1",
			NotionVersion:     "2022-06-28",
			RequestsPerSecond: 3,
			Timeout:           15 * time.Second,
		},
		Notify: NotifyConfig{
			Provider: NotifyProviderResend,
			From:     "onboarding@resend.dev",
			Resend: ResendConfig{
				BaseURL: "https://api.resend.com",
				Timeout: 20 * time.Second,
			},
			SMTP: SMTPConfig{
				Port: 587,
			},
		},
		SideTasks: SideTaskConfig{
			Timeout:        30 * time.Second,
			BreakerTimeout: time.Minute,
			MaxFailures:    5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "intake",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Admission.Validate(); err != nil {
		return fmt.Errorf("invalid admission config: %w", err)
	}

	if err := c.Mirror.Validate(); err != nil {
		return fmt.Errorf("invalid mirror config: %w", err)
	}

	if err := c.Notify.Validate(); err != nil {
		return fmt.Errorf("invalid notify config: %w", err)
	}

	if err := c.SideTasks.Validate(); err != nil {
		return fmt.Errorf("invalid side task config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	if sc.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}

	if sc.TrustedProxies < 0 {
		return errors.New("trusted proxies cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (stc *StorageConfig) Validate() error {
	switch stc.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeJSON:
		if stc.Path == "" {
			return errors.New("path is required for JSON storage")
		}
	case StorageTypePostgres, StorageTypeSQLite:
		if stc.Database.DSN == "" {
			return errors.New("database DSN is required for database storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}

	if stc.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	return nil
}

func (ac *AdmissionConfig) Validate() error {
	rl := ac.RateLimit
	if rl.Requests < 1 {
		return errors.New("rate limit requests must be at least 1")
	}
	if rl.WindowSeconds < 1 {
		return errors.New("rate limit window must be at least 1 second")
	}
	if rl.MaxKeys < 0 {
		return errors.New("rate limit max keys cannot be negative")
	}
	if rl.SweepInterval < 0 {
		return errors.New("rate limit sweep interval cannot be negative")
	}

	if ac.Captcha.Timeout < 0 {
		return errors.New("captcha timeout cannot be negative")
	}

	return nil
}

func (mc *MirrorConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}
	if mc.BaseURL == "" {
		return errors.New("base URL cannot be empty")
	}
	if mc.RequestsPerSecond <= 0 {
		return errors.New("requests per second must be positive")
	}
	return nil
}

func (nc *NotifyConfig) Validate() error {
	switch nc.Provider {
	case NotifyProviderNone, "":
		return nil
	case NotifyProviderResend:
		if nc.Resend.BaseURL == "" {
			return errors.New("resend base URL cannot be empty")
		}
	case NotifyProviderSMTP:
		if nc.SMTP.Port <= 0 || nc.SMTP.Port > 65535 {
			return errors.New("SMTP port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("invalid notify provider: %s", nc.Provider)
	}
	return nil
}

func (st *SideTaskConfig) Validate() error {
	if st.Timeout <= 0 {
		return errors.New("side task timeout must be positive")
	}
	if st.BreakerTimeout < 0 {
		return errors.New("breaker timeout cannot be negative")
	}
	if st.MaxFailures == 0 {
		return errors.New("max failures must be at least 1")
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	validOutputs := []string{"stdout", "stderr", "file"}
	if !contains(validOutputs, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}
	if !oc.Tracing.Enabled {
		return nil
	}
	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("OTLP endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
