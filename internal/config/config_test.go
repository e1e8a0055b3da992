package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, models.StorageTypeSQLite, config.Storage.Type)
	assert.Equal(t, 5, config.Admission.RateLimit.Requests)
	assert.Equal(t, 60, config.Admission.RateLimit.WindowSeconds)
	assert.True(t, config.Admission.Captcha.Enabled)
	assert.Empty(t, config.Security.AdminToken)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9000
  host: "127.0.0.1"
  read_timeout: 10s
  cors:
    enabled: true
    allowed_origins: ["https://example.com"]

storage:
  type: "json"
  path: "./data/test.json"

admission:
  rate_limit:
    requests: 10
    window_seconds: 30
  captcha:
    enabled: true
    turnstile_secret: "ts-secret"

security:
  admin_token: "s3cret"

notify:
  provider: smtp
  from: "forms@example.com"
  to: ["sales@example.com", "ops@example.com"]
  smtp:
    host: "mail.example.com"
    port: 2525

logging:
  level: "debug"
  format: "text"
  output: "stdout"
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 10*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, []string{"https://example.com"}, config.Server.CORS.AllowedOrigins)
	assert.Equal(t, models.StorageTypeJSON, config.Storage.Type)
	assert.Equal(t, 10, config.Admission.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, config.Admission.RateLimit.Window())
	assert.Equal(t, "ts-secret", config.Admission.Captcha.TurnstileSecret)
	assert.Equal(t, "s3cret", config.Security.AdminToken)
	assert.Equal(t, models.NotifyProviderSMTP, config.Notify.Provider)
	assert.Equal(t, []string{"sales@example.com", "ops@example.com"}, config.Notify.To)
	assert.Equal(t, 2525, config.Notify.SMTP.Port)
	assert.Equal(t, "debug", config.Logging.Level)

	// untouched sections keep their defaults
	assert.Equal(t, 30*time.Second, config.SideTasks.Timeout)
	assert.Equal(t, "gpt-4o-mini", config.Scoring.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
admission:
  rate_limit:
    requests: 0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_DeprecatedKeysAreIgnored(t *testing.T) {
	path := writeConfig(t, `
rate_limit:
  requests: 99
cache:
  enabled: true
`)
	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, config.Admission.RateLimit.Requests)
}

func TestLoad_IntakeEnvironment(t *testing.T) {
	t.Setenv("INTAKE_PORT", "7070")
	t.Setenv("INTAKE_STORAGE_TYPE", "memory")
	t.Setenv("INTAKE_RATE_LIMIT_REQUESTS", "3")
	t.Setenv("INTAKE_RATE_LIMIT_WINDOW_SECONDS", "10")
	t.Setenv("INTAKE_CAPTCHA_ENABLED", "false")
	t.Setenv("INTAKE_ADMIN_TOKEN", "tok")
	t.Setenv("INTAKE_NOTIFY_TO", "a@example.com, b@example.com")
	t.Setenv("INTAKE_SIDE_TASK_TIMEOUT", "5s")
	t.Setenv("INTAKE_LOG_LEVEL", "warn")
	t.Setenv("INTAKE_METRICS_ENABLED", "0")
	t.Setenv("INTAKE_TRUSTED_PROXIES", "1")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, models.StorageTypeMemory, config.Storage.Type)
	assert.Equal(t, 3, config.Admission.RateLimit.Requests)
	assert.Equal(t, 10, config.Admission.RateLimit.WindowSeconds)
	assert.False(t, config.Admission.Captcha.Enabled)
	assert.Equal(t, "tok", config.Security.AdminToken)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, config.Notify.To)
	assert.Equal(t, 5*time.Second, config.SideTasks.Timeout)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.False(t, config.Metrics.Enabled)
	assert.Equal(t, 1, config.Server.TrustedProxies)
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_QTY", "7")
	t.Setenv("RATE_LIMIT_WINDOW", "120")
	t.Setenv("CAPTCHA_ENABLED", "no")
	t.Setenv("TURNSTILE_SECRET_KEY", "ts")
	t.Setenv("RECAPTCHA_SECRET_KEY", "rc")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LEAD_SCORE_MODEL", "gpt-4.1-mini")
	t.Setenv("AI_SCORING_ENABLED", "0")
	t.Setenv("NOTION_API_KEY", "secret_n")
	t.Setenv("NOTION_DATABASE_ID", "db123")
	t.Setenv("NOTION_ENABLED", "false")
	t.Setenv("RESEND_API_KEY", "re_x")
	t.Setenv("RESEND_FROM", "forms@example.com")
	t.Setenv("CONTACT_TO_EMAIL", "owner@example.com")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, config.Server.CORS.AllowedOrigins)
	assert.Equal(t, 7, config.Admission.RateLimit.Requests)
	assert.Equal(t, 120, config.Admission.RateLimit.WindowSeconds)
	assert.False(t, config.Admission.Captcha.Enabled)
	assert.Equal(t, "ts", config.Admission.Captcha.TurnstileSecret)
	assert.Equal(t, "rc", config.Admission.Captcha.RecaptchaSecret)
	assert.Equal(t, "sk-test", config.Scoring.APIKey)
	assert.Equal(t, "gpt-4.1-mini", config.Scoring.Model)
	assert.False(t, config.Scoring.Enabled)
	assert.Equal(t, "secret_n", config.Mirror.APIKey)
	assert.Equal(t, "db123", config.Mirror.DatabaseID)
	assert.False(t, config.Mirror.Enabled)
	assert.Equal(t, "re_x", config.Notify.Resend.APIKey)
	assert.Equal(t, "forms@example.com", config.Notify.From)
	assert.Equal(t, []string{"owner@example.com"}, config.Notify.To)
}

func TestLoad_IntakeWinsOverLegacy(t *testing.T) {
	t.Setenv("RATE_LIMIT_QTY", "7")
	t.Setenv("INTAKE_RATE_LIMIT_REQUESTS", "2")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("INTAKE_ENVIRONMENT", "production")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, config.Admission.RateLimit.Requests)
	assert.Equal(t, "production", config.Environment)
}

func TestLoad_FrontendURLFallback(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://www.example.com")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.example.com"}, config.Server.CORS.AllowedOrigins)
}

func TestLoad_InvalidEnvValuesAreIgnored(t *testing.T) {
	t.Setenv("INTAKE_PORT", "not-a-port")
	t.Setenv("INTAKE_CAPTCHA_ENABLED", "maybe")
	t.Setenv("INTAKE_READ_TIMEOUT", "soon")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
	assert.True(t, config.Admission.Captcha.Enabled)
	assert.Equal(t, 15*time.Second, config.Server.ReadTimeout)
}

func TestApplyDatabaseURL(t *testing.T) {
	tests := []struct {
		url      string
		wantType string
		wantDSN  string
	}{
		{"postgres://u:p@db:5432/leads", models.StorageTypePostgres, "postgres://u:p@db:5432/leads"},
		{"postgresql://db/leads", models.StorageTypePostgres, "postgresql://db/leads"},
		{"sqlite:///./sql_app.db", models.StorageTypeSQLite, "./sql_app.db"},
		{"mysql://db/leads", models.StorageTypeSQLite, "./data/leads.db"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			storage := models.NewDefaultConfig().Storage
			applyDatabaseURL(&storage, tt.url)
			assert.Equal(t, tt.wantType, storage.Type)
			assert.Equal(t, tt.wantDSN, storage.Database.DSN)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , ,"))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,b,"))
}

func TestSaveExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveExample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var config models.Config
	require.NoError(t, yaml.Unmarshal(data, &config))
	assert.Equal(t, "change-me", config.Security.AdminToken)
	assert.Equal(t, []string{"owner@example.com"}, config.Notify.To)
	assert.NoError(t, config.Validate())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, loaded.Server.Port)
}
