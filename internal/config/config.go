package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Workflow     WorkflowConfig
	Notification NotificationConfig
	Accounting   AccountingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Service string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	// CronSecret is either a plain shared secret or a bcrypt hash of one.
	CronSecret string
}

// WorkflowConfig tunes the approval workflow.
type WorkflowConfig struct {
	AutoCloseAfterHours  int
	ReaperIntervalMinute int
	ReaperBatchSize      int
	ReaperLockKey        string
	RequestIDMaxAttempts int
}

// NotificationConfig configures the email outbox.
type NotificationConfig struct {
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	QueueKey     string
	Workers      int
}

// AccountingConfig points at the external item catalogue.
type AccountingConfig struct {
	BaseURL        string
	OrganizationID string
	AccessToken    string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "procurement-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Service: getEnv("APP_NAME", "procurement-service"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			CronSecret:            os.Getenv("CRON_SECRET"),
		},
		Workflow: WorkflowConfig{
			AutoCloseAfterHours:  getEnvAsInt("AUTO_CLOSE_SLA_HOURS", 48),
			ReaperIntervalMinute: getEnvAsInt("AUTO_CLOSE_INTERVAL_MINUTES", 15),
			ReaperBatchSize:      getEnvAsInt("AUTO_CLOSE_BATCH_SIZE", 200),
			ReaperLockKey:        getEnv("AUTO_CLOSE_LOCK_KEY", "procurement:auto-close:lock"),
			RequestIDMaxAttempts: getEnvAsInt("REQUEST_ID_MAX_ATTEMPTS", 50),
		},
		Notification: NotificationConfig{
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			QueueKey:     getEnv("EMAIL_QUEUE_KEY", "procurement:email:outbox"),
			Workers:      getEnvAsInt("EMAIL_WORKERS", 2),
		},
		Accounting: AccountingConfig{
			BaseURL:        strings.TrimSuffix(os.Getenv("ACCOUNTING_BASE_URL"), "/"),
			OrganizationID: os.Getenv("ACCOUNTING_ORGANIZATION_ID"),
			AccessToken:    os.Getenv("ACCOUNTING_ACCESS_TOKEN"),
			TimeoutSeconds: getEnvAsInt("ACCOUNTING_TIMEOUT_SECONDS", 10),
		},
	}

	if cfg.Workflow.AutoCloseAfterHours <= 0 {
		return nil, fmt.Errorf("invalid AUTO_CLOSE_SLA_HOURS: %d", cfg.Workflow.AutoCloseAfterHours)
	}
	if cfg.Workflow.RequestIDMaxAttempts <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_ID_MAX_ATTEMPTS: %d", cfg.Workflow.RequestIDMaxAttempts)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued access tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// AutoCloseAfter is the delivery age at which unconfirmed tickets close.
func (w WorkflowConfig) AutoCloseAfter() time.Duration {
	return time.Duration(w.AutoCloseAfterHours) * time.Hour
}

// ReaperInterval is the period between auto-close sweeps.
func (w WorkflowConfig) ReaperInterval() time.Duration {
	if w.ReaperIntervalMinute <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(w.ReaperIntervalMinute) * time.Minute
}

// SMTPAddr returns host:port, or "" when SMTP is not configured.
func (n NotificationConfig) SMTPAddr() string {
	if n.SMTPHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", n.SMTPHost, n.SMTPPort)
}

// Timeout returns the accounting client timeout.
func (a AccountingConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
