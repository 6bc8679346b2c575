package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported values for DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Lifecycle    LifecycleConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Dashboard    DashboardConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name              string        `env:"APP_NAME" envDefault:"incident-service"`
	Env               string        `env:"APP_ENV" envDefault:"development"`
	Host              string        `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port              string        `env:"APP_PORT" envDefault:"8080"`
	Version           string        `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeout    time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	DependencyTimeout time.Duration `env:"DEPENDENCY_TIMEOUT" envDefault:"5s"`
}

// DatabaseConfig selects the incident store and holds its connection values.
type DatabaseConfig struct {
	Driver        string        `env:"DB_DRIVER" envDefault:"postgres"`
	DSN           string        `env:"POSTGRES_DSN"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"incidents.db"`
	MaxConns      int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns      int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations bool          `env:"DB_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdle   time.Duration `env:"POSTGRES_CONN_MAX_IDLE" envDefault:"30s"`
	ConnMaxLife   time.Duration `env:"POSTGRES_CONN_MAX_LIFE" envDefault:"5m"`
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// AuthConfig defines how callers are identified.
type AuthConfig struct {
	JWTSecret    string        `env:"AUTH_JWT_SECRET"`
	ClaimsHeader string        `env:"AUTH_CLAIMS_HEADER" envDefault:"X-Jwt-Payload"`
	TokenTTL     time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"60m"`
}

// LifecycleConfig holds the incident status vocabulary.
type LifecycleConfig struct {
	Statuses []string          `env:"INCIDENT_STATUSES" envDefault:"PENDING,REPORTED,IN_PROGRESS,RESOLVED,CLOSED,REJECTED,CANCELLED"`
	Terminal []string          `env:"INCIDENT_TERMINAL_STATUSES" envDefault:"CLOSED,REJECTED,CANCELLED"`
	Aliases  map[string]string `env:"INCIDENT_STATUS_ALIASES" envDefault:"QUEUED:PENDING,UNDER_REVIEW:REPORTED,OPEN:PENDING"`
}

// StorageConfig configures the object store used for attachments and exports.
type StorageConfig struct {
	AttachmentBucket string        `env:"ATTACHMENT_BUCKET"`
	DashboardBucket  string        `env:"DASHBOARD_BUCKET"`
	Region           string        `env:"AWS_REGION" envDefault:"us-east-1"`
	Endpoint         string        `env:"S3_ENDPOINT"`
	UsePathStyle     bool          `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	PublicBaseURL    string        `env:"ATTACHMENT_PUBLIC_BASE_URL"`
	UploadURLTTL     time.Duration `env:"ATTACHMENT_UPLOAD_URL_TTL" envDefault:"300s"`
	DownloadURLTTL   time.Duration `env:"ATTACHMENT_DOWNLOAD_URL_TTL" envDefault:"3600s"`
}

// NotificationConfig holds notification delivery settings.
type NotificationConfig struct {
	EmailFrom      string        `env:"NOTIFY_EMAIL_FROM" envDefault:"noreply@cityreport.local"`
	OfficialEmails []string      `env:"NOTIFY_OFFICIAL_EMAILS"`
	WebhookURL     string        `env:"NOTIFY_WEBHOOK_URL"`
	WebhookSecret  string        `env:"NOTIFY_WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `env:"NOTIFY_WEBHOOK_TIMEOUT" envDefault:"5s"`
	QueueKey       string        `env:"NOTIFY_QUEUE_KEY" envDefault:"incident_events"`
	Channel        string        `env:"NOTIFY_CHANNEL" envDefault:"incident-events"`
}

// DashboardConfig controls the periodic dashboard export.
type DashboardConfig struct {
	ExportEnabled  bool   `env:"DASHBOARD_EXPORT_ENABLED" envDefault:"false"`
	ExportSchedule string `env:"DASHBOARD_EXPORT_SCHEDULE" envDefault:"@daily"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DB_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=%s", DriverSQLite)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if len(c.Lifecycle.Statuses) == 0 {
		return fmt.Errorf("INCIDENT_STATUSES must not be empty")
	}
	if c.App.DependencyTimeout <= 0 {
		return fmt.Errorf("DEPENDENCY_TIMEOUT must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// AttachmentBaseURL returns the public prefix for uploaded object URLs.
func (s StorageConfig) AttachmentBaseURL() string {
	if s.PublicBaseURL != "" {
		return strings.TrimRight(s.PublicBaseURL, "/")
	}
	if s.Endpoint != "" {
		return strings.TrimRight(s.Endpoint, "/") + "/" + s.AttachmentBucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.AttachmentBucket, s.Region)
}
