package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "datasender"

const (
	AppEnvDev  = "dev"
	AppEnvTest = "test"
	AppEnvProd = "prod"
)

type Config struct {
	App   AppConfig
	DB    DBConfig
	LMS   LMSConfig
	CRM   CRMConfig
	Queue QueueConfig
	Auth  AuthConfig
	Redis RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Queue.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DATASENDER_APP_ENV" required:"true"`
	Port         string `envconfig:"DATASENDER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DATASENDER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DATASENDER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// IsTest reports the test execution mode: persistence still happens but
// inline dispatch is skipped.
func (a AppConfig) IsTest() bool {
	return strings.EqualFold(a.Env, AppEnvTest)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DATASENDER_DB_DSN" required:"true"`
	Driver string `envconfig:"DATASENDER_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"DATASENDER_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DATASENDER_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DATASENDER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DATASENDER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// LMSConfig points at the host learning platform. WWWRoot is the public root
// URL used to build activity links embedded in synchronized records.
type LMSConfig struct {
	WWWRoot string `envconfig:"DATASENDER_LMS_WWWROOT" required:"true"`
}

// CRMConfig carries the remote endpoint and the credentials the dispatch
// client needs. The pipeline itself treats these as opaque.
type CRMConfig struct {
	BaseURL      string        `envconfig:"DATASENDER_CRM_BASE_URL" required:"true"`
	APIVersion   string        `envconfig:"DATASENDER_CRM_API_VERSION" default:"v53.0"`
	TokenURL     string        `envconfig:"DATASENDER_CRM_TOKEN_URL"`
	ClientID     string        `envconfig:"DATASENDER_CRM_CLIENT_ID"`
	ClientSecret string        `envconfig:"DATASENDER_CRM_CLIENT_SECRET"`
	Username     string        `envconfig:"DATASENDER_CRM_USERNAME"`
	Password     string        `envconfig:"DATASENDER_CRM_PASSWORD"`
	Timeout      time.Duration `envconfig:"DATASENDER_CRM_TIMEOUT" default:"30s"`
}

const (
	QueueModeInline = "inline"
	QueueModeDrain  = "drain"
)

type QueueConfig struct {
	Mode           string `envconfig:"DATASENDER_QUEUE_MODE" default:"inline"`
	Adapter        string `envconfig:"DATASENDER_QUEUE_ADAPTER" default:"1"`
	BatchSize      int    `envconfig:"DATASENDER_QUEUE_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"DATASENDER_QUEUE_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"DATASENDER_QUEUE_MAX_ATTEMPTS" default:"10"`
}

func (q QueueConfig) validate() error {
	switch q.Mode {
	case QueueModeInline, QueueModeDrain:
		return nil
	default:
		return fmt.Errorf("invalid queue mode %q", q.Mode)
	}
}

// PollInterval returns the drainer poll interval.
func (q QueueConfig) PollInterval() time.Duration {
	if q.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(q.PollIntervalMS) * time.Millisecond
}

type AuthConfig struct {
	WebhookSecret string `envconfig:"DATASENDER_WEBHOOK_SECRET" required:"true"`
	Issuer        string `envconfig:"DATASENDER_WEBHOOK_ISSUER" default:"lms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DATASENDER_REDIS_URL"`
	DedupeTTL    time.Duration `envconfig:"DATASENDER_REDIS_DEDUPE_TTL" default:"24h"`
	DialTimeout  time.Duration `envconfig:"DATASENDER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DATASENDER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DATASENDER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether event-id dedupe is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}
