package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FILEHUB"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "FILEHUB_APP_ENV"
	EnvDBDSN  = "FILEHUB_DB_DSN"
	EnvDBHost = "FILEHUB_DB_HOST"
	EnvDBUser = "FILEHUB_DB_USER"
	EnvDBName = "FILEHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	GCP     GCPConfig
	PubSub  PubSubConfig
	Outbox  OutboxConfig
	Cron    CronConfig
	Metrics MetricsConfig

	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FILEHUB_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"FILEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FILEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FILEHUB_FEATURE_AUTO_MIGRATE" default:"false"`
}

type ServiceConfig struct {
	Kind string `envconfig:"FILEHUB_SERVICE_KIND" default:"outbox-publisher"`
}

type DBConfig struct {
	DSN    string `envconfig:"FILEHUB_DB_DSN"`
	Driver string `envconfig:"FILEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FILEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"FILEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FILEHUB_DB_USER"`
	LegacyPassword string `envconfig:"FILEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"FILEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"FILEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FILEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FILEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FILEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FILEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FILEHUB_REDIS_URL"`
	Address      string        `envconfig:"FILEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"FILEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"FILEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FILEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FILEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FILEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FILEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FILEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FILEHUB_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FILEHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FILEHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"FILEHUB_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"FILEHUB_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize       int           `envconfig:"FILEHUB_OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval    time.Duration `envconfig:"FILEHUB_OUTBOX_POLL_INTERVAL" default:"5s"`
	BaseBackoff     time.Duration `envconfig:"FILEHUB_OUTBOX_BASE_BACKOFF" default:"60s"`
	MaxRetries      int           `envconfig:"FILEHUB_OUTBOX_MAX_RETRIES" default:"5"`
	CleanupInterval time.Duration `envconfig:"FILEHUB_OUTBOX_CLEANUP_INTERVAL" default:"1h"`
	Retention       time.Duration `envconfig:"FILEHUB_OUTBOX_RETENTION" default:"168h"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"FILEHUB_CRON_INTERVAL" default:"24h"`
	RetentionDays int           `envconfig:"FILEHUB_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	LockKey       string        `envconfig:"FILEHUB_CRON_LOCK_KEY" default:"filehub:cron:lock"`
}

type MetricsConfig struct {
	Port int `envconfig:"FILEHUB_METRICS_PORT" default:"9091"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
