package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "RIGFORGE_DB_DSN"
	EnvDBHost = "RIGFORGE_DB_HOST"
	EnvDBUser = "RIGFORGE_DB_USER"
	EnvDBName = "RIGFORGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Pricing      PricingConfig
	PayPal       PayPalConfig
	Cron         CronConfig
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
	Env          string `envconfig:"RIGFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"RIGFORGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RIGFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RIGFORGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RIGFORGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RIGFORGE_DB_DSN"`
	Driver string `envconfig:"RIGFORGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RIGFORGE_DB_HOST"`
	LegacyPort     int    `envconfig:"RIGFORGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RIGFORGE_DB_USER"`
	LegacyPassword string `envconfig:"RIGFORGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"RIGFORGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"RIGFORGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RIGFORGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RIGFORGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RIGFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RIGFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RIGFORGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RIGFORGE_REDIS_ADDR"`
	Password     string        `envconfig:"RIGFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RIGFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RIGFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RIGFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RIGFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RIGFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RIGFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RIGFORGE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RIGFORGE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"RIGFORGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RIGFORGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"RIGFORGE_PUBSUB_DOMAIN_TOPIC" default:"rigforge-domain-events"`
	DomainSubscription string `envconfig:"RIGFORGE_PUBSUB_DOMAIN_SUBSCRIPTION" default:"rigforge-domain-events-worker"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"RIGFORGE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"RIGFORGE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"RIGFORGE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionTTL   time.Duration `envconfig:"RIGFORGE_OUTBOX_RETENTION_TTL" default:"168h"`
}

// PricingConfig carries the order-level charges applied at checkout. All
// amounts are integer minor currency units; TaxRateBPS is basis points
// (1/100th of a percent) so the rate stays integral.
type PricingConfig struct {
	TaxRateBPS            int `envconfig:"RIGFORGE_PRICING_TAX_RATE_BPS" default:"1800"`
	ShippingFeeCents      int `envconfig:"RIGFORGE_PRICING_SHIPPING_FEE_CENTS" default:"9900"`
	FreeShippingOverCents int `envconfig:"RIGFORGE_PRICING_FREE_SHIPPING_OVER_CENTS" default:"10000000"`
}

type PayPalConfig struct {
	BaseURL          string        `envconfig:"RIGFORGE_PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`
	ClientID         string        `envconfig:"RIGFORGE_PAYPAL_CLIENT_ID"`
	ClientSecret     string        `envconfig:"RIGFORGE_PAYPAL_CLIENT_SECRET"`
	Currency         string        `envconfig:"RIGFORGE_PAYPAL_CURRENCY" default:"USD"`
	RequestTimeout   time.Duration `envconfig:"RIGFORGE_PAYPAL_REQUEST_TIMEOUT" default:"10s"`
	ToleranceCents   int           `envconfig:"RIGFORGE_PAYPAL_TOLERANCE_CENTS" default:"1"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"RIGFORGE_CRON_INTERVAL" default:"1h"`
	LockTTL               time.Duration `envconfig:"RIGFORGE_CRON_LOCK_TTL" default:"55m"`
	NotificationRetention time.Duration `envconfig:"RIGFORGE_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"RIGFORGE_CRON_OUTBOX_RETENTION" default:"720h"`
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
