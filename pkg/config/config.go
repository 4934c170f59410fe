package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Sendgrid     SendgridConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
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
	Env          string `envconfig:"COURTSIDE_APP_ENV" required:"true"`
	Port         string `envconfig:"COURTSIDE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COURTSIDE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURTSIDE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COURTSIDE_DB_DSN"`
	Driver string `envconfig:"COURTSIDE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COURTSIDE_DB_HOST"`
	LegacyPort     int    `envconfig:"COURTSIDE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COURTSIDE_DB_USER"`
	LegacyPassword string `envconfig:"COURTSIDE_DB_PASSWORD"`
	LegacyName     string `envconfig:"COURTSIDE_DB_NAME"`
	LegacySSLMode  string `envconfig:"COURTSIDE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COURTSIDE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURTSIDE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURTSIDE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURTSIDE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURTSIDE_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"COURTSIDE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURTSIDE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURTSIDE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURTSIDE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURTSIDE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COURTSIDE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COURTSIDE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COURTSIDE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RazorpayConfig carries the gateway credentials plus the webhook secret used
// to authenticate provider callbacks.
type RazorpayConfig struct {
	KeyID         string        `envconfig:"COURTSIDE_RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"COURTSIDE_RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"COURTSIDE_RAZORPAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"COURTSIDE_RAZORPAY_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"COURTSIDE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"COURTSIDE_PUBSUB_NOTIFICATION_TOPIC" default:"cs-notification-events"`
	NotificationSubscription string `envconfig:"COURTSIDE_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"cs-notification-events-worker"`
	OrdersTopic              string `envconfig:"COURTSIDE_PUBSUB_ORDERS_TOPIC" default:"cs-order-events"`
	OrdersSubscription       string `envconfig:"COURTSIDE_PUBSUB_ORDERS_SUBSCRIPTION" default:"cs-order-events-worker"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COURTSIDE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COURTSIDE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COURTSIDE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"COURTSIDE_CRON_INTERVAL" default:"15m"`
	DraftTTL      time.Duration `envconfig:"COURTSIDE_CRON_DRAFT_TTL" default:"24h"`
	SweepLookback time.Duration `envconfig:"COURTSIDE_CRON_SWEEP_LOOKBACK" default:"72h"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"COURTSIDE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"COURTSIDE_SENDGRID_FROM_EMAIL"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COURTSIDE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COURTSIDE_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig tunes lifecycle housekeeping.
type OrdersConfig struct {
	Currency string `envconfig:"COURTSIDE_ORDERS_CURRENCY" default:"INR"`
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
