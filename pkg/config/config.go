package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "VENDORA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "VENDORA_APP_ENV"
	EnvPort     = "VENDORA_APP_PORT"
	EnvDBDSN    = "VENDORA_DB_DSN"
	EnvDBHost   = "VENDORA_DB_HOST"
	EnvDBUser   = "VENDORA_DB_USER"
	EnvDBName   = "VENDORA_DB_NAME"
	EnvRedisURL = "VENDORA_REDIS_URL"

	EnvJWTSecret  = "VENDORA_JWT_SECRET"
	EnvJWTIssuer  = "VENDORA_JWT_ISSUER"
	EnvJWTExpMins = "VENDORA_JWT_EXPIRATION_MINUTES"

	EnvPaystackSecretKey = "VENDORA_PAYSTACK_SECRET_KEY"

	EnvGCPProjectID      = "VENDORA_GCP_PROJECT_ID"
	EnvPubSubLedgerTopic = "VENDORA_PUBSUB_LEDGER_TOPIC"
	EnvPubSubLedgerSub   = "VENDORA_PUBSUB_LEDGER_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Paystack   PaystackConfig
	Settlement SettlementConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Outbox     OutboxConfig
	Cron       CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDORA_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORA_DB_DSN"`
	Driver string `envconfig:"VENDORA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDORA_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDORA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDORA_DB_USER"`
	LegacyPassword string `envconfig:"VENDORA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDORA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"VENDORA_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDORA_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORA_REDIS_WRITE_TIMEOUT" default:"5s"`

	WebhookIdempotencyTTL time.Duration `envconfig:"VENDORA_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDORA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDORA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDORA_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"VENDORA_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL     string        `envconfig:"VENDORA_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"VENDORA_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"VENDORA_PAYSTACK_TIMEOUT" default:"15s"`
}

// SettlementConfig carries the commission split applied at delivery
// confirmation. Shares are percentages of the platform fee.
type SettlementConfig struct {
	PlatformSharePercent int `envconfig:"VENDORA_SETTLEMENT_PLATFORM_SHARE_PERCENT" default:"70"`
	PartnerSharePercent  int `envconfig:"VENDORA_SETTLEMENT_PARTNER_SHARE_PERCENT" default:"30"`
}

func (s SettlementConfig) validate() error {
	if s.PlatformSharePercent < 0 || s.PartnerSharePercent < 0 {
		return fmt.Errorf("settlement share percentages must be non-negative")
	}
	if s.PlatformSharePercent+s.PartnerSharePercent != 100 {
		return fmt.Errorf("settlement shares must sum to 100, got %d+%d",
			s.PlatformSharePercent, s.PartnerSharePercent)
	}
	return nil
}

// PartnerShare returns the revenue partner portion as a decimal fraction.
// The platform portion is never read directly: the split derives it as the
// subtotal remainder so rounding differences land on the platform.
func (s SettlementConfig) PartnerShare() decimal.Decimal {
	return decimal.NewFromInt(int64(s.PartnerSharePercent)).Div(decimal.NewFromInt(100))
}

type GCPConfig struct {
	ProjectID       string `envconfig:"VENDORA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"VENDORA_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	LedgerTopic        string `envconfig:"VENDORA_PUBSUB_LEDGER_TOPIC" required:"true"`
	LedgerSubscription string `envconfig:"VENDORA_PUBSUB_LEDGER_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"VENDORA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"VENDORA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"VENDORA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	ProcessedTTL   time.Duration `envconfig:"VENDORA_OUTBOX_PROCESSED_TTL" default:"720h"`
}

type CronConfig struct {
	ReconcileInterval  time.Duration `envconfig:"VENDORA_CRON_RECONCILE_INTERVAL" default:"5m"`
	StalePaymentAge    time.Duration `envconfig:"VENDORA_CRON_STALE_PAYMENT_AGE" default:"30m"`
	StaleWithdrawalAge time.Duration `envconfig:"VENDORA_CRON_STALE_WITHDRAWAL_AGE" default:"30m"`
	ReconcileBatchSize int           `envconfig:"VENDORA_CRON_RECONCILE_BATCH_SIZE" default:"25"`
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
