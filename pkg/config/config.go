package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Flags    FeatureFlagsConfig
	Escrow   EscrowConfig
	Eventing EventingConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	BigQuery BigQueryConfig
	Stripe   StripeConfig
	Square   SquareConfig
	Outbox   OutboxConfig
	Cron     CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Escrow.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOOTPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOOTPAY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOOTPAY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SHOOTPAY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SHOOTPAY_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SHOOTPAY_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOOTPAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOOTPAY_DB_DSN"`
	Driver string `envconfig:"SHOOTPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOOTPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOOTPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOOTPAY_DB_USER"`
	LegacyPassword string `envconfig:"SHOOTPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOOTPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOOTPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOOTPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOOTPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOOTPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOOTPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"SHOOTPAY_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
	LogQueries         bool          `envconfig:"SHOOTPAY_DB_LOG_QUERIES" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOOTPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOOTPAY_REDIS_ADDR"`
	Password     string        `envconfig:"SHOOTPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOOTPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOOTPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOOTPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOOTPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOOTPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOOTPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOOTPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOOTPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOOTPAY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOOTPAY_AUTO_MIGRATE" default:"false"`
}

// EscrowConfig drives the settlement core.
type EscrowConfig struct {
	Currency           string        `envconfig:"SHOOTPAY_ESCROW_CURRENCY" default:"usd"`
	Gateway            string        `envconfig:"SHOOTPAY_ESCROW_GATEWAY" default:"stripe"`
	AutoConfirmHours   int           `envconfig:"SHOOTPAY_ESCROW_AUTO_CONFIRM_HOURS" default:"72"`
	PlatformFeeRate    string        `envconfig:"SHOOTPAY_ESCROW_PLATFORM_FEE_RATE" default:"0.10"`
	SweepBatchSize     int           `envconfig:"SHOOTPAY_ESCROW_SWEEP_BATCH" default:"200"`
	SweepConcurrency   int           `envconfig:"SHOOTPAY_ESCROW_SWEEP_CONCURRENCY" default:"4"`
	CaptureClaimTTL    time.Duration `envconfig:"SHOOTPAY_ESCROW_CAPTURE_CLAIM_TTL" default:"10m"`
	StatusCacheTTL     time.Duration `envconfig:"SHOOTPAY_ESCROW_STATUS_CACHE_TTL" default:"30s"`
	DownloadWindowDays int           `envconfig:"SHOOTPAY_DELIVERY_DOWNLOAD_WINDOW_DAYS" default:"30"`
	MaxDownloads       int           `envconfig:"SHOOTPAY_DELIVERY_MAX_DOWNLOADS" default:"10"`
}

// FeeRate parses PlatformFeeRate; validate guarantees it succeeds after Load.
func (e EscrowConfig) FeeRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(e.PlatformFeeRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (e EscrowConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(e.PlatformFeeRate))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvEscrowFeeRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0, 1)", EnvEscrowFeeRate)
	}
	if e.AutoConfirmHours <= 0 {
		return fmt.Errorf("%s must be positive", EnvEscrowAutoConfirmHours)
	}
	if e.SweepConcurrency <= 0 {
		return fmt.Errorf("%s must be positive", EnvEscrowSweepConcurrency)
	}
	switch strings.ToLower(strings.TrimSpace(e.Gateway)) {
	case "stripe", "square", "fake":
	default:
		return fmt.Errorf("%s must be one of stripe, square, fake", EnvEscrowGateway)
	}
	return nil
}

type EventingConfig struct {
	OutboxIdempotencyTTL    time.Duration `envconfig:"SHOOTPAY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	AnalyticsMaxOutstanding int           `envconfig:"SHOOTPAY_EVENTING_ANALYTICS_MAX_OUTSTANDING" default:"100"`
	AnalyticsCreateTables   bool          `envconfig:"SHOOTPAY_EVENTING_ANALYTICS_CREATE_TABLES" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHOOTPAY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SHOOTPAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHOOTPAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EscrowTopic           string `envconfig:"SHOOTPAY_PUBSUB_ESCROW_TOPIC" default:"sp-escrow-events"`
	AnalyticsSubscription string `envconfig:"SHOOTPAY_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"sp-escrow-analytics"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"SHOOTPAY_BIGQUERY_DATASET" default:"shootpay"`
	EscrowEventsTable string `envconfig:"SHOOTPAY_BIGQUERY_ESCROW_TABLE" default:"escrow_events"`
}

type OutboxConfig struct {
	BatchSize       int           `envconfig:"SHOOTPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS  int           `envconfig:"SHOOTPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts     int           `envconfig:"SHOOTPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionWindow time.Duration `envconfig:"SHOOTPAY_OUTBOX_RETENTION_WINDOW" default:"720h"`
	DLQRetention    time.Duration `envconfig:"SHOOTPAY_OUTBOX_DLQ_RETENTION" default:"2160h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SHOOTPAY_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"SHOOTPAY_CRON_LOCK_TTL" default:"4m"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SHOOTPAY_STRIPE_API_KEY"`
	Secret string `envconfig:"SHOOTPAY_STRIPE_SECRET"`
	Env    string `envconfig:"SHOOTPAY_STRIPE_ENV" default:"test"`

	MaxNetworkRetries int64 `envconfig:"SHOOTPAY_STRIPE_MAX_NETWORK_RETRIES" default:"2"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SquareConfig struct {
	AccessToken   string `envconfig:"SHOOTPAY_SQUARE_ACCESS_TOKEN"`
	Env           string `envconfig:"SHOOTPAY_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"SHOOTPAY_SQUARE_LOCATION_ID"`
	WebhookKey    string `envconfig:"SHOOTPAY_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookURL    string `envconfig:"SHOOTPAY_SQUARE_WEBHOOK_URL"`
	SourceIDToken string `envconfig:"SHOOTPAY_SQUARE_SOURCE_ID"`
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
