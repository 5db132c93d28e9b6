package config

// EnvPrefix is handed to envconfig; every field tag already carries the full variable name.
const EnvPrefix = "SHOOTPAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SHOOTPAY_APP_ENV"
	EnvPort     = "SHOOTPAY_APP_PORT"
	EnvLogLevel = "SHOOTPAY_LOG_LEVEL"

	EnvDBDSN    = "SHOOTPAY_DB_DSN"
	EnvDBDriver = "SHOOTPAY_DB_DRIVER"
	EnvDBHost   = "SHOOTPAY_DB_HOST"
	EnvDBUser   = "SHOOTPAY_DB_USER"
	EnvDBName   = "SHOOTPAY_DB_NAME"

	EnvRedisURL = "SHOOTPAY_REDIS_URL"

	EnvJWTSecret  = "SHOOTPAY_JWT_SECRET"
	EnvJWTIssuer  = "SHOOTPAY_JWT_ISSUER"
	EnvJWTExpMins = "SHOOTPAY_JWT_EXPIRATION_MINUTES"

	EnvEscrowAutoConfirmHours = "SHOOTPAY_ESCROW_AUTO_CONFIRM_HOURS"
	EnvEscrowFeeRate          = "SHOOTPAY_ESCROW_PLATFORM_FEE_RATE"
	EnvEscrowGateway          = "SHOOTPAY_ESCROW_GATEWAY"
	EnvEscrowSweepConcurrency = "SHOOTPAY_ESCROW_SWEEP_CONCURRENCY"

	EnvStripeAPIKey = "SHOOTPAY_STRIPE_API_KEY"
	EnvStripeSecret = "SHOOTPAY_STRIPE_SECRET"
	EnvStripeEnv    = "SHOOTPAY_STRIPE_ENV"

	EnvSquareAccessToken = "SHOOTPAY_SQUARE_ACCESS_TOKEN"
	EnvSquareLocationID  = "SHOOTPAY_SQUARE_LOCATION_ID"

	EnvGCPProjectID = "SHOOTPAY_GCP_PROJECT_ID"

	EnvPubSubEscrowTopic     = "SHOOTPAY_PUBSUB_ESCROW_TOPIC"
	EnvPubSubAnalyticsSub    = "SHOOTPAY_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvBigQueryDataset       = "SHOOTPAY_BIGQUERY_DATASET"
	EnvBigQueryEscrowTable   = "SHOOTPAY_BIGQUERY_ESCROW_TABLE"
	EnvCronInterval          = "SHOOTPAY_CRON_INTERVAL"
	EnvOutboxRetentionWindow = "SHOOTPAY_OUTBOX_RETENTION_WINDOW"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
