package config

// EnvPrefix is empty because every field carries its fully qualified PACKFINDERZ_ name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:packfinderz.db?_busy_timeout=5000"
)

const (
	EnvAppEnv     = "PACKFINDERZ_APP_ENV"
	EnvPort       = "PACKFINDERZ_APP_PORT"
	EnvLogLevel   = "PACKFINDERZ_LOG_LEVEL"
	EnvDBDSN      = "PACKFINDERZ_DB_DSN"
	EnvDBDriver   = "PACKFINDERZ_DB_DRIVER"
	EnvDBHost     = "PACKFINDERZ_DB_HOST"
	EnvDBPort     = "PACKFINDERZ_DB_PORT"
	EnvDBUser     = "PACKFINDERZ_DB_USER"
	EnvDBPass     = "PACKFINDERZ_DB_PASSWORD"
	EnvDBName     = "PACKFINDERZ_DB_NAME"
	EnvDBSSLMode  = "PACKFINDERZ_DB_SSLMODE"
	EnvRedisURL   = "PACKFINDERZ_REDIS_URL"
	EnvJWTSecret  = "PACKFINDERZ_JWT_SECRET"
	EnvJWTIssuer  = "PACKFINDERZ_JWT_ISSUER"
	EnvJWTExpMins = "PACKFINDERZ_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite  = "PACKFINDERZ_USE_SQLITE"

	EnvGCPProjectID           = "PACKFINDERZ_GCP_PROJECT_ID"
	EnvPubSubFulfillmentTopic = "PACKFINDERZ_PUBSUB_FULFILLMENT_TOPIC"

	EnvFulfillmentMaxConflictRetries = "PACKFINDERZ_FULFILLMENT_MAX_CONFLICT_RETRIES"
	EnvFulfillmentCodeAttemptLimit   = "PACKFINDERZ_FULFILLMENT_CODE_ATTEMPT_LIMIT"
	EnvFulfillmentCodeAttemptWindow  = "PACKFINDERZ_FULFILLMENT_CODE_ATTEMPT_WINDOW"
	EnvCronInterval                  = "PACKFINDERZ_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
