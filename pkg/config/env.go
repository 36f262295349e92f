package config

const EnvPrefix = "HOUSEBOOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "HOUSEBOOK_APP_ENV"
	EnvPort                   = "HOUSEBOOK_APP_PORT"
	EnvDBDSN                  = "HOUSEBOOK_DB_DSN"
	EnvDBHost                 = "HOUSEBOOK_DB_HOST"
	EnvDBUser                 = "HOUSEBOOK_DB_USER"
	EnvDBName                 = "HOUSEBOOK_DB_NAME"
	EnvRedisURL               = "HOUSEBOOK_REDIS_URL"
	EnvJWTSecret              = "HOUSEBOOK_JWT_SECRET"
	EnvJWTIssuer              = "HOUSEBOOK_JWT_ISSUER"
	EnvJWTExpMins             = "HOUSEBOOK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "HOUSEBOOK_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "HOUSEBOOK_USE_SQLITE"
	EnvJobsClaimTTL           = "HOUSEBOOK_JOBS_CLAIM_TTL"
	EnvJobsPINLength          = "HOUSEBOOK_JOBS_PIN_LENGTH"
	EnvStorageEndpoint        = "HOUSEBOOK_STORAGE_ENDPOINT"
	EnvRealtimeChannel        = "HOUSEBOOK_REALTIME_CHANNEL"
	EnvPubSubEventsTopic      = "HOUSEBOOK_PUBSUB_EVENTS_TOPIC"
	EnvCronInterval           = "HOUSEBOOK_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
