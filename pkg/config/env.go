package config

const (
	EnvPrefix = "PEERSEN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	CartLoginPolicyMerge   = "merge"
	CartLoginPolicyDiscard = "discard"

	OutboxSinkPubSub = "pubsub"
	OutboxSinkKafka  = "kafka"
)

const (
	EnvAppEnv   = "PEERSEN_APP_ENV"
	EnvPort     = "PEERSEN_APP_PORT"
	EnvLogLevel = "PEERSEN_LOG_LEVEL"

	EnvDBDSN  = "PEERSEN_DB_DSN"
	EnvDBHost = "PEERSEN_DB_HOST"
	EnvDBUser = "PEERSEN_DB_USER"
	EnvDBName = "PEERSEN_DB_NAME"

	EnvRedisURL = "PEERSEN_REDIS_URL"

	EnvJWTSecret              = "PEERSEN_JWT_SECRET"
	EnvJWTIssuer              = "PEERSEN_JWT_ISSUER"
	EnvJWTExpMins             = "PEERSEN_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PEERSEN_REFRESH_TOKEN_TTL_MINUTES"

	EnvCartLoginPolicy = "PEERSEN_CART_LOGIN_POLICY"
	EnvCartLocalTTL    = "PEERSEN_CART_LOCAL_TTL"

	EnvOutboxSink   = "PEERSEN_OUTBOX_SINK"
	EnvKafkaBrokers = "PEERSEN_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
