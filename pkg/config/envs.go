package config

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "AGROLINK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv                 = "AGROLINK_APP_ENV"
	EnvPort                   = "AGROLINK_APP_PORT"
	EnvDBDSN                  = "AGROLINK_DB_DSN"
	EnvDBHost                 = "AGROLINK_DB_HOST"
	EnvDBUser                 = "AGROLINK_DB_USER"
	EnvDBName                 = "AGROLINK_DB_NAME"
	EnvRedisURL               = "AGROLINK_REDIS_URL"
	EnvJWTSecret              = "AGROLINK_JWT_SECRET"
	EnvJWTIssuer              = "AGROLINK_JWT_ISSUER"
	EnvJWTExpMins             = "AGROLINK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "AGROLINK_REFRESH_TOKEN_TTL_MINUTES"
	EnvGateMinBulkQty         = "AGROLINK_GATE_MIN_BULK_QTY"
	EnvGateMinCartValue       = "AGROLINK_GATE_MIN_CART_VALUE"
	EnvStripeAPIKey           = "AGROLINK_STRIPE_API_KEY"
	EnvPubSubChangefeedTopic  = "AGROLINK_PUBSUB_CHANGEFEED_TOPIC"
	EnvPubSubChangefeedSub    = "AGROLINK_PUBSUB_CHANGEFEED_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
