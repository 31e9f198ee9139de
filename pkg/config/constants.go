package config

// EnvPrefix is passed to envconfig.Process; individual fields carry the
// fully qualified variable names so the prefix never doubles up.
const EnvPrefix = "skyserve"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "SKYSERVE_APP_ENV"
	EnvPort     = "SKYSERVE_APP_PORT"
	EnvLogLevel = "SKYSERVE_LOG_LEVEL"

	EnvDBDSN      = "SKYSERVE_DB_DSN"
	EnvDBHost     = "SKYSERVE_DB_HOST"
	EnvDBUser     = "SKYSERVE_DB_USER"
	EnvDBName     = "SKYSERVE_DB_NAME"
	EnvRedisURL   = "SKYSERVE_REDIS_URL"
	EnvJWTSecret  = "SKYSERVE_JWT_SECRET"
	EnvJWTIssuer  = "SKYSERVE_JWT_ISSUER"
	EnvJWTExpMins = "SKYSERVE_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID      = "SKYSERVE_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "SKYSERVE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "SKYSERVE_PUBSUB_ORDERS_SUBSCRIPTION"

	EnvGatewayBaseURL     = "SKYSERVE_GATEWAY_BASE_URL"
	EnvGatewayPartnerCode = "SKYSERVE_GATEWAY_PARTNER_CODE"
	EnvGatewayAccessKey   = "SKYSERVE_GATEWAY_ACCESS_KEY"
	EnvGatewaySecretKey   = "SKYSERVE_GATEWAY_SECRET_KEY"
	EnvGatewayCallbackURL = "SKYSERVE_GATEWAY_CALLBACK_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
