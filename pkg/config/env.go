package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "MAGI"

const (
	AppEnvDev        = "dev"
	AppEnvProd       = "prod"
	AppEnvProduction = "production"
)

const (
	TransitionPolicyPermissive = "permissive"
	TransitionPolicyGraph      = "graph"
	TransitionPolicyExpr       = "expr"

	PriceCheckTrust = "trust"
	PriceCheckWarn  = "warn"

	CatalogBackendRedis  = "redis"
	CatalogBackendMemory = "memory"
)

const (
	EnvAppEnv    = "MAGI_APP_ENV"
	EnvPort      = "MAGI_APP_PORT"
	EnvLogLevel  = "MAGI_LOG_LEVEL"
	EnvDBDSN     = "MAGI_DB_DSN"
	EnvDBHost    = "MAGI_DB_HOST"
	EnvDBUser    = "MAGI_DB_USER"
	EnvDBName    = "MAGI_DB_NAME"
	EnvRedisURL  = "MAGI_REDIS_URL"
	EnvJWTSecret = "MAGI_JWT_SECRET"
	EnvJWTIssuer = "MAGI_JWT_ISSUER"

	EnvGCPProjectID       = "MAGI_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic  = "MAGI_PUBSUB_ORDERS_TOPIC"
	EnvPubSubCatalogTopic = "MAGI_PUBSUB_CATALOG_TOPIC"

	EnvResendAPIKey       = "MAGI_RESEND_API_KEY"
	EnvEmailOperatorRcpts = "MAGI_EMAIL_OPERATOR_RECIPIENTS"

	EnvOutboxMaxAttempts = "MAGI_OUTBOX_MAX_ATTEMPTS"

	EnvCatalogBackend     = "MAGI_CATALOG_CACHE_BACKEND"
	EnvCatalogProductsTTL = "MAGI_CATALOG_PRODUCTS_TTL"
	EnvCatalogCardsTTL    = "MAGI_CATALOG_CARDS_TTL"

	EnvOrdersTransitionPolicy = "MAGI_ORDERS_TRANSITION_POLICY"
	EnvOrdersTransitionRule   = "MAGI_ORDERS_TRANSITION_RULE"
	EnvOrdersPriceCheck       = "MAGI_ORDERS_PRICE_CHECK"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
