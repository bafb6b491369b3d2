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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Email        EmailConfig
	Outbox       OutboxConfig
	Catalog      CatalogConfig
	Orders       OrdersConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	cfg.Orders.normalize()
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MAGI_APP_ENV" required:"true"`
	Port         string `envconfig:"MAGI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MAGI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MAGI_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists the storefront origins allowed to call the API.
	CORSOrigins []string `envconfig:"MAGI_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// IsProd accepts both the short and the long spelling used by deploy manifests.
func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, AppEnvProduction)
}

type ServiceConfig struct {
	Kind string `envconfig:"MAGI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MAGI_DB_DSN"`
	Driver string `envconfig:"MAGI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MAGI_DB_HOST"`
	LegacyPort     int    `envconfig:"MAGI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MAGI_DB_USER"`
	LegacyPassword string `envconfig:"MAGI_DB_PASSWORD"`
	LegacyName     string `envconfig:"MAGI_DB_NAME"`
	LegacySSLMode  string `envconfig:"MAGI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAGI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAGI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MAGI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAGI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MAGI_REDIS_URL"`
	Address      string        `envconfig:"MAGI_REDIS_ADDR"`
	Password     string        `envconfig:"MAGI_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAGI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAGI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAGI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAGI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAGI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAGI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the external identity provider whose tokens the API accepts.
type JWTConfig struct {
	Secret string `envconfig:"MAGI_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"MAGI_JWT_ISSUER" required:"true"`
	// Leeway tolerates clock skew between the identity provider and this service.
	Leeway time.Duration `envconfig:"MAGI_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MAGI_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MAGI_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MAGI_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MAGI_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"MAGI_PUBSUB_ORDERS_TOPIC" default:"magi-order-events"`
	CatalogTopic string `envconfig:"MAGI_PUBSUB_CATALOG_TOPIC" default:"magi-catalog-events"`
	// CatalogSubscription feeds the catalog-worker cache refresher.
	CatalogSubscription string `envconfig:"MAGI_PUBSUB_CATALOG_SUBSCRIPTION" default:"magi-catalog-events-cache"`
}

type EmailConfig struct {
	ResendAPIKey string `envconfig:"MAGI_RESEND_API_KEY"`
	From         string `envconfig:"MAGI_EMAIL_FROM" default:"MagiSurprise <pedidos@magisurprise.com>"`
	// OperatorRecipients receive a copy of every order confirmation.
	OperatorRecipients []string      `envconfig:"MAGI_EMAIL_OPERATOR_RECIPIENTS"`
	DedupeTTL          time.Duration `envconfig:"MAGI_EMAIL_DEDUPE_TTL" default:"720h"`
}

// Enabled reports whether outbound email is configured.
func (e EmailConfig) Enabled() bool {
	return strings.TrimSpace(e.ResendAPIKey) != ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MAGI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MAGI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	// MaxAttempts defaults to a single attempt: failed notifications go
	// straight to the dead-letter table for manual follow-up.
	MaxAttempts int `envconfig:"MAGI_OUTBOX_MAX_ATTEMPTS" default:"1"`
}

type CatalogConfig struct {
	Backend       string        `envconfig:"MAGI_CATALOG_CACHE_BACKEND" default:"redis"`
	ProductsTTL   time.Duration `envconfig:"MAGI_CATALOG_PRODUCTS_TTL" default:"2h"`
	CardsTTL      time.Duration `envconfig:"MAGI_CATALOG_CARDS_TTL" default:"48h"`
	SchemaVersion int           `envconfig:"MAGI_CATALOG_SCHEMA_VERSION" default:"3"`
	// ProcessedTTL bounds how long the catalog-worker remembers handled event ids.
	ProcessedTTL time.Duration `envconfig:"MAGI_CATALOG_PROCESSED_TTL" default:"168h"`
}

type OrdersConfig struct {
	// TransitionPolicy is one of permissive, graph or expr.
	TransitionPolicy string `envconfig:"MAGI_ORDERS_TRANSITION_POLICY" default:"permissive"`
	TransitionRule   string `envconfig:"MAGI_ORDERS_TRANSITION_RULE"`
	// PriceCheck is one of trust or warn.
	PriceCheck string `envconfig:"MAGI_ORDERS_PRICE_CHECK" default:"trust"`
	// Public checkout throttling; a zero window disables it.
	RateLimitWindow   time.Duration `envconfig:"MAGI_ORDERS_RATE_LIMIT_WINDOW" default:"10m"`
	RateLimitPerIP    int           `envconfig:"MAGI_ORDERS_RATE_LIMIT_PER_IP" default:"30"`
	RateLimitPerPhone int           `envconfig:"MAGI_ORDERS_RATE_LIMIT_PER_PHONE" default:"10"`
}

// normalize lowercases the mode switches. envconfig leaves a variable that
// is set but empty as "", so blank values fall back to the defaults here.
func (o *OrdersConfig) normalize() {
	o.TransitionPolicy = strings.ToLower(strings.TrimSpace(o.TransitionPolicy))
	if o.TransitionPolicy == "" {
		o.TransitionPolicy = TransitionPolicyPermissive
	}
	o.PriceCheck = strings.ToLower(strings.TrimSpace(o.PriceCheck))
	if o.PriceCheck == "" {
		o.PriceCheck = PriceCheckTrust
	}
}

func (o OrdersConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.TransitionPolicy)) {
	case TransitionPolicyPermissive, TransitionPolicyGraph:
	case TransitionPolicyExpr:
		if strings.TrimSpace(o.TransitionRule) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvOrdersTransitionRule, EnvOrdersTransitionPolicy, TransitionPolicyExpr)
		}
	default:
		return fmt.Errorf("invalid %s %q", EnvOrdersTransitionPolicy, o.TransitionPolicy)
	}
	switch strings.ToLower(strings.TrimSpace(o.PriceCheck)) {
	case PriceCheckTrust, PriceCheckWarn:
	default:
		return fmt.Errorf("invalid %s %q", EnvOrdersPriceCheck, o.PriceCheck)
	}
	return nil
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"MAGI_CRON_INTERVAL" default:"15m"`
	LockTTL             time.Duration `envconfig:"MAGI_CRON_LOCK_TTL" default:"30m"`
	OutboxRetentionDays int           `envconfig:"MAGI_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	// DLQRetentionDays is longer: dead letters wait for manual follow-up.
	DLQRetentionDays int `envconfig:"MAGI_CRON_DLQ_RETENTION_DAYS" default:"90"`
	// RetentionEvery spaces the outbox purge; the catalog refresh runs every tick.
	RetentionEvery time.Duration `envconfig:"MAGI_CRON_RETENTION_EVERY" default:"24h"`
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
