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
	Dispatch     DispatchConfig
	Gateway      GatewayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SKYSERVE_APP_ENV" required:"true"`
	Port         string `envconfig:"SKYSERVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SKYSERVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SKYSERVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SKYSERVE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SKYSERVE_DB_DSN"`
	Driver string `envconfig:"SKYSERVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SKYSERVE_DB_HOST"`
	LegacyPort     int    `envconfig:"SKYSERVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SKYSERVE_DB_USER"`
	LegacyPassword string `envconfig:"SKYSERVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SKYSERVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SKYSERVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SKYSERVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SKYSERVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SKYSERVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SKYSERVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SKYSERVE_REDIS_URL" required:"true"`
	Password     string        `envconfig:"SKYSERVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SKYSERVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SKYSERVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SKYSERVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SKYSERVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SKYSERVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SKYSERVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SKYSERVE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SKYSERVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SKYSERVE_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// DispatchConfig tunes the drone hand-off pipeline.
type DispatchConfig struct {
	FleetSize          int           `envconfig:"SKYSERVE_DISPATCH_FLEET_SIZE" default:"5"`
	HandoverDelay      time.Duration `envconfig:"SKYSERVE_DISPATCH_HANDOVER_DELAY" default:"30s"`
	SchedulerPollEvery time.Duration `envconfig:"SKYSERVE_DISPATCH_SCHEDULER_POLL_EVERY" default:"1s"`
	SchedulerBatchSize int           `envconfig:"SKYSERVE_DISPATCH_SCHEDULER_BATCH_SIZE" default:"100"`
	RepairSweepEvery   time.Duration `envconfig:"SKYSERVE_DISPATCH_REPAIR_SWEEP_EVERY" default:"1m"`
	RepairGrace        time.Duration `envconfig:"SKYSERVE_DISPATCH_REPAIR_GRACE" default:"2m"`
}

// GatewayConfig carries wallet provider credentials.
type GatewayConfig struct {
	BaseURL     string        `envconfig:"SKYSERVE_GATEWAY_BASE_URL"`
	PartnerCode string        `envconfig:"SKYSERVE_GATEWAY_PARTNER_CODE"`
	AccessKey   string        `envconfig:"SKYSERVE_GATEWAY_ACCESS_KEY"`
	SecretKey   string        `envconfig:"SKYSERVE_GATEWAY_SECRET_KEY"`
	CallbackURL string        `envconfig:"SKYSERVE_GATEWAY_CALLBACK_URL"`
	ReturnURL   string        `envconfig:"SKYSERVE_GATEWAY_RETURN_URL"`
	Timeout     time.Duration `envconfig:"SKYSERVE_GATEWAY_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SKYSERVE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SKYSERVE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SKYSERVE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"SKYSERVE_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"SKYSERVE_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SKYSERVE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SKYSERVE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SKYSERVE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SKYSERVE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SKYSERVE_AUTO_MIGRATE" default:"false"`
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
