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
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Gates         GatesConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
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
	Env          string `envconfig:"AGROLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"AGROLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGROLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGROLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AGROLINK_DB_DSN"`
	Driver string `envconfig:"AGROLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGROLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"AGROLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGROLINK_DB_USER"`
	LegacyPassword string `envconfig:"AGROLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGROLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGROLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGROLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGROLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGROLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGROLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGROLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGROLINK_REDIS_ADDR"`
	Password     string        `envconfig:"AGROLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGROLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGROLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGROLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGROLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGROLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGROLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AGROLINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AGROLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AGROLINK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"AGROLINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGROLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGROLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGROLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGROLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGROLINK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"AGROLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"AGROLINK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"AGROLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	MessageWindow    time.Duration `envconfig:"AGROLINK_MESSAGE_RATE_LIMIT_WINDOW" default:"10s"`
	MessageSendLimit int           `envconfig:"AGROLINK_MESSAGE_RATE_LIMIT_SEND_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGROLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGROLINK_AUTO_MIGRATE" default:"false"`
}

// GatesConfig exposes the marketplace gating constants.
type GatesConfig struct {
	MinBulkQty   int             `envconfig:"AGROLINK_GATE_MIN_BULK_QTY" default:"100"`
	MinCartValue decimal.Decimal `envconfig:"AGROLINK_GATE_MIN_CART_VALUE" default:"199"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"AGROLINK_STRIPE_API_KEY"`
	Secret     string `envconfig:"AGROLINK_STRIPE_SECRET"`
	Env        string `envconfig:"AGROLINK_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"AGROLINK_STRIPE_SUCCESS_URL" default:"https://agrolink.example/checkout/success"`
	CancelURL  string `envconfig:"AGROLINK_STRIPE_CANCEL_URL" default:"https://agrolink.example/checkout/cancel"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AGROLINK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"AGROLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AGROLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ChangefeedTopic        string `envconfig:"AGROLINK_PUBSUB_CHANGEFEED_TOPIC"`
	ChangefeedSubscription string `envconfig:"AGROLINK_PUBSUB_CHANGEFEED_SUBSCRIPTION"`
}

// Enabled reports whether the cross-instance changefeed bridge is configured.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ChangefeedTopic) != "" && strings.TrimSpace(p.ChangefeedSubscription) != ""
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
