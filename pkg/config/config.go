package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cart          CartConfig
	Checkout      CheckoutConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Kafka         KafkaConfig
	Outbox        OutboxConfig
	OpenAI        OpenAIConfig
	Chat          ChatConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cart.LoginPolicy {
	case CartLoginPolicyMerge, CartLoginPolicyDiscard:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvCartLoginPolicy, CartLoginPolicyMerge, CartLoginPolicyDiscard, c.Cart.LoginPolicy)
	}
	switch c.Outbox.Sink {
	case OutboxSinkPubSub, OutboxSinkKafka:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvOutboxSink, OutboxSinkPubSub, OutboxSinkKafka, c.Outbox.Sink)
	}
	if c.Outbox.Sink == OutboxSinkKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%s is required when the outbox sink is kafka", EnvKafkaBrokers)
	}
	return nil
}

type AppConfig struct {
	Env           string `envconfig:"PEERSEN_APP_ENV" required:"true"`
	Port          string `envconfig:"PEERSEN_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"PEERSEN_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"PEERSEN_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"PEERSEN_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PEERSEN_DB_DSN"`
	Driver string `envconfig:"PEERSEN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PEERSEN_DB_HOST"`
	LegacyPort     int    `envconfig:"PEERSEN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PEERSEN_DB_USER"`
	LegacyPassword string `envconfig:"PEERSEN_DB_PASSWORD"`
	LegacyName     string `envconfig:"PEERSEN_DB_NAME"`
	LegacySSLMode  string `envconfig:"PEERSEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PEERSEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PEERSEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PEERSEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PEERSEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PEERSEN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PEERSEN_REDIS_ADDR"`
	Password     string        `envconfig:"PEERSEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"PEERSEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PEERSEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PEERSEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PEERSEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PEERSEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PEERSEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PEERSEN_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PEERSEN_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PEERSEN_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PEERSEN_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PEERSEN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PEERSEN_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PEERSEN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PEERSEN_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PEERSEN_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"PEERSEN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"PEERSEN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow  time.Duration `envconfig:"PEERSEN_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit int           `envconfig:"PEERSEN_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PEERSEN_FEATURE_AUTO_MIGRATE" default:"false"`
}

// CartConfig controls how guest and customer carts are kept in sync.
type CartConfig struct {
	LoginPolicy    string        `envconfig:"PEERSEN_CART_LOGIN_POLICY" default:"merge"`
	LocalTTL       time.Duration `envconfig:"PEERSEN_CART_LOCAL_TTL" default:"720h"`
	SessionIdleTTL time.Duration `envconfig:"PEERSEN_CART_SESSION_IDLE_TTL" default:"30m"`
	WriteTimeout   time.Duration `envconfig:"PEERSEN_CART_WRITE_TIMEOUT" default:"5s"`
	SweepInterval  time.Duration `envconfig:"PEERSEN_CART_SWEEP_INTERVAL" default:"1m"`
}

type CheckoutConfig struct {
	FreeShippingThreshold string `envconfig:"PEERSEN_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"500"`
	ShippingFee           string `envconfig:"PEERSEN_CHECKOUT_SHIPPING_FEE" default:"79"`
	Currency              string `envconfig:"PEERSEN_CHECKOUT_CURRENCY" default:"nok"`
	Country               string `envconfig:"PEERSEN_CHECKOUT_COUNTRY" default:"Norge"`
}

type StripeConfig struct {
	APIKey string `envconfig:"PEERSEN_STRIPE_API_KEY"`
	Secret string `envconfig:"PEERSEN_STRIPE_SECRET"`
	Env    string `envconfig:"PEERSEN_STRIPE_ENV" default:"test"`
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
	ProjectID              string `envconfig:"PEERSEN_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PEERSEN_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PEERSEN_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"PEERSEN_GCS_BUCKET_NAME" default:"product-images"`
	PublicBaseURL string `envconfig:"PEERSEN_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB  int `envconfig:"PEERSEN_MAX_UPLOAD_MB" default:"10"`
	CacheSeconds int `envconfig:"PEERSEN_MEDIA_CACHE_SECONDS" default:"3600"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"PEERSEN_PUBSUB_ORDERS_TOPIC" default:"peersen-order-events"`
	OrdersSubscription string `envconfig:"PEERSEN_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"PEERSEN_KAFKA_BROKERS"`
	OrdersTopic  string        `envconfig:"PEERSEN_KAFKA_ORDERS_TOPIC" default:"peersen.order-events"`
	WriteTimeout time.Duration `envconfig:"PEERSEN_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	Sink           string `envconfig:"PEERSEN_OUTBOX_SINK" default:"pubsub"`
	BatchSize      int    `envconfig:"PEERSEN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"PEERSEN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"PEERSEN_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"PEERSEN_CRON_INTERVAL" default:"1h"`
	PendingOrderTTL     time.Duration `envconfig:"PEERSEN_CRON_PENDING_ORDER_TTL" default:"48h"`
	OutboxRetentionDays int           `envconfig:"PEERSEN_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type OpenAIConfig struct {
	APIKey      string  `envconfig:"PEERSEN_OPENAI_API_KEY"`
	BaseURL     string  `envconfig:"PEERSEN_OPENAI_BASE_URL"`
	Model       string  `envconfig:"PEERSEN_OPENAI_MODEL" default:"gpt-4o-mini"`
	Temperature float32 `envconfig:"PEERSEN_OPENAI_TEMPERATURE" default:"0.7"`
	MaxTokens   int     `envconfig:"PEERSEN_OPENAI_MAX_TOKENS" default:"500"`
}

type ChatConfig struct {
	RateLimitWindow time.Duration `envconfig:"PEERSEN_CHAT_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitIP     int           `envconfig:"PEERSEN_CHAT_RATE_LIMIT_IP_LIMIT" default:"20"`
	MaxMessages     int           `envconfig:"PEERSEN_CHAT_MAX_MESSAGES" default:"20"`
	BreakerTimeout  time.Duration `envconfig:"PEERSEN_CHAT_BREAKER_TIMEOUT" default:"30s"`
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
