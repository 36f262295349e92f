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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Jobs          JobsConfig
	Storage       StorageConfig
	Realtime      RealtimeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Idempotency   IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.validateDurations(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"HOUSEBOOK_APP_ENV" required:"true"`
	Port         string   `envconfig:"HOUSEBOOK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"HOUSEBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"HOUSEBOOK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"HOUSEBOOK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HOUSEBOOK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"HOUSEBOOK_DB_DSN"`
	Driver     string `envconfig:"HOUSEBOOK_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"HOUSEBOOK_DB_SQLITE_PATH" default:"housebook.db"`

	LegacyHost     string `envconfig:"HOUSEBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"HOUSEBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HOUSEBOOK_DB_USER"`
	LegacyPassword string `envconfig:"HOUSEBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"HOUSEBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"HOUSEBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HOUSEBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HOUSEBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HOUSEBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HOUSEBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HOUSEBOOK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HOUSEBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"HOUSEBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"HOUSEBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HOUSEBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HOUSEBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HOUSEBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HOUSEBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HOUSEBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"HOUSEBOOK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"HOUSEBOOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"HOUSEBOOK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"HOUSEBOOK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HOUSEBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HOUSEBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HOUSEBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HOUSEBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HOUSEBOOK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"HOUSEBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"HOUSEBOOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"HOUSEBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"HOUSEBOOK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"HOUSEBOOK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"HOUSEBOOK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HOUSEBOOK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HOUSEBOOK_AUTO_MIGRATE" default:"false"`
}

// JobsConfig tunes the job claim lifecycle.
type JobsConfig struct {
	ClaimTTL  time.Duration `envconfig:"HOUSEBOOK_JOBS_CLAIM_TTL" default:"168h"`
	PINLength int           `envconfig:"HOUSEBOOK_JOBS_PIN_LENGTH" default:"6"`
}

// StorageConfig points at the S3-compatible bucket holding property images.
// An empty endpoint disables signed URLs.
type StorageConfig struct {
	Endpoint          string        `envconfig:"HOUSEBOOK_STORAGE_ENDPOINT"`
	AccessKey         string        `envconfig:"HOUSEBOOK_STORAGE_ACCESS_KEY"`
	SecretKey         string        `envconfig:"HOUSEBOOK_STORAGE_SECRET_KEY"`
	Bucket            string        `envconfig:"HOUSEBOOK_STORAGE_BUCKET" default:"property-images"`
	Region            string        `envconfig:"HOUSEBOOK_STORAGE_REGION"`
	UseSSL            bool          `envconfig:"HOUSEBOOK_STORAGE_USE_SSL" default:"true"`
	DownloadURLExpiry time.Duration `envconfig:"HOUSEBOOK_STORAGE_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

func (s StorageConfig) Enabled() bool {
	return strings.TrimSpace(s.Endpoint) != ""
}

type RealtimeConfig struct {
	Enabled    bool   `envconfig:"HOUSEBOOK_REALTIME_ENABLED" default:"true"`
	Channel    string `envconfig:"HOUSEBOOK_REALTIME_CHANNEL" default:"property_changes"`
	MaxClients int    `envconfig:"HOUSEBOOK_REALTIME_MAX_CLIENTS" default:"1000"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HOUSEBOOK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HOUSEBOOK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HOUSEBOOK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"HOUSEBOOK_PUBSUB_EVENTS_TOPIC" default:"housebook-workflow-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"HOUSEBOOK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"HOUSEBOOK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"HOUSEBOOK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"HOUSEBOOK_OUTBOX_RETENTION" default:"720h"`
}

// PollInterval converts the configured poll interval into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval time.Duration `envconfig:"HOUSEBOOK_CRON_INTERVAL" default:"5m"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"HOUSEBOOK_IDEMPOTENCY_TTL" default:"24h"`
}

func (c *Config) validateDurations() error {
	if c.Jobs.ClaimTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvJobsClaimTTL)
	}
	if c.Jobs.PINLength < 4 || c.Jobs.PINLength > 12 {
		return fmt.Errorf("%s must be between 4 and 12", EnvJobsPINLength)
	}
	if c.JWT.ExpirationMinutes <= 0 {
		return fmt.Errorf("%s must be positive", EnvJWTExpMins)
	}
	if c.Cron.Interval <= 0 {
		return fmt.Errorf("%s must be positive", EnvCronInterval)
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
