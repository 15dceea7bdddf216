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
	Inventory     InventoryConfig
	GoogleOAuth   GoogleOAuthConfig
	SMTP          SMTPConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Frontend      FrontendConfig
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
	Env          string `envconfig:"VESTIKA_APP_ENV" required:"true"`
	Port         string `envconfig:"VESTIKA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VESTIKA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VESTIKA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VESTIKA_DB_DSN"`
	Driver string `envconfig:"VESTIKA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VESTIKA_DB_HOST"`
	LegacyPort     int    `envconfig:"VESTIKA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VESTIKA_DB_USER"`
	LegacyPassword string `envconfig:"VESTIKA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VESTIKA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VESTIKA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VESTIKA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VESTIKA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VESTIKA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VESTIKA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VESTIKA_REDIS_URL" required:"true"`
	Password     string        `envconfig:"VESTIKA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VESTIKA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VESTIKA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VESTIKA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VESTIKA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VESTIKA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VESTIKA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VESTIKA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VESTIKA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VESTIKA_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VESTIKA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VESTIKA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VESTIKA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VESTIKA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VESTIKA_ARGON_KEY_LEN" default:"32"`

	ResetTokenTTL time.Duration `envconfig:"VESTIKA_PASSWORD_RESET_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"VESTIKA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"VESTIKA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"VESTIKA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"VESTIKA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"VESTIKA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"VESTIKA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VESTIKA_AUTO_MIGRATE" default:"false"`
}

// InventoryConfig controls the legacy missing-variant policy: products created
// before variants existed have no variant rows, and carts/orders referencing
// them are allowed through with a logged warning when this flag is on.
type InventoryConfig struct {
	AllowMissingVariant bool `envconfig:"VESTIKA_INVENTORY_ALLOW_MISSING_VARIANT" default:"true"`
}

type GoogleOAuthConfig struct {
	ClientID     string `envconfig:"VESTIKA_GOOGLE_CLIENT_ID"`
	ClientSecret string `envconfig:"VESTIKA_GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `envconfig:"VESTIKA_GOOGLE_REDIRECT_URL"`
}

func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type SMTPConfig struct {
	Host     string `envconfig:"VESTIKA_SMTP_HOST"`
	Port     int    `envconfig:"VESTIKA_SMTP_PORT" default:"587"`
	Username string `envconfig:"VESTIKA_SMTP_USERNAME"`
	Password string `envconfig:"VESTIKA_SMTP_PASSWORD"`
	From     string `envconfig:"VESTIKA_SMTP_FROM"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"VESTIKA_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"VESTIKA_GCP_CREDENTIALS_JSON"`
}

type GCSConfig struct {
	BucketName string `envconfig:"VESTIKA_GCS_BUCKET_NAME"`
	URLPrefix  string `envconfig:"VESTIKA_GCS_URL_PREFIX" default:"https://storage.googleapis.com"`
}

type FrontendConfig struct {
	BaseURL string `envconfig:"VESTIKA_FRONTEND_BASE_URL" default:"http://localhost:3000"`
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
