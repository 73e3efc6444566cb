package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SELLEROPS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SELLEROPS_DB_DSN"
	EnvDBHost = "SELLEROPS_DB_HOST"
	EnvDBUser = "SELLEROPS_DB_USER"
	EnvDBName = "SELLEROPS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Frontend      FrontendConfig
	MercadoLivre  MercadoLivreConfig
	Bling         BlingConfig
	Sync          SyncConfig
	Metrics       MetricsRollupConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"SELLEROPS_APP_ENV" required:"true"`
	Port         string `envconfig:"SELLEROPS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SELLEROPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SELLEROPS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SELLEROPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SELLEROPS_DB_DSN"`
	Driver string `envconfig:"SELLEROPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SELLEROPS_DB_HOST"`
	LegacyPort     int    `envconfig:"SELLEROPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SELLEROPS_DB_USER"`
	LegacyPassword string `envconfig:"SELLEROPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SELLEROPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SELLEROPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SELLEROPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SELLEROPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SELLEROPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SELLEROPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SELLEROPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SELLEROPS_REDIS_ADDR"`
	Password     string        `envconfig:"SELLEROPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SELLEROPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SELLEROPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SELLEROPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SELLEROPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SELLEROPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SELLEROPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SELLEROPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SELLEROPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SELLEROPS_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"SELLEROPS_SESSION_TTL_MINUTES" default:"1440"`
}

// SessionTTL returns the redis session lifetime.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SELLEROPS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SELLEROPS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SELLEROPS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SELLEROPS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SELLEROPS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SELLEROPS_LOGIN_RATE_WINDOW" default:"5m"`
	LoginIPLimit    int           `envconfig:"SELLEROPS_LOGIN_RATE_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"SELLEROPS_LOGIN_RATE_EMAIL_LIMIT" default:"8"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SELLEROPS_AUTO_MIGRATE" default:"false"`
}

type FrontendConfig struct {
	BaseURL string `envconfig:"SELLEROPS_FRONTEND_URL" default:"http://localhost:5173"`
}

// SettingsRedirect builds the post-OAuth redirect with a status flag.
func (f FrontendConfig) SettingsRedirect(status string) string {
	return fmt.Sprintf("%s/settings?status=%s", strings.TrimRight(f.BaseURL, "/"), url.QueryEscape(status))
}

type MercadoLivreConfig struct {
	ClientID     string        `envconfig:"SELLEROPS_MELI_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"SELLEROPS_MELI_CLIENT_SECRET" required:"true"`
	RedirectURI  string        `envconfig:"SELLEROPS_MELI_REDIRECT_URI" required:"true"`
	APIBaseURL   string        `envconfig:"SELLEROPS_MELI_API_BASE_URL" default:"https://api.mercadolibre.com"`
	AuthBaseURL  string        `envconfig:"SELLEROPS_MELI_AUTH_BASE_URL" default:"https://auth.mercadolivre.com.br"`
	HTTPTimeout  time.Duration `envconfig:"SELLEROPS_MELI_HTTP_TIMEOUT" default:"15s"`
}

type BlingConfig struct {
	APIKey      string        `envconfig:"SELLEROPS_BLING_API_KEY"`
	BaseURL     string        `envconfig:"SELLEROPS_BLING_BASE_URL" default:"https://bling.com.br/Api/v2"`
	HTTPTimeout time.Duration `envconfig:"SELLEROPS_BLING_HTTP_TIMEOUT" default:"15s"`
}

type SyncConfig struct {
	Interval     time.Duration `envconfig:"SELLEROPS_SYNC_INTERVAL" default:"30m"`
	Window       time.Duration `envconfig:"SELLEROPS_SYNC_WINDOW" default:"60m"`
	PageLimit    int           `envconfig:"SELLEROPS_SYNC_PAGE_LIMIT" default:"50"`
	FetchWorkers int           `envconfig:"SELLEROPS_SYNC_FETCH_WORKERS" default:"8"`
}

type MetricsRollupConfig struct {
	Timezone string `envconfig:"SELLEROPS_METRICS_TIMEZONE" default:"America/Sao_Paulo"`
	Hour     int    `envconfig:"SELLEROPS_METRICS_HOUR" default:"1"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SELLEROPS_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	OrderEventsTopic        string `envconfig:"SELLEROPS_PUBSUB_ORDER_EVENTS_TOPIC" default:"so-order-events"`
	OrderEventsSubscription string `envconfig:"SELLEROPS_PUBSUB_ORDER_EVENTS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SELLEROPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SELLEROPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SELLEROPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
