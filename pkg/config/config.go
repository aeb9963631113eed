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
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Captcha      CaptchaConfig
	Build        BuildConfig
	S3           S3Config
	Download     DownloadConfig
	Billing      BillingConfig
	Bootstrap    BootstrapConfig
	Bot          BotConfig
	Generation   GenerationConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SITEWRAP_APP_ENV" required:"true"`
	Port         string `envconfig:"SITEWRAP_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"SITEWRAP_APP_BASE_URL" required:"true"`
	LogLevel     string `envconfig:"SITEWRAP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SITEWRAP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SITEWRAP_DB_DSN"`
	Driver string `envconfig:"SITEWRAP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SITEWRAP_DB_HOST"`
	LegacyPort     int    `envconfig:"SITEWRAP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SITEWRAP_DB_USER"`
	LegacyPassword string `envconfig:"SITEWRAP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SITEWRAP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SITEWRAP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SITEWRAP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SITEWRAP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SITEWRAP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SITEWRAP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SITEWRAP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SITEWRAP_REDIS_ADDR"`
	Password     string        `envconfig:"SITEWRAP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SITEWRAP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SITEWRAP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SITEWRAP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SITEWRAP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SITEWRAP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SITEWRAP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret          string        `envconfig:"SITEWRAP_JWT_SECRET" required:"true"`
	Issuer          string        `envconfig:"SITEWRAP_JWT_ISSUER" required:"true"`
	TokenTTL        time.Duration `envconfig:"SITEWRAP_JWT_TOKEN_TTL" default:"24h"`
	CookieName      string        `envconfig:"SITEWRAP_JWT_COOKIE_NAME" default:"sitewrap_session"`
	CookieSecure    bool          `envconfig:"SITEWRAP_JWT_COOKIE_SECURE" default:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SITEWRAP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SITEWRAP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SITEWRAP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SITEWRAP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SITEWRAP_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"SITEWRAP_PASSWORD_MIN_LENGTH" default:"8"`
}

// RateLimitConfig holds the fixed-window budgets for each traffic scope.
type RateLimitConfig struct {
	GeneralWindow time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_GENERAL_WINDOW" default:"1m"`
	GeneralLimit  int           `envconfig:"SITEWRAP_RATE_LIMIT_GENERAL_LIMIT" default:"100"`

	LoginWindow time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_LOGIN_WINDOW" default:"15m"`
	LoginLimit  int           `envconfig:"SITEWRAP_RATE_LIMIT_LOGIN_LIMIT" default:"10"`

	RegisterWindow time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_REGISTER_WINDOW" default:"1h"`
	RegisterLimit  int           `envconfig:"SITEWRAP_RATE_LIMIT_REGISTER_LIMIT" default:"3"`

	GenerateUserWindow time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_GENERATE_USER_WINDOW" default:"1h"`
	GenerateUserLimit  int           `envconfig:"SITEWRAP_RATE_LIMIT_GENERATE_USER_LIMIT" default:"5"`
	GenerateIPWindow   time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_GENERATE_IP_WINDOW" default:"1h"`
	GenerateIPLimit    int           `envconfig:"SITEWRAP_RATE_LIMIT_GENERATE_IP_LIMIT" default:"10"`

	FileWindow time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_FILE_WINDOW" default:"1m"`
	FileLimit  int           `envconfig:"SITEWRAP_RATE_LIMIT_FILE_LIMIT" default:"30"`

	AdminWindow time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_ADMIN_WINDOW" default:"1m"`
	AdminLimit  int           `envconfig:"SITEWRAP_RATE_LIMIT_ADMIN_LIMIT" default:"50"`

	WebhookWindow time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_WEBHOOK_WINDOW" default:"1m"`
	WebhookLimit  int           `envconfig:"SITEWRAP_RATE_LIMIT_WEBHOOK_LIMIT" default:"20"`

	DownloadWindow time.Duration `envconfig:"SITEWRAP_RATE_LIMIT_DOWNLOAD_WINDOW" default:"1m"`
	DownloadLimit  int           `envconfig:"SITEWRAP_RATE_LIMIT_DOWNLOAD_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SITEWRAP_AUTO_MIGRATE" default:"false"`
}

type CaptchaConfig struct {
	Secret    string        `envconfig:"SITEWRAP_CAPTCHA_SECRET" required:"true"`
	VerifyURL string        `envconfig:"SITEWRAP_CAPTCHA_VERIFY_URL" default:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
	Timeout   time.Duration `envconfig:"SITEWRAP_CAPTCHA_TIMEOUT" default:"10s"`
}

type BuildConfig struct {
	TriggerURL     string        `envconfig:"SITEWRAP_BUILD_TRIGGER_URL" required:"true"`
	TriggerToken   string        `envconfig:"SITEWRAP_BUILD_TRIGGER_TOKEN" required:"true"`
	CallbackSecret string        `envconfig:"SITEWRAP_BUILD_CALLBACK_SECRET" required:"true"`
	Timeout        time.Duration `envconfig:"SITEWRAP_BUILD_TRIGGER_TIMEOUT" default:"10s"`
}

type S3Config struct {
	Bucket       string `envconfig:"SITEWRAP_S3_BUCKET" required:"true"`
	Region       string `envconfig:"SITEWRAP_S3_REGION" default:"us-east-1"`
	BaseEndpoint string `envconfig:"SITEWRAP_S3_ENDPOINT"`
	AccessKey    string `envconfig:"SITEWRAP_S3_ACCESS_KEY"`
	SecretKey    string `envconfig:"SITEWRAP_S3_SECRET_KEY"`
	UsePathStyle bool   `envconfig:"SITEWRAP_S3_PATH_STYLE" default:"true"`
}

type DownloadConfig struct {
	Secret string        `envconfig:"SITEWRAP_DOWNLOAD_SECRET" required:"true"`
	TTL    time.Duration `envconfig:"SITEWRAP_DOWNLOAD_TTL" default:"168h"`
}

type BillingConfig struct {
	TariffAmount string `envconfig:"SITEWRAP_TARIFF_AMOUNT" default:"15.00"`
	Currency     string `envconfig:"SITEWRAP_TARIFF_CURRENCY" default:"USD"`

	tariff decimal.Decimal
}

// Tariff returns the parsed fixed per-build price.
func (b BillingConfig) Tariff() decimal.Decimal {
	if !b.tariff.IsZero() {
		return b.tariff
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(b.TariffAmount))
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func (b *BillingConfig) validate() error {
	amount, err := decimal.NewFromString(strings.TrimSpace(b.TariffAmount))
	if err != nil {
		return fmt.Errorf("parsing tariff amount %q: %w", b.TariffAmount, err)
	}
	if amount.IsNegative() || amount.IsZero() {
		return fmt.Errorf("tariff amount must be positive, got %s", amount)
	}
	b.tariff = amount
	return nil
}

type BootstrapConfig struct {
	AdminEmail    string `envconfig:"SITEWRAP_BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"SITEWRAP_BOOTSTRAP_ADMIN_PASSWORD"`
}

type BotConfig struct {
	Token          string `envconfig:"SITEWRAP_BOT_TOKEN"`
	OperatorChatID int64  `envconfig:"SITEWRAP_BOT_OPERATOR_CHAT_ID"`
}

type GenerationConfig struct {
	Cooldown    time.Duration `envconfig:"SITEWRAP_GENERATION_COOLDOWN" default:"10m"`
	MaxIconSize int64         `envconfig:"SITEWRAP_GENERATION_MAX_ICON_BYTES" default:"1048576"`
	MaxHTMLSize int64         `envconfig:"SITEWRAP_GENERATION_MAX_HTML_BYTES" default:"20971520"`
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
