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
	Guard         GuardConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	Mail          MailConfig
	Bootstrap     BootstrapConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.DB.IsSQLite() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Mail.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FOLIO_APP_ENV" required:"true"`
	Port         string `envconfig:"FOLIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FOLIO_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FOLIO_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FOLIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN        string `envconfig:"FOLIO_DB_DSN"`
	Driver     string `envconfig:"FOLIO_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"FOLIO_DB_SQLITE_PATH" default:"folio.db"`

	LegacyHost     string `envconfig:"FOLIO_DB_HOST"`
	LegacyPort     int    `envconfig:"FOLIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FOLIO_DB_USER"`
	LegacyPassword string `envconfig:"FOLIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"FOLIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"FOLIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FOLIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FOLIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FOLIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FOLIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"FOLIO_REDIS_URL"`
	Address      string        `envconfig:"FOLIO_REDIS_ADDR"`
	Password     string        `envconfig:"FOLIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOLIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOLIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FOLIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FOLIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FOLIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FOLIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"FOLIO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FOLIO_JWT_ISSUER" default:"folio"`
	ExpirationMinutes int    `envconfig:"FOLIO_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FOLIO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FOLIO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FOLIO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FOLIO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FOLIO_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"FOLIO_PASSWORD_MIN_LENGTH" default:"8"`
}

// GuardConfig drives the failed-login lockout state machine.
type GuardConfig struct {
	MaxAttempts  int           `envconfig:"FOLIO_GUARD_MAX_ATTEMPTS" default:"5"`
	LockDuration time.Duration `envconfig:"FOLIO_GUARD_LOCK_DURATION" default:"2h"`
}

type AuthRateLimitConfig struct {
	LoginWindow          time.Duration `envconfig:"FOLIO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIdentifierLimit int           `envconfig:"FOLIO_AUTH_RATE_LIMIT_LOGIN_IDENTIFIER_LIMIT" default:"10"`
	LoginIPLimit         int           `envconfig:"FOLIO_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"30"`
	ContactWindow        time.Duration `envconfig:"FOLIO_RATE_LIMIT_CONTACT_WINDOW" default:"10m"`
	ContactIPLimit       int           `envconfig:"FOLIO_RATE_LIMIT_CONTACT_IP_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"FOLIO_AUTO_MIGRATE" default:"false"`
	ThumbnailsOff bool `envconfig:"FOLIO_THUMBNAILS_DISABLED" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FOLIO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FOLIO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FOLIO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"FOLIO_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"FOLIO_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	ObjectPrefix  string `envconfig:"FOLIO_GCS_OBJECT_PREFIX" default:"portfolio"`
}

type MediaConfig struct {
	MaxImageMB      int    `envconfig:"FOLIO_MEDIA_MAX_IMAGE_MB" default:"10"`
	MaxVideoMB      int    `envconfig:"FOLIO_MEDIA_MAX_VIDEO_MB" default:"100"`
	ThumbnailWidth  int    `envconfig:"FOLIO_MEDIA_THUMBNAIL_WIDTH" default:"400"`
	ThumbnailHeight int    `envconfig:"FOLIO_MEDIA_THUMBNAIL_HEIGHT" default:"300"`
	ThumbnailFormat string `envconfig:"FOLIO_MEDIA_THUMBNAIL_FORMAT" default:"jpeg"`
}

// MaxBytes returns the upload size limit for the provided media kind.
func (m MediaConfig) MaxBytes(video bool) int64 {
	if video {
		return int64(m.MaxVideoMB) * 1024 * 1024
	}
	return int64(m.MaxImageMB) * 1024 * 1024
}

type MailConfig struct {
	Transport string        `envconfig:"FOLIO_MAIL_TRANSPORT" default:"password"`
	Host      string        `envconfig:"FOLIO_MAIL_HOST" default:"smtp.gmail.com"`
	Port      int           `envconfig:"FOLIO_MAIL_PORT" default:"587"`
	Username  string        `envconfig:"FOLIO_MAIL_USERNAME"`
	Password  string        `envconfig:"FOLIO_MAIL_PASSWORD"`
	From      string        `envconfig:"FOLIO_MAIL_FROM"`
	ContactTo string        `envconfig:"FOLIO_MAIL_CONTACT_TO"`
	Timeout   time.Duration `envconfig:"FOLIO_MAIL_TIMEOUT" default:"15s"`

	OAuthClientID     string `envconfig:"FOLIO_MAIL_OAUTH_CLIENT_ID"`
	OAuthClientSecret string `envconfig:"FOLIO_MAIL_OAUTH_CLIENT_SECRET"`
	OAuthRefreshToken string `envconfig:"FOLIO_MAIL_OAUTH_REFRESH_TOKEN"`
	OAuthTokenURL     string `envconfig:"FOLIO_MAIL_OAUTH_TOKEN_URL" default:"https://oauth2.googleapis.com/token"`
}

// IsOAuth2 reports whether the OAuth2 (XOAUTH2) transport is selected.
func (m MailConfig) IsOAuth2() bool {
	return strings.EqualFold(strings.TrimSpace(m.Transport), MailTransportOAuth2)
}

func (m MailConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(m.Transport)) {
	case MailTransportPassword, MailTransportOAuth2:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvMailTransport, MailTransportPassword, MailTransportOAuth2)
	}
	if m.IsOAuth2() && m.Username != "" {
		if m.OAuthClientID == "" || m.OAuthClientSecret == "" || m.OAuthRefreshToken == "" {
			return fmt.Errorf("oauth2 mail transport requires client id, client secret and refresh token")
		}
	}
	return nil
}

// BootstrapConfig seeds the first superadmin when the admins table is empty.
type BootstrapConfig struct {
	Username string `envconfig:"FOLIO_BOOTSTRAP_USERNAME"`
	Email    string `envconfig:"FOLIO_BOOTSTRAP_EMAIL"`
	Password string `envconfig:"FOLIO_BOOTSTRAP_PASSWORD"`
}

// Enabled reports whether bootstrap credentials are fully configured.
func (b BootstrapConfig) Enabled() bool {
	return b.Username != "" && b.Email != "" && b.Password != ""
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FOLIO_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
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
