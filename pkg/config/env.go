package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	MailTransportPassword = "password"
	MailTransportOAuth2   = "oauth2"
)

const (
	EnvAppEnv   = "FOLIO_APP_ENV"
	EnvPort     = "FOLIO_APP_PORT"
	EnvLogLevel = "FOLIO_LOG_LEVEL"

	EnvDBDSN  = "FOLIO_DB_DSN"
	EnvDBHost = "FOLIO_DB_HOST"
	EnvDBUser = "FOLIO_DB_USER"
	EnvDBName = "FOLIO_DB_NAME"

	EnvRedisURL = "FOLIO_REDIS_URL"

	EnvJWTSecret  = "FOLIO_JWT_SECRET"
	EnvJWTIssuer  = "FOLIO_JWT_ISSUER"
	EnvJWTExpMins = "FOLIO_JWT_EXPIRATION_MINUTES"

	EnvGuardMaxAttempts  = "FOLIO_GUARD_MAX_ATTEMPTS"
	EnvGuardLockDuration = "FOLIO_GUARD_LOCK_DURATION"

	EnvDBDriver = "FOLIO_DB_DRIVER"

	EnvGCPProjectID = "FOLIO_GCP_PROJECT_ID"
	EnvGCSBucket    = "FOLIO_GCS_BUCKET_NAME"

	EnvMailTransport       = "FOLIO_MAIL_TRANSPORT"
	EnvMailUsername        = "FOLIO_MAIL_USERNAME"
	EnvMailOAuthClientID   = "FOLIO_MAIL_OAUTH_CLIENT_ID"
	EnvMailOAuthSecret     = "FOLIO_MAIL_OAUTH_CLIENT_SECRET"
	EnvMailOAuthRefreshTok = "FOLIO_MAIL_OAUTH_REFRESH_TOKEN"

	EnvBootstrapUsername = "FOLIO_BOOTSTRAP_USERNAME"
	EnvBootstrapEmail    = "FOLIO_BOOTSTRAP_EMAIL"
	EnvBootstrapPassword = "FOLIO_BOOTSTRAP_PASSWORD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
