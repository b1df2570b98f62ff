package config

// EnvPrefix is handed to envconfig; every field carries an explicit envconfig tag.
const EnvPrefix = "LOYALTY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	SplitPolicyMerchantFull = "merchant_full"
	SplitPolicyProportional = "proportional"
)

const (
	EnvAppEnv                 = "LOYALTY_APP_ENV"
	EnvPort                   = "LOYALTY_APP_PORT"
	EnvDBDSN                  = "LOYALTY_DB_DSN"
	EnvDBDriver               = "LOYALTY_DB_DRIVER"
	EnvDBHost                 = "LOYALTY_DB_HOST"
	EnvDBUser                 = "LOYALTY_DB_USER"
	EnvDBName                 = "LOYALTY_DB_NAME"
	EnvRedisURL               = "LOYALTY_REDIS_URL"
	EnvJWTSecret              = "LOYALTY_JWT_SECRET"
	EnvJWTIssuer              = "LOYALTY_JWT_ISSUER"
	EnvUseSQLite              = "LOYALTY_USE_SQLITE"
	EnvPointsTimezone         = "LOYALTY_POINTS_TIMEZONE"
	EnvPointsDefaultOwnerRate = "LOYALTY_POINTS_DEFAULT_OWNER_RATE"
	EnvPointsSplitPolicy      = "LOYALTY_POINTS_SPLIT_POLICY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
