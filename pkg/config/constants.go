package config

// EnvPrefix is passed to envconfig; the struct tags carry the fully prefixed
// variable names, so the prefix itself stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "CLINICORE_APP_ENV"
	EnvDBDSN  = "CLINICORE_DB_DSN"
	EnvDBHost = "CLINICORE_DB_HOST"
	EnvDBUser = "CLINICORE_DB_USER"
	EnvDBName = "CLINICORE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
