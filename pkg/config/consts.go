package config

const (
	EnvPrefix = "SITEWRAP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SITEWRAP_DB_DSN"
	EnvDBHost = "SITEWRAP_DB_HOST"
	EnvDBUser = "SITEWRAP_DB_USER"
	EnvDBName = "SITEWRAP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
