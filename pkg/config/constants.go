package config

const (
	// EnvPrefix namespaces every environment variable the service consumes.
	EnvPrefix = "VESTIKA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VESTIKA_DB_DSN"
	EnvDBHost = "VESTIKA_DB_HOST"
	EnvDBUser = "VESTIKA_DB_USER"
	EnvDBName = "VESTIKA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
