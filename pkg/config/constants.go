package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "COURTSIDE_DB_DSN"
	EnvDBHost = "COURTSIDE_DB_HOST"
	EnvDBUser = "COURTSIDE_DB_USER"
	EnvDBName = "COURTSIDE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
