package config

type Config interface {
	EnvConfig
	OAuthConfig
	RoleConfig
}

type mainConfig struct {
	EnvVars
	OAuth
	Roles
}

func New() Config {
	return mainConfig{}
}
