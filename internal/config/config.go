package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config interface {
	EnvConfig
	APIConfig
	PersistenceConfig
	RouteConfig
	StubConfig
}

type EnvConfig interface {
	GetEnv() string
	GetAppName() string
	GetLogLevel() string
}

// APIConfig describes where the clinic REST backend lives and which endpoints
// the auth collaborator calls.
type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetLoginPath() string
	GetRegisterPath() string
	GetRefreshPath() string
	GetLogoutPath() string
}

type PersistenceConfig interface {
	GetStoreType() StoreType
	GetStoreFile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type RouteConfig interface {
	GetLoginRoute() string
	GetLandingRoute() string
}

// StubConfig configures the development backend in cmd/clinicstub.
type StubConfig interface {
	GetPort() string
	GetSigningSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type mainConfig struct {
	EnvVars
	API
	Persistence
	Routes
	Stub
}

// New reads the configuration from the environment, applying defaults for
// anything unset.
func New() (Config, error) {
	var c mainConfig
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("config.New ReadEnv: %w", err)
	}
	if err := c.Persistence.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Usage returns a description of every supported environment variable.
func Usage() string {
	desc, err := cleanenv.GetDescription(&mainConfig{}, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}
