package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type StoreType string

const (
	StoreFile   StoreType = "file"
	StoreRedis  StoreType = "redis"
	StoreMemory StoreType = "memory"
)

type EnvVars struct {
	Env      string `env:"CLINIC_ENV" env-default:"DEV" env-description:"deployment environment"`
	AppName  string `env:"CLINIC_APP_NAME" env-default:"Clinic" env-description:"application name shown in banners"`
	LogLevel string `env:"CLINIC_LOG_LEVEL" env-default:"info" env-description:"zerolog level (debug, info, warn, error)"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

type API struct {
	BaseURL        string        `env:"CLINIC_API_URL" env-default:"http://localhost:8080" env-description:"clinic REST backend base URL"`
	RequestTimeout time.Duration `env:"CLINIC_REQUEST_TIMEOUT" env-default:"15s" env-description:"per request transport timeout"`
	LoginPath      string        `env:"CLINIC_LOGIN_PATH" env-default:"/auth/login"`
	RegisterPath   string        `env:"CLINIC_REGISTER_PATH" env-default:"/auth/register"`
	RefreshPath    string        `env:"CLINIC_REFRESH_PATH" env-default:"/auth/refresh"`
	LogoutPath     string        `env:"CLINIC_LOGOUT_PATH" env-default:"/auth/logout"`
}

var _ APIConfig = API{}

func (a API) GetBaseURL() string {
	return strings.TrimSuffix(a.BaseURL, "/")
}

func (a API) GetRequestTimeout() time.Duration {
	return a.RequestTimeout
}

func (a API) GetLoginPath() string {
	return a.LoginPath
}

func (a API) GetRegisterPath() string {
	return a.RegisterPath
}

func (a API) GetRefreshPath() string {
	return a.RefreshPath
}

func (a API) GetLogoutPath() string {
	return a.LogoutPath
}

type Persistence struct {
	Store         StoreType `env:"CLINIC_STORE" env-default:"file" env-description:"session persistence backend (file, redis, memory)"`
	StoreFile     string    `env:"CLINIC_STORE_FILE" env-description:"session file path, defaults to ~/.clinic/session.json"`
	RedisAddr     string    `env:"CLINIC_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string    `env:"CLINIC_REDIS_PASSWORD"`
	RedisDB       int       `env:"CLINIC_REDIS_DB" env-default:"0"`
	RedisPrefix   string    `env:"CLINIC_REDIS_PREFIX" env-default:"clinic:session:"`
}

var _ PersistenceConfig = Persistence{}

func (p Persistence) validate() error {
	switch p.Store {
	case StoreFile, StoreRedis, StoreMemory:
		return nil
	default:
		return fmt.Errorf("config: unknown CLINIC_STORE %q", p.Store)
	}
}

func (p Persistence) GetStoreType() StoreType {
	return p.Store
}

func (p Persistence) GetStoreFile() string {
	if p.StoreFile != "" {
		return p.StoreFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clinic-session.json"
	}
	return home + "/.clinic/session.json"
}

func (p Persistence) GetRedisAddr() string {
	return p.RedisAddr
}

func (p Persistence) GetRedisPassword() string {
	return p.RedisPassword
}

func (p Persistence) GetRedisDB() int {
	return p.RedisDB
}

func (p Persistence) GetRedisPrefix() string {
	return p.RedisPrefix
}

type Routes struct {
	LoginRoute   string `env:"CLINIC_LOGIN_ROUTE" env-default:"/login" env-description:"unauthenticated entry point"`
	LandingRoute string `env:"CLINIC_LANDING_ROUTE" env-default:"/dashboard" env-description:"default authenticated landing page"`
}

var _ RouteConfig = Routes{}

func (r Routes) GetLoginRoute() string {
	return r.LoginRoute
}

func (r Routes) GetLandingRoute() string {
	return r.LandingRoute
}

type Stub struct {
	Port          string        `env:"CLINIC_STUB_PORT" env-default:"8080"`
	SigningSecret string        `env:"CLINIC_STUB_SECRET" env-default:"dev-only-secret"`
	AccessTTL     time.Duration `env:"CLINIC_STUB_ACCESS_TTL" env-default:"1m"`
	RefreshTTL    time.Duration `env:"CLINIC_STUB_REFRESH_TTL" env-default:"168h"`
}

var _ StubConfig = Stub{}

func (s Stub) GetPort() string {
	port := s.Port
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (s Stub) GetSigningSecret() string {
	return s.SigningSecret
}

func (s Stub) GetAccessTokenExpiry() time.Duration {
	return s.AccessTTL
}

func (s Stub) GetRefreshTokenExpiry() time.Duration {
	return s.RefreshTTL
}
