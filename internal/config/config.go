// Package config loads and validates the server configuration from the
// environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config interface {
	ServerConfig
	CorsConfig
	TokenConfig
	StoreConfig
	SecurityConfig
}

type ServerConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// TokenConfig carries the token lifetimes and signing material. Exactly one of
// the HMAC secret or the PEM key pair is set once Load has validated it.
type TokenConfig interface {
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetClockSkew() time.Duration
	GetSigningKey() string
	GetPrivateKeyPEM() string
	GetPublicKeyPEM() string
	GetIssuer() string
}

type StoreConfig interface {
	GetSessionStore() StoreKind
	GetDatabaseURL() string
	GetRedisAddr() string
	GetRedisKeyPrefix() string
	GetStoreTimeout() time.Duration
}

type SecurityConfig interface {
	GetBcryptCost() int
	GetLoginRatePerMinute() int
	GetSeedUser() SeedUser
}

// StoreKind selects the session store backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
)

// SeedUser is an optional account created at startup.
type SeedUser struct {
	Email    string
	Password string
	Name     string
}

func (s SeedUser) Enabled() bool {
	return s.Email != "" && s.Password != ""
}

type values struct {
	Port               string        `mapstructure:"PORT"`
	AppName            string        `mapstructure:"APP_NAME"`
	Env                string        `mapstructure:"ENV"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	AllowedOrigins     string        `mapstructure:"ALLOWED_ORIGINS"`
	AccessTokenTTL     time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL    time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	ClockSkew          time.Duration `mapstructure:"CLOCK_SKEW"`
	SigningKey         string        `mapstructure:"SIGNING_KEY"`
	PrivateKeyPEM      string        `mapstructure:"JWT_PRIVATE_KEY"`
	PublicKeyPEM       string        `mapstructure:"JWT_PUBLIC_KEY"`
	Issuer             string        `mapstructure:"TOKEN_ISSUER"`
	SessionStore       string        `mapstructure:"SESSION_STORE"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisKeyPrefix     string        `mapstructure:"REDIS_KEY_PREFIX"`
	StoreTimeout       time.Duration `mapstructure:"STORE_TIMEOUT"`
	BcryptCost         int           `mapstructure:"BCRYPT_COST"`
	LoginRatePerMinute int           `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	SeedUserEmail      string        `mapstructure:"SEED_USER_EMAIL"`
	SeedUserPassword   string        `mapstructure:"SEED_USER_PASSWORD"`
	SeedUserName       string        `mapstructure:"SEED_USER_NAME"`
}

var _ Config = (*values)(nil)

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env. A missing signing key is an error: the
// server must not start without one.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_NAME", "Session Auth")
	v.SetDefault("ENV", "DEV")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "8760h") // 1y
	v.SetDefault("CLOCK_SKEW", "1s")
	v.SetDefault("SIGNING_KEY", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("TOKEN_ISSUER", "go-session-auth")
	v.SetDefault("SESSION_STORE", string(StoreMemory))
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_KEY_PREFIX", "auth:sessions:")
	v.SetDefault("STORE_TIMEOUT", "2s")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 30)
	v.SetDefault("SEED_USER_EMAIL", "")
	v.SetDefault("SEED_USER_PASSWORD", "")
	v.SetDefault("SEED_USER_NAME", "")

	var cfg values
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *values) validate() error {
	if c.SigningKey == "" && (c.PrivateKeyPEM == "" || c.PublicKeyPEM == "") {
		return errors.New("config: SIGNING_KEY or JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("config: ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		return errors.New("config: REFRESH_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return errors.New("config: REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}
	if c.ClockSkew < 0 {
		return errors.New("config: CLOCK_SKEW must not be negative")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("config: STORE_TIMEOUT must be positive")
	}
	switch StoreKind(strings.ToLower(c.SessionStore)) {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when SESSION_STORE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

func (c *values) GetPort() string {
	port := c.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (c *values) GetAppName() string  { return c.AppName }
func (c *values) GetEnv() string      { return c.Env }
func (c *values) GetLogLevel() string { return c.LogLevel }

func (c *values) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *values) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }
func (c *values) GetClockSkew() time.Duration       { return c.ClockSkew }
func (c *values) GetSigningKey() string             { return c.SigningKey }
func (c *values) GetPrivateKeyPEM() string          { return c.PrivateKeyPEM }
func (c *values) GetPublicKeyPEM() string           { return c.PublicKeyPEM }
func (c *values) GetIssuer() string                 { return c.Issuer }

func (c *values) GetSessionStore() StoreKind {
	return StoreKind(strings.ToLower(c.SessionStore))
}

func (c *values) GetDatabaseURL() string         { return c.DatabaseURL }
func (c *values) GetRedisAddr() string           { return c.RedisAddr }
func (c *values) GetRedisKeyPrefix() string      { return c.RedisKeyPrefix }
func (c *values) GetStoreTimeout() time.Duration { return c.StoreTimeout }

func (c *values) GetBcryptCost() int         { return c.BcryptCost }
func (c *values) GetLoginRatePerMinute() int { return c.LoginRatePerMinute }

func (c *values) GetSeedUser() SeedUser {
	return SeedUser{Email: c.SeedUserEmail, Password: c.SeedUserPassword, Name: c.SeedUserName}
}

func (c *values) GetAllowedOrigins() AllowedOrigins {
	return ParseAllowedOrigins(c.AllowedOrigins)
}

func (c *values) GetAllowedMethods() string {
	return "GET, POST, DELETE"
}

func (c *values) GetAllowedHeaders() string {
	return "Content-Type, Authorization, X-Refresh"
}
