package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig lists the environment variables the server understands. The
// secret names match the ones used by existing deployments.
type envConfig struct {
	HTTPAddr                     string        `env:"GOPHAUTH_HTTP_ADDR"`
	GRPCAddr                     string        `env:"GOPHAUTH_GRPC_ADDR"`
	APIPrefix                    string        `env:"GOPHAUTH_API_PREFIX"`
	DatabaseDriver               string        `env:"GOPHAUTH_DATABASE_DRIVER"`
	DatabaseDSN                  string        `env:"DATABASE_DSN"`
	AccessTokenSecret            string        `env:"JWT_SECRET_KEY"`
	RefreshTokenSecret           string        `env:"JWT_REFRESH_KEY"`
	AccessTokenValidityDuration  time.Duration `env:"GOPHAUTH_ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"GOPHAUTH_REFRESH_TOKEN_TTL"`
	BcryptCost                   int           `env:"GOPHAUTH_BCRYPT_COST"`
	HashConcurrency              int           `env:"GOPHAUTH_HASH_CONCURRENCY"`
	CookieSecure                 *bool         `env:"GOPHAUTH_COOKIE_SECURE"`
	LogLevel                     string        `env:"GOPHAUTH_LOG_LEVEL"`
}

// parseEnv overlays values from set, non-empty environment variables.
func parseEnv(config *Config) error {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setNonZero(&config.HTTPAddr, e.HTTPAddr)
	setNonZero(&config.GRPCAddr, e.GRPCAddr)
	setNonZero(&config.APIPrefix, e.APIPrefix)
	setNonZero(&config.DatabaseDriver, e.DatabaseDriver)
	setNonZero(&config.DatabaseDSN, e.DatabaseDSN)
	setNonZero(&config.AccessTokenSecret, e.AccessTokenSecret)
	setNonZero(&config.RefreshTokenSecret, e.RefreshTokenSecret)
	setNonZero(&config.AccessTokenValidityDuration, e.AccessTokenValidityDuration)
	setNonZero(&config.RefreshTokenValidityDuration, e.RefreshTokenValidityDuration)
	setNonZero(&config.BcryptCost, e.BcryptCost)
	setNonZero(&config.HashConcurrency, e.HashConcurrency)
	setNonZero(&config.LogLevel, e.LogLevel)
	setIf(&config.CookieSecure, e.CookieSecure)

	return nil
}

func setNonZero[T comparable](dst *T, src T) {
	var zero T
	if src != zero {
		*dst = src
	}
}
