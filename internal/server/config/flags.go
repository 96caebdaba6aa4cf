package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-p", "-D", "-d", "-s", "-S", "-t", "-r", "-b", "-w", "-secure", "-l"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-g string     gRPC health bind address (e.g. ":50051")
//	-p string     API path prefix
//	-D string     database driver: pgx | sqlite
//	-d string     database DSN
//	-s string     access token HMAC secret
//	-S string     refresh token HMAC secret
//	-t duration   access token validity (e.g. 30s)
//	-r duration   refresh token validity (e.g. 35s)
//	-b int        bcrypt cost
//	-w int        concurrent bcrypt computations
//	-secure       mark credential cookies Secure
//	-l string     log level
//
// Arguments are filtered through flagx.FilterArgs first so the -c/-config
// flag handled by the JSON loader does not cause a parse error here.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.APIPrefix, "p", config.APIPrefix, "API path prefix")
	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "S", config.RefreshTokenSecret, "refresh token secret")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.IntVar(&config.HashConcurrency, "w", config.HashConcurrency, "concurrent bcrypt computations")
	fs.BoolVar(&config.CookieSecure, "secure", config.CookieSecure, "set Secure on credential cookies")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	return nil
}
