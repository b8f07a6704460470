package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

var allowedFlags = []string{
	"-a", "-i", "-l",
	"-m", "-r", "-w", "-n",
	"-k", "-priv", "-pub",
	"-u", "-p", "-b", "-g", "-e",
	"-t", "-f",
}

// parseFlags overlays command-line flags.
//
//	-a string   listen address (":8080")
//	-i string   identity service base URL
//	-l string   log level
//	-m string   revocation backend: redis | memory
//	-r string   redis address
//	-w string   redis password
//	-n int      redis database
//	-k string   key source: file | s3
//	-priv/-pub  PEM file paths
//	-u/-p       S3 root user and password
//	-b/-g/-e    S3 bucket, region and base endpoint
//	-t int      access token validity, minutes
//	-f int      refresh token validity, minutes
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, allowedFlags)

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to listen on")
	fs.StringVar(&config.IdentityURL, "i", config.IdentityURL, "identity service base URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.RevocationBackend, "m", config.RevocationBackend, "revocation backend (redis|memory)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.RedisPassword, "w", config.RedisPassword, "redis password")
	fs.IntVar(&config.RedisDB, "n", config.RedisDB, "redis database")

	fs.StringVar(&config.KeySource, "k", config.KeySource, "key source (file|s3)")
	fs.StringVar(&config.PrivateKeyPath, "priv", config.PrivateKeyPath, "private key PEM file")
	fs.StringVar(&config.PublicKeyPath, "pub", config.PublicKeyPath, "public key PEM file")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("f", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	return nil
}
