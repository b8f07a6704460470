package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

var allowedFlags = []string{
	"-a", "-d", "-l", "-migrate",
	"-m", "-r", "-w", "-n",
	"-k", "-pub",
	"-u", "-p", "-b", "-g", "-e",
}

// parseFlags overlays command-line flags. Pass -migrate=false to skip schema
// migrations at startup.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, allowedFlags)

	fs := flag.NewFlagSet("identity", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to listen on")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.RunMigrations, "migrate", config.RunMigrations, "apply schema migrations on startup")

	fs.StringVar(&config.RevocationBackend, "m", config.RevocationBackend, "revocation backend (redis|memory)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.RedisPassword, "w", config.RedisPassword, "redis password")
	fs.IntVar(&config.RedisDB, "n", config.RedisDB, "redis database")

	fs.StringVar(&config.KeySource, "k", config.KeySource, "key source (file|s3)")
	fs.StringVar(&config.PublicKeyPath, "pub", config.PublicKeyPath, "public key PEM file")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	return fs.Parse(args)
}
