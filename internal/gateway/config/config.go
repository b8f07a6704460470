// Package config handles configuration for the gateway, including defaults,
// JSON overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/keys"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/revocation"
)

const (
	BackendRedis  = revocation.BackendRedis
	BackendMemory = revocation.BackendMemory

	KeySourceFile = keys.SourceFile
	KeySourceS3   = keys.SourceS3
)

// Config holds runtime settings for the gateway.
//
// Token lifetimes map onto the issuer; RevocationTimeout bounds every call
// to the revocation store.
type Config struct {
	ListenAddr  string
	IdentityURL string
	LogLevel    string
	Issuer      string

	RevocationBackend string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RevocationTimeout time.Duration

	KeySource          string
	PrivateKeyPath     string
	PublicKeyPath      string
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	S3PrivateKeyObject string
	S3PublicKeyObject  string

	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	ServiceTokenValidityDuration time.Duration

	ShutdownTimeout time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.IdentityURL = "http://127.0.0.1:8081"
	c.LogLevel = "info"
	c.Issuer = "gatekeeper"

	c.RevocationBackend = BackendRedis
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisDB = 0
	c.RevocationTimeout = 2 * time.Second

	c.KeySource = KeySourceFile
	c.PrivateKeyPath = "keys/private.pem"
	c.PublicKeyPath = "keys/public.pem"
	c.S3Bucket = "keys"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3PrivateKeyObject = "gateway/private.pem"
	c.S3PublicKeyObject = "gateway/public.pem"

	c.AccessTokenValidityDuration = 60 * time.Minute
	c.RefreshTokenValidityDuration = 24 * time.Hour
	c.ServiceTokenValidityDuration = time.Minute

	c.ShutdownTimeout = 10 * time.Second
}

// Validate rejects settings the gateway cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if u, err := url.Parse(c.IdentityURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("identity url %q is not absolute", c.IdentityURL))
	}
	switch c.RevocationBackend {
	case BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown revocation backend %q", c.RevocationBackend))
	}
	switch c.KeySource {
	case KeySourceFile, KeySourceS3:
	default:
		errs = append(errs, fmt.Errorf("unknown key source %q", c.KeySource))
	}
	if c.AccessTokenValidityDuration <= 0 || c.RefreshTokenValidityDuration <= 0 || c.ServiceTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Keys describes where the signing key pair lives.
func (c *Config) Keys() keys.Source {
	return keys.Source{
		Kind:           c.KeySource,
		PrivateKeyPath: c.PrivateKeyPath,
		PublicKeyPath:  c.PublicKeyPath,
		S3: keys.S3Source{
			Bucket:           c.S3Bucket,
			Region:           c.S3Region,
			BaseEndpoint:     c.S3BaseEndpoint,
			AccessKeyID:      c.S3RootUser,
			SecretAccessKey:  c.S3RootPassword,
			PrivateKeyObject: c.S3PrivateKeyObject,
			PublicKeyObject:  c.S3PublicKeyObject,
		},
	}
}

func (c *Config) Revocation() revocation.Options {
	return revocation.Options{
		Backend:  c.RevocationBackend,
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
