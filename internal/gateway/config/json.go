package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

// ConfigEnv names the JSON config file when -c/-config is absent.
const ConfigEnv = "GATEWAY_CONFIG"

// JsonConfig mirrors Config for unmarshalling. Absent fields keep the value
// already in Config.
type JsonConfig struct {
	ListenAddr  *string `json:"listen_addr"`
	IdentityURL *string `json:"identity_url"`
	LogLevel    *string `json:"log_level"`
	Issuer      *string `json:"issuer"`

	RevocationBackend *string         `json:"revocation_backend"`
	RedisAddr         *string         `json:"redis_addr"`
	RedisPassword     *string         `json:"redis_password"`
	RedisDB           *int            `json:"redis_db"`
	RevocationTimeout *timex.Duration `json:"revocation_timeout"`

	KeySource          *string `json:"key_source"`
	PrivateKeyPath     *string `json:"private_key_path"`
	PublicKeyPath      *string `json:"public_key_path"`
	S3RootUser         *string `json:"s3_root_user"`
	S3RootPassword     *string `json:"s3_root_password"`
	S3Bucket           *string `json:"s3_bucket"`
	S3Region           *string `json:"s3_region"`
	S3BaseEndpoint     *string `json:"s3_base_endpoint"`
	S3PrivateKeyObject *string `json:"s3_private_key_object"`
	S3PublicKeyObject  *string `json:"s3_public_key_object"`

	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	ServiceTokenValidityDuration *timex.Duration `json:"service_token_validity_duration"`
	ShutdownTimeout              *timex.Duration `json:"shutdown_timeout"`
}

// parseJSON overlays the file named by -c/-config or GATEWAY_CONFIG.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigPath(args, ConfigEnv)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	flagx.Overlay(&config.ListenAddr, c.ListenAddr)
	flagx.Overlay(&config.IdentityURL, c.IdentityURL)
	flagx.Overlay(&config.LogLevel, c.LogLevel)
	flagx.Overlay(&config.Issuer, c.Issuer)

	flagx.Overlay(&config.RevocationBackend, c.RevocationBackend)
	flagx.Overlay(&config.RedisAddr, c.RedisAddr)
	flagx.Overlay(&config.RedisPassword, c.RedisPassword)
	flagx.Overlay(&config.RedisDB, c.RedisDB)
	timex.Overlay(&config.RevocationTimeout, c.RevocationTimeout)

	flagx.Overlay(&config.KeySource, c.KeySource)
	flagx.Overlay(&config.PrivateKeyPath, c.PrivateKeyPath)
	flagx.Overlay(&config.PublicKeyPath, c.PublicKeyPath)
	flagx.Overlay(&config.S3RootUser, c.S3RootUser)
	flagx.Overlay(&config.S3RootPassword, c.S3RootPassword)
	flagx.Overlay(&config.S3Bucket, c.S3Bucket)
	flagx.Overlay(&config.S3Region, c.S3Region)
	flagx.Overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	flagx.Overlay(&config.S3PrivateKeyObject, c.S3PrivateKeyObject)
	flagx.Overlay(&config.S3PublicKeyObject, c.S3PublicKeyObject)

	timex.Overlay(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	timex.Overlay(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	timex.Overlay(&config.ServiceTokenValidityDuration, c.ServiceTokenValidityDuration)
	timex.Overlay(&config.ShutdownTimeout, c.ShutdownTimeout)
	return nil
}
