package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// FileConfig mirrors the optional TOML configuration file. Zero values mean
// "not set" and leave the built-in default in place.
type FileConfig struct {
	MaxLoginAttempts       int    `toml:"max_login_attempts"`
	LockoutDurationMillis  int64  `toml:"lockout_duration_millis"`
	SessionTimeoutMillis   int64  `toml:"session_timeout_millis"`
	RefreshThresholdMillis int64  `toml:"refresh_threshold_millis"`
	ActivityCoalesceMillis int64  `toml:"activity_coalesce_millis"`
	StrictRestore          bool   `toml:"strict_restore"`
	BaseURL                string `toml:"base_url"`
	HTTPTimeoutMillis      int64  `toml:"http_timeout_millis"`
	OIDCIssuer             string `toml:"oidc_issuer"`
	OIDCClientID           string `toml:"oidc_client_id"`
	DataFolder             string `toml:"data_folder"`
	StoreDriver            string `toml:"store_driver"`
	LogFile                string `toml:"log_file"`
	LogLevel               string `toml:"log_level"`
}

// LoadFile decodes a TOML configuration file. Unknown keys are rejected so
// that typos do not silently fall back to defaults.
func LoadFile(path string) (*FileConfig, error) {
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("[config LoadFile] %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("[config LoadFile] %s: unknown keys %v", path, undecoded)
	}
	return &fc, nil
}

// DecodeString decodes TOML configuration held in memory.
func DecodeString(data string) (*FileConfig, error) {
	var fc FileConfig
	if _, err := toml.Decode(data, &fc); err != nil {
		return nil, fmt.Errorf("[config DecodeString] %w", err)
	}
	return &fc, nil
}

// FromFile builds a Config from an already decoded file.
func FromFile(fc *FileConfig) Config {
	if fc == nil {
		fc = &FileConfig{}
	}
	return newMainConfig(fc)
}
