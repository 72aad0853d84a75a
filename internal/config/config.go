package config

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

type Config interface {
	EnvConfig
	SessionConfig
	RemoteConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetStoreDriver() string
	GetLogFile() string
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Session
	Remote
}

// New returns a configuration backed by environment variables and defaults.
func New() Config {
	return newMainConfig(&FileConfig{})
}

// Load reads a TOML file and layers environment variables on top of it.
// An empty path behaves like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	fc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return newMainConfig(fc), nil
}

func newMainConfig(fc *FileConfig) mainConfig {
	return mainConfig{
		EnvVars: EnvVars{file: fc},
		Session: Session{file: fc},
		Remote:  Remote{file: fc},
	}
}

// Validate checks cross-field constraints that individual getters cannot enforce.
func Validate(c Config) error {
	if c.GetRefreshThreshold() >= c.GetSessionTimeout() {
		return fmt.Errorf("%w: refresh threshold %s must be smaller than session timeout %s",
			apperrors.ErrInvalidConfig, c.GetRefreshThreshold(), c.GetSessionTimeout())
	}
	switch c.GetStoreDriver() {
	case StoreDriverFile, StoreDriverSQLite:
	default:
		return fmt.Errorf("%w: unknown store driver %q", apperrors.ErrInvalidConfig, c.GetStoreDriver())
	}
	if c.GetBaseURL() == "" {
		return fmt.Errorf("%w: base URL is required", apperrors.ErrInvalidConfig)
	}
	return nil
}
