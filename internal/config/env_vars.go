package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar     = "APP_NAME"
	folderEnvVar   = "FOLDER"
	storeDriverVar = "STORE_DRIVER"
	logFileVar     = "LOG_FILE"
	logLevelVar    = "LOG_LEVEL"

	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
)

type EnvVars struct {
	file *FileConfig
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Session")
}

func (e EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, orString(e.file.DataFolder, "./data"))
}

func (e EnvVars) GetStoreDriver() string {
	return strings.ToLower(GetEnv(storeDriverVar, orString(e.file.StoreDriver, StoreDriverFile)))
}

func (e EnvVars) GetLogFile() string {
	return GetEnv(logFileVar, e.file.LogFile)
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, orString(e.file.LogLevel, "info"))
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt returns the integer value of envVar, or defaultValue when unset or malformed.
func GetEnvInt(envVar string, defaultValue int64) int64 {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvBool returns the boolean value of envVar, or defaultValue when unset or malformed.
func GetEnvBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// millis converts a millisecond setting, falling back when it is not positive.
func millis(v int64, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Millisecond
}

func orString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
