package config

import "time"

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutDuration  = 15 * time.Minute
	DefaultSessionTimeout   = 60 * time.Minute
	DefaultRefreshThreshold = 5 * time.Minute

	maxLoginAttemptsVar = "AUTH_MAX_LOGIN_ATTEMPTS"
	lockoutDurationVar  = "AUTH_LOCKOUT_DURATION_MILLIS"
	sessionTimeoutVar   = "AUTH_SESSION_TIMEOUT_MILLIS"
	refreshThresholdVar = "AUTH_REFRESH_THRESHOLD_MILLIS"
	activityCoalesceVar = "AUTH_ACTIVITY_COALESCE_MILLIS"
	strictRestoreVar    = "AUTH_STRICT_RESTORE"
)

type SessionConfig interface {
	GetMaxLoginAttempts() int
	GetLockoutDuration() time.Duration
	GetSessionTimeout() time.Duration
	GetRefreshThreshold() time.Duration
	GetActivityCoalesceWindow() time.Duration
	GetStrictRestore() bool
}

type Session struct {
	file *FileConfig
}

var _ SessionConfig = Session{}

func (s Session) GetMaxLoginAttempts() int {
	n := GetEnvInt(maxLoginAttemptsVar, int64(s.file.MaxLoginAttempts))
	if n <= 0 {
		return DefaultMaxLoginAttempts
	}
	return int(n)
}

func (s Session) GetLockoutDuration() time.Duration {
	return millis(GetEnvInt(lockoutDurationVar, s.file.LockoutDurationMillis), DefaultLockoutDuration)
}

func (s Session) GetSessionTimeout() time.Duration {
	return millis(GetEnvInt(sessionTimeoutVar, s.file.SessionTimeoutMillis), DefaultSessionTimeout)
}

func (s Session) GetRefreshThreshold() time.Duration {
	return millis(GetEnvInt(refreshThresholdVar, s.file.RefreshThresholdMillis), DefaultRefreshThreshold)
}

// GetActivityCoalesceWindow is zero unless configured: every activity event re-arms the timers.
func (s Session) GetActivityCoalesceWindow() time.Duration {
	return millis(GetEnvInt(activityCoalesceVar, s.file.ActivityCoalesceMillis), 0)
}

func (s Session) GetStrictRestore() bool {
	return GetEnvBool(strictRestoreVar, s.file.StrictRestore)
}
