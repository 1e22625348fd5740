package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeoIPBaseURL        string
	GeoIPTimeoutSeconds int

	GovernanceBundlePath string
	GovernanceBundleID   string

	ConcurrentLimit         int
	ConcurrentWindowSeconds int

	LoginAttemptLimit         int
	LoginAttemptWindowSeconds int

	AlertFromEmail string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                  addr,
		PostgresDSN:               os.Getenv("POSTGRES_DSN"),
		LogLevel:                  envDefault("LOG_LEVEL", "info"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   envIntDefault("REDIS_DB", 0),
		GeoIPBaseURL:              envDefault("GEOIP_BASE_URL", "http://ip-api.com/json"),
		GeoIPTimeoutSeconds:       envIntDefault("GEOIP_TIMEOUT_SECONDS", 5),
		GovernanceBundlePath:      os.Getenv("GOVERNANCE_BUNDLE_PATH"),
		GovernanceBundleID:        envDefault("GOVERNANCE_BUNDLE_ID", "governance_v1"),
		ConcurrentLimit:           envIntDefault("CONCURRENT_LIMIT", 50),
		ConcurrentWindowSeconds:   envIntDefault("CONCURRENT_WINDOW_SECONDS", 5),
		LoginAttemptLimit:         envIntDefault("LOGIN_ATTEMPT_LIMIT", 10),
		LoginAttemptWindowSeconds: envIntDefault("LOGIN_ATTEMPT_WINDOW_SECONDS", 60),
		AlertFromEmail:            envDefault("ALERT_FROM_EMAIL", "security@localhost"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (c Config) GeoIPTimeout() time.Duration {
	if c.GeoIPTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.GeoIPTimeoutSeconds) * time.Second
}

func (c Config) ConcurrentWindow() time.Duration {
	if c.ConcurrentWindowSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ConcurrentWindowSeconds) * time.Second
}

func (c Config) LoginAttemptWindow() time.Duration {
	if c.LoginAttemptWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.LoginAttemptWindowSeconds) * time.Second
}
