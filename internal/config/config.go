package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

const (
	defaultListenAddr          = ":8080"
	defaultDatabaseURL         = "netpanel.db"
	defaultAccessTTL           = "8h"
	defaultRefreshTTL          = "720h"
	defaultKeyLifetime         = "720h"
	defaultRotationInterval    = "1m"
	defaultSweepInterval       = "24h"
	defaultSweepGrace          = "24h"
	defaultRequestTimeout      = "5s"
	defaultJWTIssuer           = "NetpanelAPI"
	defaultJWTAudience         = "NetpanelClients"
	defaultKeyDirectory        = "./keys"
	defaultKeyProtectionSecret = "change-me-key-protection-secret"
	defaultCookieName          = "refresh_token"
	defaultCookiePath          = "/"
	defaultCookieSecure        = "false"
	defaultLogoutAllDevices    = "true"
	defaultRevokeAllOnReuse    = "false"
)

type Config struct {
	AppEnv      string
	ListenAddr  string
	DatabaseURL string

	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	KeyDirectory        string
	KeyProtectionSecret string
	KeyRotationLifetime time.Duration
	RotationInterval    time.Duration

	SweepInterval    time.Duration
	SweepGracePeriod time.Duration

	RequestTimeout time.Duration

	CookieName   string
	CookiePath   string
	CookieSecure bool

	LogoutAllDevices bool
	RevokeAllOnReuse bool
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.ListenAddr = strings.TrimSpace(getEnv("LISTEN_ADDR", defaultListenAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTIssuer = strings.TrimSpace(getEnv("JWT_ISSUER", defaultJWTIssuer))
	cfg.JWTAudience = strings.TrimSpace(getEnv("JWT_AUDIENCE", defaultJWTAudience))
	cfg.KeyDirectory = strings.TrimSpace(getEnv("KEY_DIRECTORY", defaultKeyDirectory))
	cfg.KeyProtectionSecret = strings.TrimSpace(getEnv("KEY_PROTECTION_SECRET", defaultKeyProtectionSecret))
	cfg.CookieName = strings.TrimSpace(getEnv("REFRESH_COOKIE_NAME", defaultCookieName))
	cfg.CookiePath = strings.TrimSpace(getEnv("REFRESH_COOKIE_PATH", defaultCookiePath))
	cfg.CookieSecure = parseBoolEnv("REFRESH_COOKIE_SECURE", defaultCookieSecure)
	cfg.LogoutAllDevices = parseBoolEnv("LOGOUT_ALL_DEVICES", defaultLogoutAllDevices)
	cfg.RevokeAllOnReuse = parseBoolEnv("REVOKE_ALL_ON_REUSE", defaultRevokeAllOnReuse)

	var err error
	if cfg.AccessTokenTTL, err = parseDurationEnv("ACCESS_TOKEN_TTL", defaultAccessTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = parseDurationEnv("REFRESH_TOKEN_TTL", defaultRefreshTTL); err != nil {
		return nil, err
	}
	if cfg.KeyRotationLifetime, err = parseDurationEnv("KEY_ROTATION_LIFETIME", defaultKeyLifetime); err != nil {
		return nil, err
	}
	if cfg.RotationInterval, err = parseDurationEnv("KEY_ROTATION_CHECK_INTERVAL", defaultRotationInterval); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("TOKEN_SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.SweepGracePeriod, err = parseDurationEnv("TOKEN_SWEEP_GRACE", defaultSweepGrace); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseDurationEnv("REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("auth config: access_ttl=%s refresh_ttl=%s key_lifetime=%s cookie_secure=%t",
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.KeyRotationLifetime, cfg.CookieSecure)

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be > 0")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be > 0")
	}
	if cfg.KeyRotationLifetime <= 0 {
		return fmt.Errorf("KEY_ROTATION_LIFETIME must be > 0")
	}
	if cfg.RotationInterval <= 0 {
		return fmt.Errorf("KEY_ROTATION_CHECK_INTERVAL must be > 0")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0")
	}
	if cfg.KeyDirectory == "" {
		return fmt.Errorf("KEY_DIRECTORY must not be empty")
	}
	if cfg.CookiePath == "" {
		return fmt.Errorf("REFRESH_COOKIE_PATH must not be empty")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.KeyProtectionSecret, defaultKeyProtectionSecret) {
			return fmt.Errorf("in prod/release KEY_PROTECTION_SECRET must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release REFRESH_COOKIE_SECURE must be true")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
