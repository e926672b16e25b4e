package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "HotspotPay"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultGatewayMethod    = "wave"
	defaultGatewayTimeout   = 10 * time.Second
	defaultCatalogRefresh   = time.Minute
	defaultRetryDelay       = 3 * time.Second
	defaultMaxAttempts      = 200
	defaultMaxConfirmPeriod = 15 * time.Minute
	defaultSupportContact   = "0706836722"
	defaultSessionIdleTTL   = 30 * time.Minute
	defaultPayRateLimit     = 10
	defaultLoginRateLimit   = 5
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	GatewayBaseURL string
	GatewayMethod  string
	GatewayTimeout time.Duration

	CatalogURL     string
	CatalogRefresh time.Duration

	ConfirmRetryDelay  time.Duration
	ConfirmMaxAttempts int
	ConfirmMaxDuration time.Duration
	SupportContact     string

	SessionIdleTTL time.Duration
	PayRateLimit   int

	TelegramBotToken string
	TelegramChatID   int64

	OperatorUsername     string
	OperatorPasswordHash string
	JWTSecret            string
	AccessTokenTTL       time.Duration
	LoginRateLimit       int

	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		GatewayBaseURL: strings.TrimSuffix(os.Getenv("GATEWAY_BASE_URL"), "/"),
		GatewayMethod:  strings.ToLower(getEnv("GATEWAY_METHOD", defaultGatewayMethod)),
		CatalogURL:     os.Getenv("CATALOG_URL"),
		SupportContact: getEnv("SUPPORT_CONTACT", defaultSupportContact),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		OperatorUsername:     os.Getenv("OPERATOR_USERNAME"),
		OperatorPasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
		JWTSecret:            os.Getenv("JWT_SECRET"),

		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}

	var err error
	if cfg.GatewayTimeout, err = getDuration("GATEWAY_TIMEOUT", defaultGatewayTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CatalogRefresh, err = getDuration("CATALOG_REFRESH", defaultCatalogRefresh); err != nil {
		return Config{}, err
	}
	if cfg.ConfirmRetryDelay, err = getDuration("CONFIRM_RETRY_DELAY", defaultRetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.ConfirmMaxDuration, err = getDuration("CONFIRM_MAX_DURATION", defaultMaxConfirmPeriod); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", defaultSessionIdleTTL); err != nil {
		return Config{}, err
	}
	if cfg.ConfirmMaxAttempts, err = getInt("CONFIRM_MAX_ATTEMPTS", defaultMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.PayRateLimit, err = getInt("PAY_RATE_LIMIT", defaultPayRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateLimit, err = getInt("LOGIN_RATE_LIMIT", defaultLoginRateLimit); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == 0 {
		return Config{}, fmt.Errorf("TELEGRAM_CHAT_ID must be set with TELEGRAM_BOT_TOKEN")
	}

	if cfg.OperatorUsername != "" && (cfg.OperatorPasswordHash == "" || cfg.JWTSecret == "") {
		return Config{}, fmt.Errorf("OPERATOR_PASSWORD_HASH and JWT_SECRET must be set with OPERATOR_USERNAME")
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	if cfg.ConfirmRetryDelay <= 0 {
		return Config{}, fmt.Errorf("CONFIRM_RETRY_DELAY must be positive")
	}
	if cfg.ConfirmMaxAttempts < 0 {
		return Config{}, fmt.Errorf("CONFIRM_MAX_ATTEMPTS must not be negative")
	}

	if !cfg.IsDev() {
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.GatewayBaseURL == "" {
			return Config{}, fmt.Errorf("GATEWAY_BASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.CatalogURL == "" && cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("CATALOG_URL or DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// OperatorEnabled reports whether an operator account is configured.
func (c Config) OperatorEnabled() bool {
	return c.OperatorUsername != ""
}

// IsDev reports whether the service runs with development fallbacks
// (in-memory stores, sandbox gateway).
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
