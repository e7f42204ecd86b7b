package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Email     EmailConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	SentryDSN string
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret        string
	TokenTTL         time.Duration
	Issuer           string
	Audience         string
	MaxLoginAttempts int
	AttemptWindow    time.Duration
	AttemptCacheSize int
	TimingBaseDelay  time.Duration
	TimingJitter     time.Duration
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
	SendTimeout time.Duration
}

// Enabled reports whether outbound email is configured
func (c EmailConfig) Enabled() bool {
	return c.FromAddress != ""
}

type StorageConfig struct {
	ImageDir             string
	PublicBaseURL        string
	DefaultImageBaseURL  string
	DefaultImageTimeout  time.Duration
	MaxProfileImageBytes int64
}

type RateLimitConfig struct {
	LoginPerMinute    int
	RegisterPerMinute int
	ResetPerMinute    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	port := getEnv("PORT", "8080")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "portal"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           port,
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:        jwtSecret,
			TokenTTL:         getEnvAsDuration("TOKEN_TTL", 5*24*time.Hour),
			Issuer:           getEnv("TOKEN_ISSUER", "user-portal"),
			Audience:         getEnv("TOKEN_AUDIENCE", "User Management Portal"),
			MaxLoginAttempts: getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			AttemptWindow:    getEnvAsDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute),
			AttemptCacheSize: getEnvAsInt("LOGIN_ATTEMPT_CACHE_SIZE", 100),
			TimingBaseDelay:  getEnvAsDuration("AUTH_TIMING_BASE_DELAY", 100*time.Millisecond),
			TimingJitter:     getEnvAsDuration("AUTH_TIMING_JITTER", 50*time.Millisecond),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
			SendTimeout: getEnvAsDuration("EMAIL_SEND_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			ImageDir:             getEnv("PROFILE_IMAGE_DIR", "./data/user"),
			PublicBaseURL:        strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
			DefaultImageBaseURL:  getEnv("DEFAULT_IMAGE_BASE_URL", "https://robohash.org/"),
			DefaultImageTimeout:  getEnvAsDuration("DEFAULT_IMAGE_TIMEOUT", 5*time.Second),
			MaxProfileImageBytes: int64(getEnvAsInt("MAX_PROFILE_IMAGE_BYTES", 5<<20)),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute:    getEnvAsInt("RATE_LIMIT_LOGIN_PER_MINUTE", 10),
			RegisterPerMinute: getEnvAsInt("RATE_LIMIT_REGISTER_PER_MINUTE", 5),
			ResetPerMinute:    getEnvAsInt("RATE_LIMIT_RESET_PER_MINUTE", 3),
		},
		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive")
	}
	if cfg.Auth.MaxLoginAttempts <= 0 {
		return nil, fmt.Errorf("MAX_LOGIN_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := getEnv(key, "")
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsList("ALLOWED_ORIGINS")
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:4200", // Angular dev server
		"http://localhost:5173",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:4200",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	}
}
