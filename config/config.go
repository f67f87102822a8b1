package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	Notifications NotificationsConfig
	Unsubscribe   UnsubscribeConfig
	Firebase      FirebaseConfig
	RateLimit     RateLimitConfig
	Internal      InternalConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// NotificationsConfig controls the feed and the preference engines.
type NotificationsConfig struct {
	ExpiryDays      int  // fired notifications older than this are hidden from list/count
	ShowTray        bool // global switch for show_notifications_tray
	DefaultPageSize int
	MaxPageSize     int
	// MaxOptimisticRetries bounds re-applying a patch to a record whose revision moved underneath us.
	MaxOptimisticRetries int
}

// UnsubscribeConfig signs one-click email unsubscribe links.
type UnsubscribeConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// InternalConfig protects the internal endpoints used by the enrollment and firing subsystems.
type InternalConfig struct {
	APIKey string
}

// Load returns the configuration with defaults, overridden by the environment.
// A .env file in the working directory is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8099"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "notify:notify@tcp(localhost:3306)/coursenotify?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			AccessExpiry: getEnvDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			Issuer:       getEnv("JWT_ISSUER", "coursenotify"),
		},
		Notifications: NotificationsConfig{
			ExpiryDays:           getEnvInt("NOTIFICATIONS_EXPIRY_DAYS", 60),
			ShowTray:             getEnvBool("NOTIFICATIONS_SHOW_TRAY", true),
			DefaultPageSize:      getEnvInt("NOTIFICATIONS_PAGE_SIZE", 20),
			MaxPageSize:          100,
			MaxOptimisticRetries: getEnvInt("PREFERENCES_MAX_RETRIES", 3),
		},
		Unsubscribe: UnsubscribeConfig{
			Secret:   getEnv("UNSUBSCRIBE_SECRET", "change-me-unsubscribe"),
			TokenTTL: getEnvDuration("UNSUBSCRIBE_TOKEN_TTL", 90*24*time.Hour),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		},
		Internal: InternalConfig{
			APIKey: getEnv("INTERNAL_API_KEY", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] %s=%q is not a boolean, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}
