package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Remote    RemoteConfig
	KurrentDB KurrentDBConfig
	HIS       HISConfig
	Auth      AuthConfig
	AI        AIConfig
	Narration NarrationConfig
	Privacy   PrivacyConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

// StoreConfig holds configuration for the local entity store substrate.
type StoreConfig struct {
	// Backend: "file" (one JSON file per collection) or "redis"
	Backend string
	// DataDir is the directory holding collection files for the file backend
	DataDir string
	// RedisAddr for the redis backend
	RedisAddr string
	// RedisDB index
	RedisDB int
	// SeedOnInit writes canned demo data into absent collections
	SeedOnInit bool
}

// RemoteConfig holds connection settings for the hosted backend mirror.
type RemoteConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// PollInterval in seconds for the realtime change feed
	PollIntervalSec int
}

// DSN builds the postgres connection string for the remote mirror.
func (r RemoteConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		r.User, r.Password, r.Host, r.Port, r.Database, r.SSLMode)
}

// KurrentDBConfig holds configuration for the durable audit event mirror.
type KurrentDBConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

// HISConfig holds settings for the hospital imaging system importer.
type HISConfig struct {
	Enabled bool
	// DSN is the SQL Server connection string
	DSN string
	// PollIntervalSec between scans of the imaging tables
	PollIntervalSec int
	// ScanTable is the source table for completed retinal scans
	ScanTable string
}

type AuthConfig struct {
	// JWTSecret signs portal session tokens
	JWTSecret string
	// SessionTTLMinutes bounds access token lifetime
	SessionTTLMinutes int
}

type AIConfig struct {
	URL     string
	Enabled bool
	// Persona is prepended server-side to every prompt
	Persona string
}

// NarrationConfig holds speech defaults applied to every utterance unless
// overridden per call.
type NarrationConfig struct {
	Rate   float64
	Pitch  float64
	Volume float64
	// PreferredVoices is the ordered voice preference list
	PreferredVoices []string
	// Language for exact-match fallback, e.g. "en-US"
	Language string
}

// PrivacyConfig holds settings for the PHI response guard.
type PrivacyConfig struct {
	EnableGuard      bool
	BlockOnViolation bool
	ExemptPaths      []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Store: StoreConfig{
			Backend:    getEnv("STORE_BACKEND", "file"),
			DataDir:    getEnv("STORE_DATA_DIR", "./data"),
			RedisAddr:  getEnv("STORE_REDIS_ADDR", "localhost:6379"),
			RedisDB:    getEnvInt("STORE_REDIS_DB", 0),
			SeedOnInit: getEnvBool("STORE_SEED", true),
		},
		Remote: RemoteConfig{
			Enabled:         getEnvBool("REMOTE_ENABLED", false),
			Host:            getEnv("REMOTE_DB_HOST", "localhost"),
			Port:            getEnvInt("REMOTE_DB_PORT", 5432),
			User:            getEnv("REMOTE_DB_USER", "portal"),
			Password:        getEnv("REMOTE_DB_PASSWORD", "portal"),
			Database:        getEnv("REMOTE_DB_NAME", "portal"),
			SSLMode:         getEnv("REMOTE_DB_SSLMODE", "disable"),
			PollIntervalSec: getEnvInt("REMOTE_POLL_INTERVAL", 2),
		},
		KurrentDB: KurrentDBConfig{
			Enabled:  getEnvBool("KURRENTDB_ENABLED", false),
			Host:     getEnv("KURRENTDB_HOST", "localhost"),
			Port:     getEnvInt("KURRENTDB_PORT", 2113),
			Insecure: getEnvBool("KURRENTDB_INSECURE", true),
			Username: getEnv("KURRENTDB_USERNAME", ""),
			Password: getEnv("KURRENTDB_PASSWORD", ""),
		},
		HIS: HISConfig{
			Enabled:         getEnvBool("HIS_ENABLED", false),
			DSN:             getEnv("HIS_DSN", ""),
			PollIntervalSec: getEnvInt("HIS_POLL_INTERVAL", 30),
			ScanTable:       getEnv("HIS_SCAN_TABLE", "dbo.RetinalScans"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			SessionTTLMinutes: getEnvInt("SESSION_TTL_MINUTES", 480),
		},
		AI: AIConfig{
			URL:     getEnv("AI_SERVICE_URL", "http://localhost:5000"),
			Enabled: getEnvBool("AI_ENABLED", true),
			Persona: getEnv("AI_PERSONA", defaultPersona),
		},
		Narration: NarrationConfig{
			Rate:            getEnvFloat("NARRATION_RATE", 0.9),
			Pitch:           getEnvFloat("NARRATION_PITCH", 1.0),
			Volume:          getEnvFloat("NARRATION_VOLUME", 0.8),
			PreferredVoices: getEnvSlice("NARRATION_VOICES", []string{"Samantha", "Karen", "Daniel"}),
			Language:        getEnv("NARRATION_LANGUAGE", "en-US"),
		},
		Privacy: PrivacyConfig{
			EnableGuard:      getEnvBool("PRIVACY_GUARD_ENABLED", true),
			BlockOnViolation: getEnvBool("PRIVACY_BLOCK_VIOLATIONS", false),
			ExemptPaths:      getEnvSlice("PRIVACY_EXEMPT_PATHS", []string{"/health", "/ready", "/metrics"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

const defaultPersona = "You are a retinal health assistant. You summarize AI analysis " +
	"results in plain language. You are not a doctor and always recommend consulting " +
	"a qualified ophthalmologist."

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
