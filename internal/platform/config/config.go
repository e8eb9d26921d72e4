package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds client configuration.
// Environment variables are parsed from the NEXUSFLOW_ prefix, e.g. NEXUSFLOW_API_KEY.
type Config struct {
	// APIKey is the generative model credential. Empty selects offline fallbacks.
	APIKey       string        `envconfig:"API_KEY"`
	Model        string        `envconfig:"MODEL" default:"gemini-3-flash-preview"`
	LiveModel    string        `envconfig:"LIVE_MODEL" default:"gemini-2.5-flash-native-audio-preview-09-2025"`
	ModelBaseURL string        `envconfig:"MODEL_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	LiveURL      string        `envconfig:"LIVE_URL" default:"wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"`
	Timeout      time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"20s"`

	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"badger"`
	DataDir        string `envconfig:"DATA_DIR"`
	SQLitePath     string `envconfig:"SQLITE_PATH"`
	PostgresDSN    string `envconfig:"POSTGRES_DSN"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPrefix    string `envconfig:"REDIS_PREFIX" default:""`

	Debounce time.Duration `envconfig:"DEBOUNCE" default:"400ms"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// LogFile receives logs while the terminal UI owns the screen.
	LogFile string `envconfig:"LOG_FILE"`
}

// HasCredential reports whether a model credential is configured.
func (c *Config) HasCredential() bool { return c.APIKey != "" }

// ResolveDefaults validates the storage backend and derives paths under DataDir.
func (c *Config) ResolveDefaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".nexusflow")
	}
	switch c.StorageBackend {
	case BackendMemory, BackendBadger, BackendRedis:
	case BackendSQLite:
		if c.SQLitePath == "" {
			c.SQLitePath = filepath.Join(c.DataDir, "nexusflow.db")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("STORAGE_BACKEND=postgres requires NEXUSFLOW_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %s", c.StorageBackend)
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, "nexusflow.log")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("NEXUSFLOW_DEBOUNCE must be positive (e.g. 400ms)")
	}
	return nil
}

// BadgerDir is where the badger backend keeps its files.
func (c *Config) BadgerDir() string { return filepath.Join(c.DataDir, "badger") }

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("NEXUSFLOW", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewForTesting returns an offline, in-memory configuration.
func NewForTesting() *Config {
	return &Config{
		Model:          "gemini-3-flash-preview",
		LiveModel:      "gemini-2.5-flash-native-audio-preview-09-2025",
		ModelBaseURL:   "http://127.0.0.1:0",
		Timeout:        2 * time.Second,
		StorageBackend: BackendMemory,
		DataDir:        os.TempDir(),
		Debounce:       400 * time.Millisecond,
		LogLevel:       "debug",
	}
}
