package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the hub API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Firestore  FirestoreConfig  `yaml:"firestore"`
	Cache      CacheConfig      `yaml:"cache"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Feeds      FeedsConfig      `yaml:"feeds"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for admin routes.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// FirestoreConfig holds the service-account and REST endpoint settings.
type FirestoreConfig struct {
	ProjectID   string   `yaml:"project_id"`
	AppID       string   `yaml:"app_id"` // artifacts namespace for reviews/cabinet paths
	ClientEmail string   `yaml:"client_email"`
	PrivateKey  string   `yaml:"private_key"` // PKCS8 PEM; usually ${FIREBASE_PRIVATE_KEY}
	TokenURL    string   `yaml:"token_url"`
	Scopes      []string `yaml:"scopes"`
	TimeoutSec  int      `yaml:"timeout_sec"`
}

// CacheConfig holds the optional Redis/Valkey cache settings used by the
// enrichment layer. Leaving addrs empty disables the cache.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLHours int      `yaml:"ttl_hours"`
}

// EnrichmentConfig holds the LLM enrichment provider settings.
type EnrichmentConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// FeedsConfig holds derived-cache sizing and pagination settings.
type FeedsConfig struct {
	RecentCapacity  int `yaml:"recent_capacity"`   // ring buffer slots
	RecentDisplay   int `yaml:"recent_display"`    // entries exposed to the UI
	ArrivalsSize    int `yaml:"arrivals_size"`     // freshness cache slots
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	MaxScanDocs     int `yaml:"max_scan_docs"` // full-scan fallback cap
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Firestore.TokenURL == "" {
		c.Firestore.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if len(c.Firestore.Scopes) == 0 {
		c.Firestore.Scopes = []string{
			"https://www.googleapis.com/auth/datastore",
			"https://www.googleapis.com/auth/cloud-platform",
		}
	}
	if c.Firestore.TimeoutSec <= 0 {
		c.Firestore.TimeoutSec = 30
	}
	if c.Firestore.AppID == "" {
		c.Firestore.AppID = "k-spirits-club-hub"
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 720
	}
	if c.Feeds.RecentCapacity <= 0 {
		c.Feeds.RecentCapacity = 6
	}
	if c.Feeds.RecentDisplay <= 0 || c.Feeds.RecentDisplay > c.Feeds.RecentCapacity {
		c.Feeds.RecentDisplay = c.Feeds.RecentCapacity
	}
	if c.Feeds.ArrivalsSize <= 0 {
		c.Feeds.ArrivalsSize = 10
	}
	if c.Feeds.DefaultPageSize <= 0 {
		c.Feeds.DefaultPageSize = 20
	}
	if c.Feeds.MaxPageSize <= 0 {
		c.Feeds.MaxPageSize = 100
	}
	if c.Feeds.MaxScanDocs <= 0 {
		c.Feeds.MaxScanDocs = 5000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore.project_id is required")
	}
	if c.Firestore.ClientEmail == "" {
		return fmt.Errorf("firestore.client_email is required")
	}
	if c.Firestore.PrivateKey == "" {
		return fmt.Errorf("firestore.private_key is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
