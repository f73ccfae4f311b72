package core

import (
	"crypto/subtle"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the entire threatlens configuration.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Server    ServerConfig    `yaml:"server"`
	Bus       BusConfig       `yaml:"bus"`
	Reporting ReportingConfig `yaml:"reporting"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AnalysisConfig holds the pipeline policy knobs. The threat event set
// and the accuracy goal are configuration, not code: changing policy
// must never require a rebuild.
type AnalysisConfig struct {
	ThreatEventTypes []string `yaml:"threat_event_types"`
	AccuracyGoal     float64  `yaml:"accuracy_goal"`
	TestFraction     float64  `yaml:"test_fraction"`
	Trees            int      `yaml:"trees"`
	MaxDepth         int      `yaml:"max_depth"`
	MinSamplesSplit  int      `yaml:"min_samples_split"`
	Workers          int      `yaml:"workers"` // 0 = GOMAXPROCS
	Seed             int64    `yaml:"seed"`
}

// ServerConfig holds upload API server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	APIKeys        []string `yaml:"api_keys"`
	CORSOrigins    []string `yaml:"cors_origins"`
	UploadDir      string   `yaml:"upload_dir"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

// BusConfig holds NATS report stream settings.
type BusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
	DataDir  string `yaml:"data_dir"`
	Port     int    `yaml:"port"`
}

// ReportingConfig holds webhook fan-out settings.
type ReportingConfig struct {
	WebhookURLs    []string      `yaml:"webhook_urls"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	QueueSize      int           `yaml:"queue_size"`
	Workers        int           `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sane defaults — zero-config works out of the box.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			ThreatEventTypes: []string{"failed_login", "phishing_click"},
			AccuracyGoal:     0.95,
			TestFraction:     0.2,
			Trees:            100,
			MaxDepth:         12,
			MinSamplesSplit:  2,
			Seed:             42,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           1790,
			UploadDir:      "./data/uploads",
			MaxUploadBytes: 32 << 20,
		},
		Bus: BusConfig{
			Enabled:  false,
			URL:      "nats://127.0.0.1:4222",
			Embedded: true,
			DataDir:  "./data/nats",
			Port:     4222,
		},
		Reporting: ReportingConfig{
			MaxRetries:     5,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
			QueueSize:      100,
			Workers:        2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Load API keys from environment if not set in config
	if len(cfg.Server.APIKeys) == 0 {
		if envKey := os.Getenv("THREATLENS_API_KEY"); envKey != "" {
			cfg.Server.APIKeys = []string{envKey}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	if len(c.Analysis.ThreatEventTypes) == 0 {
		return fmt.Errorf("analysis.threat_event_types must not be empty")
	}
	if c.Analysis.AccuracyGoal <= 0 || c.Analysis.AccuracyGoal > 1 {
		return fmt.Errorf("analysis.accuracy_goal must be in (0, 1], got %v", c.Analysis.AccuracyGoal)
	}
	if c.Analysis.TestFraction <= 0 || c.Analysis.TestFraction >= 1 {
		return fmt.Errorf("analysis.test_fraction must be in (0, 1), got %v", c.Analysis.TestFraction)
	}
	if c.Analysis.Trees < 1 {
		return fmt.Errorf("analysis.trees must be at least 1, got %d", c.Analysis.Trees)
	}
	return nil
}

// AuthEnabled reports whether API key authentication is configured.
func (c *Config) AuthEnabled() bool {
	return len(c.Server.APIKeys) > 0
}

// ValidateAPIKey checks a presented key against configured keys in constant time.
func (c *Config) ValidateAPIKey(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range c.Server.APIKeys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// Marshal renders the config back to YAML (used by `threatlens config --show`).
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
