package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the devintel daemon configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Project ProjectConfig `yaml:"project"`
	Index   IndexConfig   `yaml:"index"`
	Predict PredictConfig `yaml:"predict"`
	Tuner   TunerConfig   `yaml:"tuner"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds keyed-store backend settings.
type StoreConfig struct {
	Driver           string   `yaml:"driver"` // embedded, redis (default: embedded)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ProjectConfig holds project-registry defaults.
type ProjectConfig struct {
	DefaultRoot   string `yaml:"default_root"`
	EnableOnStart bool   `yaml:"enable_on_start"`
	RegistryPath  string `yaml:"registry_path"`
}

// IndexConfig holds Symbol Index build/scan settings.
type IndexConfig struct {
	SkipDirs       []string `yaml:"skip_dirs"`
	WorkingSetSize int      `yaml:"working_set_size"`
	RegexScanCap   int      `yaml:"regex_scan_cap"`
	QueryTimeoutMs int      `yaml:"query_timeout_ms"`
}

// PredictConfig holds Prediction Engine thresholds.
type PredictConfig struct {
	ConfidenceFloor float64 `yaml:"confidence_floor"` // default 0.40
	ShowThreshold   float64 `yaml:"show_threshold"`   // default 0.60
	CacheTTLSec     int     `yaml:"cache_ttl_sec"`     // default ~3600
	CandidateTopK   int     `yaml:"candidate_top_k"`
	FinalizeWindow  int     `yaml:"finalize_window_sec"` // default 300
	FinalizeGrace   int     `yaml:"finalize_grace_sec"`
	TransitionBoost float64 `yaml:"transition_boost"` // default 0.20
}

// TunerConfig holds Thompson-sampling tuner settings.
type TunerConfig struct {
	ArmOverflowCap float64 `yaml:"arm_overflow_cap"` // default 1e6
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

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
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8787
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "embedded"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Project.RegistryPath == "" {
		c.Project.RegistryPath = filepath.Join(dataDir(), "projects.json")
	}
	if len(c.Index.SkipDirs) == 0 {
		c.Index.SkipDirs = []string{".git", "node_modules", "vendor", ".venv", "__pycache__", "dist", "build"}
	}
	if c.Index.WorkingSetSize <= 0 {
		c.Index.WorkingSetSize = 50
	}
	if c.Index.RegexScanCap <= 0 {
		c.Index.RegexScanCap = 5000
	}
	if c.Index.QueryTimeoutMs <= 0 {
		c.Index.QueryTimeoutMs = 500
	}
	if c.Predict.ConfidenceFloor <= 0 {
		c.Predict.ConfidenceFloor = 0.40
	}
	if c.Predict.ShowThreshold <= 0 {
		c.Predict.ShowThreshold = 0.60
	}
	if c.Predict.CacheTTLSec <= 0 {
		c.Predict.CacheTTLSec = 3600
	}
	if c.Predict.CandidateTopK <= 0 {
		c.Predict.CandidateTopK = 10
	}
	if c.Predict.FinalizeWindow <= 0 {
		c.Predict.FinalizeWindow = 300
	}
	if c.Predict.FinalizeGrace <= 0 {
		c.Predict.FinalizeGrace = 60
	}
	if c.Predict.TransitionBoost <= 0 {
		c.Predict.TransitionBoost = 0.20
	}
	if c.Tuner.ArmOverflowCap <= 0 {
		c.Tuner.ArmOverflowCap = 1e6
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case "embedded":
	case "redis":
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required when store.driver is redis")
		}
	default:
		return fmt.Errorf("store.driver must be \"embedded\" or \"redis\", got %q", c.Store.Driver)
	}
	if c.Predict.ConfidenceFloor < 0 || c.Predict.ConfidenceFloor > 1 {
		return fmt.Errorf("predict.confidence_floor must be within [0,1], got %v", c.Predict.ConfidenceFloor)
	}
	if c.Predict.ShowThreshold < c.Predict.ConfidenceFloor {
		return fmt.Errorf("predict.show_threshold must be >= predict.confidence_floor")
	}
	return nil
}

// FinalizeWindowDuration returns the configured prediction finalization window as a duration.
func (c *Config) FinalizeWindowDuration() time.Duration {
	return time.Duration(c.Predict.FinalizeWindow) * time.Second
}

// FinalizeGraceDuration returns the configured finalization grace period as a duration.
func (c *Config) FinalizeGraceDuration() time.Duration {
	return time.Duration(c.Predict.FinalizeGrace) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// dataDir returns the default on-disk data directory for daemon state.
func dataDir() string {
	if d := os.Getenv("DEVINTEL_DATA_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devintel"
	}
	return filepath.Join(home, ".devintel")
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
