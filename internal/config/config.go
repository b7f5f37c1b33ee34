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

// Config holds the lexis configuration.
type Config struct {
	HTTP        HTTPConfig          `yaml:"http"`
	Store       StoreConfig         `yaml:"store"`
	Search      SearchConfig        `yaml:"search"`
	Synonyms    map[string][]string `yaml:"synonyms"`
	EntityTypes []EntityTypeConfig  `yaml:"entity_types"`
	Maintenance MaintenanceConfig   `yaml:"maintenance"`
	Logging     LoggingConfig       `yaml:"logging"`
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
	// AdminTokens guard /v1/admin routes; empty disables authentication.
	AdminTokens []string `yaml:"admin_tokens"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// StoreConfig holds authoritative store settings.
type StoreConfig struct {
	Driver           string   `yaml:"driver"` // memory, sqlite, postgres, redis (default: memory)
	DSN              string   `yaml:"dsn"`    // sqlite, postgres
	Table            string   `yaml:"table"`  // sqlite, postgres
	Addrs            []string `yaml:"addrs"`  // redis
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds query limits and presentation settings.
type SearchConfig struct {
	DefaultLimit  int     `yaml:"default_limit"`
	MaxLimit      int     `yaml:"max_limit"`
	SlowQueryMS   int     `yaml:"slow_query_ms"` // 0 disables slow query logging
	HighlightPre  string  `yaml:"highlight_pre"`
	HighlightPost string  `yaml:"highlight_post"`
	K1            float64 `yaml:"k1"`
	B             float64 `yaml:"b"`
}

// EntityTypeConfig describes one searchable entity type.
type EntityTypeConfig struct {
	Name       string        `yaml:"name"`
	Source     string        `yaml:"source"`
	Fields     []FieldConfig `yaml:"fields"`
	Filterable []string      `yaml:"filterable"`
	NameField  string        `yaml:"name_field"`
	DateFields []string      `yaml:"date_fields"`
	URL        string        `yaml:"url"`
}

// FieldConfig is an indexed field with its ranking weight.
type FieldConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// MaintenanceConfig holds rebuild settings.
type MaintenanceConfig struct {
	RebuildOnStart     bool   `yaml:"rebuild_on_start"`
	RebuildSchedule    string `yaml:"rebuild_schedule"` // cron expression, empty disables
	RebuildParallelism int    `yaml:"rebuild_parallelism"`
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
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Store.Table == "" {
		c.Store.Table = "records"
	}
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = "lexis"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.K1 <= 0 {
		c.Search.K1 = 1.2
	}
	if c.Search.B <= 0 {
		c.Search.B = 0.75
	}
	if c.Maintenance.RebuildParallelism <= 0 {
		c.Maintenance.RebuildParallelism = 2
	}
	for i := range c.EntityTypes {
		for j := range c.EntityTypes[i].Fields {
			if c.EntityTypes[i].Fields[j].Weight == 0 {
				c.EntityTypes[i].Fields[j].Weight = 1
			}
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	case DriverRedis:
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, sqlite, postgres, redis, got %q", c.Store.Driver)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.B > 1 {
		return fmt.Errorf("search.b must be in (0, 1], got %v", c.Search.B)
	}
	if len(c.EntityTypes) == 0 {
		return fmt.Errorf("entity_types must declare at least one type")
	}
	seen := make(map[string]bool, len(c.EntityTypes))
	for i, et := range c.EntityTypes {
		if et.Name == "" {
			return fmt.Errorf("entity_types[%d].name is required", i)
		}
		if seen[et.Name] {
			return fmt.Errorf("entity_types: duplicate type %q", et.Name)
		}
		seen[et.Name] = true
		if len(et.Fields) == 0 {
			return fmt.Errorf("entity_types.%s.fields must not be empty", et.Name)
		}
		for _, f := range et.Fields {
			if f.Weight <= 0 {
				return fmt.Errorf("entity_types.%s.fields.%s.weight must be positive, got %v", et.Name, f.Name, f.Weight)
			}
		}
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
