package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/dqb/internal/querysql"
)

const maxWalkDepth = 25

// configNames are tried in order in every directory of the walk.
var configNames = []string{"dqb.yaml", "dqb.yml"}

// Config is the content of dqb.yaml after flags, environment and defaults
// have been applied.
type Config struct {
	// Schema is the schema configuration file (JSON, YAML or CUE).
	Schema string `mapstructure:"schema"`

	// AccessLevel is the caller's access level for every request.
	AccessLevel int `mapstructure:"access_level"`

	Database DatabaseConfig  `mapstructure:"database"`
	Cache    CacheConfig     `mapstructure:"cache"`
	Limits   querysql.Limits `mapstructure:"limits"`
}

// DatabaseConfig selects the database the query command runs against.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	// ExtraKeys maps extra tables to the columns holding their dependency
	// fields.
	ExtraKeys map[string][]string `mapstructure:"extra_keys"`
}

// CacheConfig selects where built schema snapshots are kept.
type CacheConfig struct {
	// Driver is none, memory or sql. The sql cache lives in the query
	// database.
	Driver string        `mapstructure:"driver"`
	Name   string        `mapstructure:"name"`
	TTL    time.Duration `mapstructure:"ttl"`
	Table  string        `mapstructure:"table"`
}

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheSQL    = "sql"
)

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"schema":       "schema",
	"access-level": "access_level",
	"driver":       "database.driver",
	"dsn":          "database.dsn",
	"cache":        "cache.driver",
}

// LoadConfig discovers and loads configuration with precedence
// flags > env > config file > defaults. flags may be nil.
//
// Returns the loaded config and the path of the config file, empty if none
// was found.
func LoadConfig(explicitConfigPath string, flags *pflag.FlagSet) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DQB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	// A relative schema path written in the config file is relative to it.
	if schemaFromFile(v, flags) && !filepath.IsAbs(cfg.Schema) {
		cfg.Schema = filepath.Join(filepath.Dir(configPath), cfg.Schema)
	}

	if err := cfg.Validate(); err != nil {
		return nil, configPath, err
	}
	return &cfg, configPath, nil
}

func schemaFromFile(v *viper.Viper, flags *pflag.FlagSet) bool {
	if !v.InConfig("schema") || v.GetString("schema") == "" {
		return false
	}
	if _, ok := os.LookupEnv("DQB_SCHEMA"); ok {
		return false
	}
	return flags == nil || !flags.Changed("schema")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", "")
	v.SetDefault("access_level", 0)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "")

	v.SetDefault("cache.driver", CacheNone)
	v.SetDefault("cache.name", "dqb")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.table", "")

	defaults := querysql.DefaultLimits()
	v.SetDefault("limits.max_predicates", defaults.MaxPredicates)
	v.SetDefault("limits.max_recursion", defaults.MaxRecursion)
	v.SetDefault("limits.max_order_entries", defaults.MaxOrderEntries)
	v.SetDefault("limits.default_items_per_page", defaults.DefaultItemsPerPage)
	v.SetDefault("limits.max_items_per_page", defaults.MaxItemsPerPage)
}

// Validate rejects unknown cache drivers and inconsistent limits.
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case CacheNone, CacheMemory, CacheSQL:
	default:
		return fmt.Errorf("cache.driver %q: must be one of none, memory, sql", c.Cache.Driver)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	return nil
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for dqb.yaml or dqb.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}
