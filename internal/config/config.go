// Package config loads fedunion configuration from a YAML file, environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/fedunion/internal/querysql"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// FEDUNION_TRINO_HOST for trino.host.
const EnvPrefix = "FEDUNION"

// Config is the complete fedunion configuration.
type Config struct {
	Trino    TrinoConfig    `mapstructure:"trino"`
	App      AppConfig      `mapstructure:"app"`
	Patterns PatternsConfig `mapstructure:"patterns"`
	Select   SelectConfig   `mapstructure:"select"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	History  HistoryConfig  `mapstructure:"history"`
}

// TrinoConfig locates the Trino coordinator.
type TrinoConfig struct {
	Scheme   string        `mapstructure:"scheme"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Catalog  string        `mapstructure:"catalog"`
	Schema   string        `mapstructure:"schema"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// RateLimit caps HTTP requests per second to the coordinator. Zero
	// disables the limit.
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

// AppConfig is the HTTP API listen address.
type AppConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// PatternsConfig describes the sharded table naming convention.
type PatternsConfig struct {
	CountryPattern   string   `mapstructure:"country_pattern"`
	UseCountryCode   bool     `mapstructure:"use_country_code"`
	DefaultCountries []string `mapstructure:"default_countries"`
}

// SelectConfig controls projection rendering.
type SelectConfig struct {
	QualifyColumns string `mapstructure:"qualify_columns"`
}

// MetadataConfig controls metadata discovery.
type MetadataConfig struct {
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	Concurrency int           `mapstructure:"concurrency"`
}

// HistoryConfig controls the query history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// setDefaults holds the built-in configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("trino.scheme", "http")
	v.SetDefault("trino.host", "localhost")
	v.SetDefault("trino.port", 8080)
	v.SetDefault("trino.user", "trino")
	v.SetDefault("trino.password", "")
	v.SetDefault("trino.catalog", "")
	v.SetDefault("trino.schema", "")
	v.SetDefault("trino.timeout", 5*time.Minute)
	v.SetDefault("trino.rate_limit", 20.0)
	v.SetDefault("trino.burst", 10)

	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 3000)

	v.SetDefault("patterns.country_pattern", querysql.DefaultTemplate)
	v.SetDefault("patterns.use_country_code", true)
	v.SetDefault("patterns.default_countries", []string{"de", "fr", "es", "it", "uk"})

	v.SetDefault("select.qualify_columns", string(querysql.QualifyCatalog))

	v.SetDefault("metadata.cache_ttl", 5*time.Minute)
	v.SetDefault("metadata.concurrency", 8)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "fedunion.db")
}

// Environment variables understood besides the FEDUNION_ prefixed ones.
var envAliases = map[string][]string{
	"trino.user":    {"TRINO_USER"},
	"trino.catalog": {"TRINO_CATALOG"},
	"app.port":      {"PORT"},
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"trino-host":     "trino.host",
	"trino-port":     "trino.port",
	"trino-user":     "trino.user",
	"trino-catalog":  "trino.catalog",
	"listen-host":    "app.host",
	"listen-port":    "app.port",
	"pattern":        "patterns.country_pattern",
	"use-shards":     "patterns.use_country_code",
	"qualify":        "select.qualify_columns",
	"history-db":     "history.path",
	"history":        "history.enabled",
	"metadata-cache": "metadata.cache_ttl",
}

// BindFlags registers the configuration override flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("trino-host", "", "Trino coordinator host")
	fs.Int("trino-port", 0, "Trino coordinator port")
	fs.String("trino-user", "", "Trino user (X-Trino-User)")
	fs.String("trino-catalog", "", "default Trino catalog")
	fs.String("listen-host", "", "HTTP API listen host")
	fs.Int("listen-port", 0, "HTTP API listen port")
	fs.String("pattern", "", `physical table template, e.g. storage_{shard}.dbo."{table}"`)
	fs.Bool("use-shards", true, "substitute the shard key into the table template")
	fs.String("qualify", "", "column qualification: catalog or alias")
	fs.String("history-db", "", "path of the query history database")
	fs.Bool("history", true, "record generated queries in the history database")
	fs.Duration("metadata-cache", 0, "metadata cache TTL")
}

// Load reads configuration. path may be empty, in which case config.yaml is
// looked up in the working directory and its absence is not an error. Only
// flags that were explicitly set on fs override file and environment values;
// fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		envs := append([]string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(envs...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return cfg
}

// Validate checks value ranges and the table template.
func (c *Config) Validate() error {
	var errs []error
	if c.Trino.Host == "" {
		errs = append(errs, fmt.Errorf("trino.host must be set"))
	}
	if c.Trino.Port <= 0 || c.Trino.Port > 65535 {
		errs = append(errs, fmt.Errorf("trino.port %d out of range", c.Trino.Port))
	}
	if c.Trino.Scheme != "http" && c.Trino.Scheme != "https" {
		errs = append(errs, fmt.Errorf("trino.scheme must be http or https, got %q", c.Trino.Scheme))
	}
	if c.Trino.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("trino.rate_limit must not be negative"))
	}
	if c.App.Port < 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.port %d out of range", c.App.Port))
	}
	if err := c.PatternConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("patterns.country_pattern: %w", err))
	}
	if !querysql.ValidQualifyModes[querysql.QualifyMode(c.Select.QualifyColumns)] {
		errs = append(errs, fmt.Errorf("select.qualify_columns must be catalog or alias, got %q", c.Select.QualifyColumns))
	}
	if c.Metadata.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("metadata.concurrency must be at least 1"))
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, fmt.Errorf("history.path must be set when history is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// PatternConfig returns the physical name resolver configuration.
func (c *Config) PatternConfig() querysql.PatternConfig {
	return querysql.PatternConfig{
		Template: c.Patterns.CountryPattern,
		Enabled:  c.Patterns.UseCountryCode,
	}
}

// CompilerOptions returns the options for querysql.NewCompiler.
func (c *Config) CompilerOptions() querysql.Options {
	return querysql.Options{
		Pattern:        c.PatternConfig(),
		QualifyColumns: querysql.QualifyMode(c.Select.QualifyColumns),
	}
}

// TrinoURL returns the coordinator base URL.
func (c *Config) TrinoURL() string {
	u := url.URL{
		Scheme: c.Trino.Scheme,
		Host:   c.Trino.Host + ":" + strconv.Itoa(c.Trino.Port),
	}
	return u.String()
}

// ListenAddr returns the HTTP API listen address.
func (c *Config) ListenAddr() string {
	return c.App.Host + ":" + strconv.Itoa(c.App.Port)
}
