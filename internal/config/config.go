package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/eveapi"
	"github.com/caeruleus1F/systemjumps/internal/store/sqlstore"
)

// Config holds all configuration for the systemjumps poller.
// Values come from an optional YAML file, then environment variables, then
// defaults; the systemjumps help text (rootCmd.Long) lists every variable.
type Config struct {
	DatabaseURL string `json:"database_url" yaml:"database_url"`
	DBDriver    string `json:"db_driver" yaml:"db_driver"`
	DBHost      string `json:"db_host" yaml:"db_host"`
	DBName      string `json:"db_name" yaml:"db_name"`
	DBUser      string `json:"db_user" yaml:"db_user"`
	DBPassword  string `json:"db_password" yaml:"db_password"`

	SourceURL string `json:"source_url" yaml:"source_url"`
	CachePath string `json:"cache_path" yaml:"cache_path"`

	// SafetyMargin is added to the source's cache window before refetching.
	SafetyMargin    time.Duration `json:"-" yaml:"-"`
	SafetyMarginStr string        `json:"safety_margin" yaml:"safety_margin"`

	RetryInterval    time.Duration `json:"-" yaml:"-"`
	RetryIntervalStr string        `json:"retry_interval" yaml:"retry_interval"`

	FetchTimeout    time.Duration `json:"-" yaml:"-"`
	FetchTimeoutStr string        `json:"fetch_timeout" yaml:"fetch_timeout"`

	DBOpTimeout    time.Duration `json:"-" yaml:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout" yaml:"db_op_timeout"`

	// TableNamingMode: "fixed" writes every pull to TableName, "period"
	// writes to TableName_MM_YYYY by the pull's UTC month.
	TableNamingMode string `json:"table_naming_mode" yaml:"table_naming_mode"`
	TableName       string `json:"table_name" yaml:"table_name"`

	// RedisAddr enables the pull history sink when set.
	RedisAddr           string        `json:"redis_addr,omitempty" yaml:"redis_addr"`
	HistoryRetention    time.Duration `json:"-" yaml:"-"`
	HistoryRetentionStr string        `json:"history_retention" yaml:"history_retention"`

	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path" yaml:"metrics_path"`
	MetricsPort    int    `json:"metrics_port" yaml:"metrics_port"`

	LogFile string `json:"log_file,omitempty" yaml:"log_file"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg
}

// LoadFile reads a YAML file, then applies environment overrides and
// defaults. An empty path behaves like Load.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Load(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// applyEnv overwrites every field whose environment variable is non-empty.
func applyEnv(cfg *Config) {
	str := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	str(&cfg.DatabaseURL, "DATABASE_URL")
	str(&cfg.DBDriver, "DB_DRIVER")
	str(&cfg.DBHost, "DB_HOST")
	str(&cfg.DBName, "DB_NAME")
	str(&cfg.DBUser, "DB_USER")
	str(&cfg.DBPassword, "DB_PASSWORD")
	str(&cfg.SourceURL, "SOURCE_URL")
	str(&cfg.CachePath, "CACHE_PATH")
	str(&cfg.SafetyMarginStr, "SAFETY_MARGIN")
	str(&cfg.RetryIntervalStr, "RETRY_INTERVAL")
	str(&cfg.FetchTimeoutStr, "FETCH_TIMEOUT")
	str(&cfg.DBOpTimeoutStr, "DB_OP_TIMEOUT")
	str(&cfg.TableNamingMode, "TABLE_NAMING_MODE")
	str(&cfg.TableName, "TABLE_NAME")
	str(&cfg.RedisAddr, "REDIS_ADDR")
	str(&cfg.HistoryRetentionStr, "HISTORY_RETENTION")
	str(&cfg.MetricsPath, "METRICS_PATH")
	str(&cfg.LogFile, "LOG_FILE")

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.MetricsEnabled = v == "true"
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MetricsPort = n
		} else {
			log.Printf("config: invalid METRICS_PORT %q (must be a positive integer), using default 9090", v)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DBDriver == "" {
		cfg.DBDriver = sqlstore.DriverPostgres
	}
	if cfg.SourceURL == "" {
		cfg.SourceURL = eveapi.DefaultURL
	}
	if cfg.CachePath == "" {
		cfg.CachePath = "jumps.xml"
	}
	if cfg.SafetyMarginStr == "" {
		cfg.SafetyMarginStr = "5m"
	}
	if cfg.RetryIntervalStr == "" {
		cfg.RetryIntervalStr = "1m"
	}
	if cfg.FetchTimeoutStr == "" {
		cfg.FetchTimeoutStr = "30s"
	}
	if cfg.DBOpTimeoutStr == "" {
		cfg.DBOpTimeoutStr = "5s"
	}
	if cfg.TableNamingMode == "" {
		cfg.TableNamingMode = string(domain.TableNamingFixed)
	}
	if cfg.TableName == "" {
		cfg.TableName = "systemjumps"
	}
	if cfg.HistoryRetentionStr == "" {
		cfg.HistoryRetentionStr = "720h"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = 9090
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.SafetyMarginStr); err == nil {
		cfg.SafetyMargin = d
	}
	if d, err := time.ParseDuration(cfg.RetryIntervalStr); err == nil {
		cfg.RetryInterval = d
	}
	if d, err := time.ParseDuration(cfg.FetchTimeoutStr); err == nil {
		cfg.FetchTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DBOpTimeoutStr); err == nil {
		cfg.DBOpTimeout = d
	}
	if d, err := time.ParseDuration(cfg.HistoryRetentionStr); err == nil {
		cfg.HistoryRetention = d
	}
}

// DSN returns DATABASE_URL, or a connection string built from the DB_* parts.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return sqlstore.DSN(c.DBDriver, c.DBHost, c.DBName, c.DBUser, c.DBPassword)
}

func (c Config) History() domain.HistoryConfig {
	return domain.HistoryConfig{
		Enabled:   c.RedisAddr != "",
		Retention: c.HistoryRetention,
	}
}

func (c Config) MetricsAddr() string {
	return fmt.Sprintf(":%d", c.MetricsPort)
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := c
	masked.DatabaseURL = maskSecret(c.DatabaseURL)
	if c.DBPassword != "" {
		masked.DBPassword = "***"
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://", "mysql://"} {
		if strings.HasPrefix(s, scheme) {
			return scheme + "***"
		}
	}
	return "***"
}
