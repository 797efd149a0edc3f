package model

import (
	"runtime"
	"time"
)

// Config holds the complete epitab configuration
type Config struct {
	Gazetteer    GazetteerConfig    `yaml:"gazetteer" mapstructure:"gazetteer"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// GazetteerConfig controls the place-name import
type GazetteerConfig struct {
	DatasetURL      string        `yaml:"dataset_url" mapstructure:"dataset_url"`
	EntryName       string        `yaml:"entry_name" mapstructure:"entry_name"`         // File inside the archive
	DBPath          string        `yaml:"db_path" mapstructure:"db_path"`               // Empty means ~/.epitab/geonames.sqlite
	BatchSize       int           `yaml:"batch_size" mapstructure:"batch_size"`         // Records per bulk insert
	ExpectedRows    int           `yaml:"expected_rows" mapstructure:"expected_rows"`   // Rough dataset size
	CommitDivisor   int           `yaml:"commit_divisor" mapstructure:"commit_divisor"` // Commits per expected_rows
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
}

// CommitEvery returns how many records are inserted between commits
func (g GazetteerConfig) CommitEvery() int {
	if g.CommitDivisor <= 0 || g.ExpectedRows <= 0 {
		return 0
	}
	n := g.ExpectedRows / g.CommitDivisor
	if n < 1 {
		n = 1
	}
	return n
}

// CacheConfig controls the in-memory lookup cache
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// HTTPConfig controls remote document fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig controls per-host request rates
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst" mapstructure:"burst"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // json or yaml
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Gazetteer: GazetteerConfig{
			DatasetURL:      "http://download.geonames.org/export/dump/allCountries.zip",
			EntryName:       "allCountries.txt",
			BatchSize:       100,
			ExpectedRows:    11_000_000,
			CommitDivisor:   40,
			DownloadTimeout: 30 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             10 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Epitab/0.1 (+https://github.com/ppiankov/epitab)",
			MaxBodyBytes:  10_000_000,
			RespectRobots: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Output: OutputConfig{
			Format: "json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
