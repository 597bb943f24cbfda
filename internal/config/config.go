// Package config provides configuration management for the casemap binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoSources                = errors.New("at least one source is required")
	ErrNoEnabledSources         = errors.New("at least one source must be enabled")
	ErrSourceMissingName        = errors.New("source name is required")
	ErrDuplicateSourceName      = errors.New("source names must be unique")
	ErrUnknownSourceType        = errors.New("source type must be one of: html, newsapi, transparencia")
	ErrSourceMissingURL         = errors.New("source url is required")
	ErrSourceMissingSelectors   = errors.New("html source needs item and title selectors")
	ErrInvalidPacing            = errors.New("pacing_ms must be non-negative")
	ErrInvalidMaxPages          = errors.New("max_pages must be non-negative")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidStoreDriver       = errors.New("store.driver must be 'memory' or 'postgres'")
	ErrMissingDSN               = errors.New("store.dsn (or DATABASE_URL) is required for postgres")
	ErrInvalidScheduleJob       = errors.New("schedule job needs a name and a cron expression")
	ErrUnknownScheduledSource   = errors.New("schedule job references an unknown source")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// Source types.
const (
	SourceHTML          = "html"
	SourceNewsAPI       = "newsapi"
	SourceTransparencia = "transparencia"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config represents the complete casemap configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Sources  []SourceConfig `yaml:"sources"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Retry    RetryPolicy    `yaml:"retry"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SourceConfig describes one case source. Which fields apply depends on Type.
type SourceConfig struct {
	Selectors SelectorConfig `yaml:"selectors"`
	Type      string         `yaml:"type"`
	Name      string         `yaml:"name"`
	URL       string         `yaml:"url"`
	BaseURL   string         `yaml:"base_url"`
	Query     string         `yaml:"query"`
	Language  string         `yaml:"language"`
	APIKey    string         `yaml:"api_key"`
	Label     string         `yaml:"label"`
	Tags      []string       `yaml:"tags"`
	Keywords  []string       `yaml:"keywords"`
	APIKeys   []string       `yaml:"api_keys"`
	PageSize  int            `yaml:"page_size"`
	MaxPages  int            `yaml:"max_pages"`
	PacingMs  int            `yaml:"pacing_ms"`
	Enabled   bool           `yaml:"enabled"`
}

// SelectorConfig holds the CSS selectors of an HTML source. Title, summary and
// link are evaluated relative to each item.
type SelectorConfig struct {
	Item    string `yaml:"item"`
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
	Link    string `yaml:"link"`
}

// Pacing returns the delay between paginated requests.
func (s *SourceConfig) Pacing() time.Duration {
	return time.Duration(s.PacingMs) * time.Millisecond
}

// PageURLs expands the {tag} template once per tag. Without tags the URL is
// returned as is.
func (s *SourceConfig) PageURLs() []string {
	if len(s.Tags) == 0 || !strings.Contains(s.URL, "{tag}") {
		return []string{s.URL}
	}

	urls := make([]string, 0, len(s.Tags))
	for _, tag := range s.Tags {
		urls = append(urls, strings.ReplaceAll(s.URL, "{tag}", tag))
	}

	return urls
}

// ScheduleConfig lists the cron jobs of the worker.
type ScheduleConfig struct {
	Jobs []JobConfig `yaml:"jobs"`
}

// JobConfig fires an ingestion run over the named sources. An empty source
// list means every enabled source.
type JobConfig struct {
	Name    string   `yaml:"name"`
	Cron    string   `yaml:"cron"`
	Sources []string `yaml:"sources"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// LoadConfig loads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry = DefaultRetryPolicy()
	}

	for i := range c.Sources {
		src := &c.Sources[i]

		switch src.Type {
		case SourceNewsAPI:
			if src.URL == "" {
				src.URL = "https://newsapi.org/v2/everything"
			}

			if src.Query == "" {
				src.Query = "Corrupção Brasil"
			}

			if src.Language == "" {
				src.Language = "pt"
			}

			if src.PageSize == 0 {
				src.PageSize = 50
			}
		case SourceTransparencia:
			if src.URL == "" {
				src.URL = "https://api.portaldatransparencia.gov.br/api-de-dados/sancoes"
			}

			if src.PacingMs == 0 {
				src.PacingMs = 1000
			}

			if src.MaxPages == 0 {
				src.MaxPages = 100
			}
		}
	}
}

// ApplyEnv overrides secrets and deployment settings from the environment.
// getenv is usually os.Getenv. DATABASE_URL also moves a memory store to
// postgres.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if dsn := getenv("DATABASE_URL"); dsn != "" {
		c.Store.DSN = dsn

		if c.Store.Driver == "" || c.Store.Driver == DriverMemory {
			c.Store.Driver = DriverPostgres
		}
	}

	if port := getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}

	var newsKeys []string

	for _, name := range []string{"NEWS_API_KEY1", "NEWS_API_KEY2"} {
		if key := getenv(name); key != "" {
			newsKeys = append(newsKeys, key)
		}
	}

	portalKey := getenv("CHAVE_API_PORTAL")

	for i := range c.Sources {
		src := &c.Sources[i]

		switch src.Type {
		case SourceNewsAPI:
			if len(newsKeys) > 0 {
				src.APIKeys = newsKeys
			}
		case SourceTransparencia:
			if portalKey != "" {
				src.APIKey = portalKey
			}
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	enabledCount := 0
	names := make(map[string]bool, len(c.Sources))

	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("%w: source[%d]", ErrSourceMissingName, i)
		}

		if names[src.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSourceName, src.Name)
		}

		names[src.Name] = true

		switch src.Type {
		case SourceHTML:
			if src.Selectors.Item == "" || src.Selectors.Title == "" {
				return fmt.Errorf("%w: %s", ErrSourceMissingSelectors, src.Name)
			}
		case SourceNewsAPI, SourceTransparencia:
		default:
			return fmt.Errorf("%w: %s", ErrUnknownSourceType, src.Name)
		}

		if src.URL == "" {
			return fmt.Errorf("%w: %s", ErrSourceMissingURL, src.Name)
		}

		if src.PacingMs < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidPacing, src.Name)
		}

		if src.MaxPages < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidMaxPages, src.Name)
		}

		if src.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSources
	}

	if err := c.Retry.Validate(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrInvalidStoreDriver
	}

	for i, job := range c.Schedule.Jobs {
		if job.Name == "" || job.Cron == "" {
			return fmt.Errorf("%w: schedule.jobs[%d]", ErrInvalidScheduleJob, i)
		}

		for _, name := range job.Sources {
			if !names[name] {
				return fmt.Errorf("%w: %s references %s", ErrUnknownScheduledSource, job.Name, name)
			}
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// Validate checks the retry policy bounds.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if rp.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if rp.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if rp.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	return nil
}

// GetEnabledSources returns only enabled sources, in config order.
func (c *Config) GetEnabledSources() []SourceConfig {
	var enabled []SourceConfig

	for _, src := range c.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	return enabled
}

// GetSourcesByName returns the enabled sources among names, in config order.
// An empty names list selects every enabled source.
func (c *Config) GetSourcesByName(names []string) []SourceConfig {
	if len(names) == 0 {
		return c.GetEnabledSources()
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var sources []SourceConfig

	for _, src := range c.Sources {
		if src.Enabled && want[src.Name] {
			sources = append(sources, src)
		}
	}

	return sources
}

// DefaultRetryPolicy returns the policy used when the file sets none.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    500,
		MaxDelayMs:        10000,
		BackoffMultiplier: 2.0,
		TimeoutSec:        30,
	}
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %d, Jobs: %d, Store: %s, MaxAttempts: %d}",
		len(c.Sources),
		len(c.Schedule.Jobs),
		c.Store.Driver,
		c.Retry.MaxAttempts,
	)
}
