package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "folio.yml"

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory" // nothing is persisted; useful for dry runs
)

// Documented defaults, applied once by Validate.
const (
	DefaultSite       = "default"
	DefaultDriver     = DriverSQLite
	DefaultSQLitePath = ".folio/state.db"
	DefaultRedisURL   = "redis://localhost:6379/0"
	DefaultLogMode    = "development"
	DefaultLogLevel   = "info"
)

// Environment overrides, applied by Load before validation.
const (
	EnvRedisURL = "FOLIO_REDIS_URL"
	EnvSite     = "FOLIO_SITE"
)

// FolioConfig represents the top-level folio.yml configuration
type FolioConfig struct {
	Version   string          `yaml:"version"`
	Site      string          `yaml:"site,omitempty"` // Namespace for persisted state (default: "default")
	Storage   *StorageConfig  `yaml:"storage,omitempty"`
	Logging   *LoggingConfig  `yaml:"logging,omitempty"`
	Journals  []Journal       `yaml:"journals,omitempty"`  // The site's journal registry; feeds divergence summaries
	Templates []site.Template `yaml:"templates,omitempty"` // Seeded into an empty state on first run
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Driver   string `yaml:"driver,omitempty"`    // sqlite, redis or memory
	Path     string `yaml:"path,omitempty"`      // sqlite database file
	RedisURL string `yaml:"redis_url,omitempty"` // redis://[user:pass@]host:port/db
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Mode  string `yaml:"mode,omitempty"`  // development or production
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}

// Journal is one journal the site serves, with the issues it knows about
type Journal struct {
	Code   string   `yaml:"code"`
	Name   string   `yaml:"name,omitempty"`
	Issues []string `yaml:"issues,omitempty"`
}

// Validate performs strict validation on the configuration and applies defaults
func (c *FolioConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Site == "" {
		c.Site = DefaultSite
	}
	if strings.ContainsAny(c.Site, ": ") {
		return fmt.Errorf("site name '%s' cannot contain ':' or spaces", c.Site)
	}

	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}

	codes := make(map[string]bool)
	for i := range c.Journals {
		j := &c.Journals[i]
		if err := j.Validate(); err != nil {
			return err
		}
		if codes[j.Code] {
			return fmt.Errorf("duplicate journal code '%s'", j.Code)
		}
		codes[j.Code] = true
	}

	ids := make(map[string]bool)
	for i := range c.Templates {
		t := &c.Templates[i]
		// Hand-written seeds usually omit node ids.
		canvas.EnsureIDs(t.Sections)
		if err := t.Validate(); err != nil {
			return fmt.Errorf("template %d: %w", i, err)
		}
		if ids[t.ID] {
			return fmt.Errorf("duplicate template id '%s'", t.ID)
		}
		ids[t.ID] = true
	}

	return nil
}

// Validate applies storage defaults and checks the driver
func (s *StorageConfig) Validate() error {
	if s.Driver == "" {
		s.Driver = DefaultDriver
	}
	switch s.Driver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("invalid storage.driver: %s (must be 'sqlite', 'redis' or 'memory')", s.Driver)
	}
	if s.Path == "" {
		s.Path = DefaultSQLitePath
	}
	if s.RedisURL == "" {
		s.RedisURL = DefaultRedisURL
	}
	if !strings.HasPrefix(s.RedisURL, "redis://") && !strings.HasPrefix(s.RedisURL, "rediss://") {
		return fmt.Errorf("invalid storage.redis_url: %s (must start with redis:// or rediss://)", s.RedisURL)
	}
	return nil
}

// Validate applies logging defaults and checks the mode
func (l *LoggingConfig) Validate() error {
	if l.Mode == "" {
		l.Mode = DefaultLogMode
	}
	if l.Mode != "development" && l.Mode != "production" {
		return fmt.Errorf("invalid logging.mode: %s (must be 'development' or 'production')", l.Mode)
	}
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (must be 'debug', 'info', 'warn' or 'error')", l.Level)
	}
	return nil
}

// Validate normalizes the journal code and issue ids and checks they form valid routes
func (j *Journal) Validate() error {
	j.Code = strings.ToLower(strings.TrimSpace(j.Code))
	if j.Code == "" {
		return fmt.Errorf("journal code is required")
	}
	if _, err := site.ParseRoute(string(site.JournalRoute(j.Code))); err != nil {
		return fmt.Errorf("journal '%s': invalid code", j.Code)
	}
	for _, issue := range j.Issues {
		if _, err := site.ParseRoute(string(site.IssueRoute(j.Code, issue))); err != nil {
			return fmt.Errorf("journal '%s': invalid issue id '%s'", j.Code, issue)
		}
	}
	return nil
}

// KnownRoutes lists every journal and issue route the site serves, journals first
// in config order, each followed by its issues.
func (c *FolioConfig) KnownRoutes() []site.Route {
	var out []site.Route
	for _, j := range c.Journals {
		out = append(out, site.JournalRoute(j.Code))
		for _, issue := range j.Issues {
			out = append(out, site.IssueRoute(j.Code, issue))
		}
	}
	return out
}

// Default returns a validated configuration with every default applied and no
// journals or templates. Used when no folio.yml exists.
func Default() *FolioConfig {
	c := &FolioConfig{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return c
}

// Load reads and validates folio.yml from the specified path
func Load(path string) (*FolioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config FolioConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *FolioConfig) applyEnv() {
	if v := os.Getenv(EnvSite); v != "" {
		c.Site = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		if c.Storage == nil {
			c.Storage = &StorageConfig{}
		}
		c.Storage.RedisURL = v
	}
}
