// Package config provides configuration loading and structs for the solrdex server.
//
// A config file holds one section per environment (development, test, production, ...).
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar selects the environment section when no -env flag is given.
const EnvVar = "SOLRDEX_ENV"

// DefaultEnvironment is used when neither -env nor SOLRDEX_ENV is set.
const DefaultEnvironment = "development"

// Backends.
const (
	BackendSolr     = "solr"
	BackendBleve    = "bleve"
	BackendSQLite   = "sqlite"
	BackendDisabled = "disabled"
)

// Config holds all configuration for one environment.
type Config struct {
	// Environment is the section the config was read from.
	Environment string `yaml:"-"`

	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
	Disabled bool   `yaml:"disabled"`
	Backend  string `yaml:"backend"`

	Server ServerConfig `yaml:"server"`
	Solr   SolrConfig   `yaml:"solr"`
	// Master, when set, receives every write instead of Solr.
	Master *SolrConfig  `yaml:"master"`
	Bleve  BleveConfig  `yaml:"bleve"`
	SQLite SQLiteConfig `yaml:"sqlite"`

	AutoCommitAfterRequest       *bool `yaml:"auto_commit_after_request"`
	AutoCommitAfterDeleteRequest *bool `yaml:"auto_commit_after_delete_request"`

	Watch WatchConfig  `yaml:"watch"`
	Types []TypeConfig `yaml:"types"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// SolrConfig locates a Solr core.
type SolrConfig struct {
	Scheme   string        `yaml:"scheme"`
	Hostname string        `yaml:"hostname"`
	Port     int           `yaml:"port"`
	Path     string        `yaml:"path"`
	Timeout  time.Duration `yaml:"timeout"`
	// Retries bounds retries of failed requests; zero disables them.
	Retries int `yaml:"retries"`
}

// URL returns the base URL of the core.
func (s SolrConfig) URL() string {
	u := url.URL{Scheme: s.Scheme, Host: s.Hostname + ":" + strconv.Itoa(s.Port), Path: s.Path}
	return u.String()
}

// BleveConfig holds the embedded index location.
type BleveConfig struct {
	IndexPath string `yaml:"index_path"`
}

// SQLiteConfig holds the document database location.
type SQLiteConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WatchConfig holds spool directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// TypeConfig declares one indexable type and its fields. Fields are raw option maps
// (name, type, multiple, dynamic) checked strictly when the catalog is built.
type TypeConfig struct {
	Name   string           `yaml:"name"`
	Parent string           `yaml:"parent"`
	Fields []map[string]any `yaml:"fields"`
}

// CommitAfterRequest reports whether index requests commit by default.
func (c *Config) CommitAfterRequest() bool {
	return c.AutoCommitAfterRequest == nil || *c.AutoCommitAfterRequest
}

// CommitAfterDeleteRequest reports whether delete requests commit by default.
func (c *Config) CommitAfterDeleteRequest() bool {
	return c.AutoCommitAfterDeleteRequest != nil && *c.AutoCommitAfterDeleteRequest
}

// WriteTarget returns the Solr core that receives writes: the master when configured.
func (c *Config) WriteTarget() SolrConfig {
	if c.Master != nil {
		return *c.Master
	}
	return c.Solr
}

// ResolveEnvironment picks the environment: the explicit value, then SOLRDEX_ENV, then
// development.
func ResolveEnvironment(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvVar); env != "" {
		return env
	}
	return DefaultEnvironment
}

// Load reads the section for env from the config file at path, applies defaults and
// environment overrides, and expands paths. A file without that section yields the
// defaults. An empty path skips the file.
func Load(path, env string) (*Config, error) {
	env = ResolveEnvironment(env)
	cfg := &Config{}
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var sections map[string]*Config
		if err := yaml.Unmarshal(data, &sections); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if section := sections[env]; section != nil {
			cfg = section
		}
		configDir = filepath.Dir(path)
	}
	cfg.Environment = env

	ApplyDefaults(cfg)
	if err := applySolrURL(cfg); err != nil {
		return nil, err
	}

	cfg.Bleve.IndexPath = expandPath(cfg.Bleve.IndexPath, configDir)
	cfg.SQLite.DatabasePath = expandPath(cfg.SQLite.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
	return cfg, nil
}

// applySolrURL lets SOLR_URL or WEBSOLR_URL override the core location. A master
// takes the host and path but keeps its own port.
func applySolrURL(cfg *Config) error {
	raw := os.Getenv("SOLR_URL")
	if raw == "" {
		raw = os.Getenv("WEBSOLR_URL")
	}
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("invalid solr url %q", raw)
	}
	port := 80
	if u.Scheme == "https" {
		port = 443
	}
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return fmt.Errorf("invalid solr url %q: %w", raw, err)
		}
	}
	cfg.Solr.Scheme = u.Scheme
	cfg.Solr.Hostname = u.Hostname()
	cfg.Solr.Port = port
	cfg.Solr.Path = u.Path
	if cfg.Master != nil {
		cfg.Master.Scheme = u.Scheme
		cfg.Master.Hostname = u.Hostname()
		cfg.Master.Path = u.Path
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
