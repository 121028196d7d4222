package config

import (
	"strings"
	"time"
)

var defaultPorts = map[string]int{"test": 8981, "development": 8982, "production": 8983}

var masterDefaultPorts = map[string]int{"test": 9981, "development": 9982, "production": 9983}

func portFor(ports map[string]int, env string, fallback int) int {
	if p, ok := ports[env]; ok {
		return p
	}
	return fallback
}

// ApplyDefaults sets default values for any zero values in cfg. Ports depend on
// cfg.Environment.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	if cfg.Backend == "" {
		cfg.Backend = BackendSolr
	}
	if cfg.Disabled {
		cfg.Backend = BackendDisabled
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	applySolrDefaults(&cfg.Solr, portFor(defaultPorts, cfg.Environment, 8983))
	if cfg.Master != nil {
		applySolrDefaults(cfg.Master, portFor(masterDefaultPorts, cfg.Environment, 9983))
	}
	if cfg.Bleve.IndexPath == "" {
		cfg.Bleve.IndexPath = "/usr/local/var/solrdex/data/" + cfg.Environment + "/bleve"
	}
	if cfg.SQLite.DatabasePath == "" {
		cfg.SQLite.DatabasePath = "/usr/local/var/solrdex/data/" + cfg.Environment + "/documents.db"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".json", ".yaml", ".yml"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

func applySolrDefaults(s *SolrConfig, port int) {
	if s.Scheme == "" {
		s.Scheme = "http"
	}
	if s.Hostname == "" {
		s.Hostname = "localhost"
	}
	if s.Port == 0 {
		s.Port = port
	}
	if s.Path == "" {
		s.Path = "/solr"
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
}
