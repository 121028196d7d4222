package config

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	typeNamePattern  = regexp.MustCompile(`^\w+$`)
	extensionPattern = regexp.MustCompile(`^\.\w+$`)
	absPathPattern   = regexp.MustCompile(`^/`)
)

// LogLevels lists the accepted log_level values after upper-casing.
var LogLevels = []any{"FINEST", "FINER", "FINE", "CONFIG", "INFO", "WARNING", "SEVERE", "OFF", "DEBUG", "WARN", "ERROR"}

// Validate checks the loaded configuration. Only the selected backend's section is
// checked.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendSolr, BackendBleve, BackendSQLite, BackendDisabled)),
		validation.Field(&c.LogLevel, validation.In(LogLevels...)),
		validation.Field(&c.Server),
		validation.Field(&c.Watch),
		validation.Field(&c.Types),
	)
	if err != nil {
		return err
	}
	switch c.Backend {
	case BackendSolr:
		if err := c.Solr.Validate(); err != nil {
			return fmt.Errorf("solr: %w", err)
		}
		if c.Master != nil {
			if err := c.Master.Validate(); err != nil {
				return fmt.Errorf("master: %w", err)
			}
		}
	case BackendBleve:
		if err := c.Bleve.Validate(); err != nil {
			return fmt.Errorf("bleve: %w", err)
		}
	case BackendSQLite:
		if err := c.SQLite.Validate(); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	seen := make(map[string]bool, len(c.Types))
	for _, t := range c.Types {
		if seen[t.Name] {
			return fmt.Errorf("types: %q declared twice", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Host, validation.Required),
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (s SolrConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Scheme, validation.Required, validation.In("http", "https")),
		validation.Field(&s.Hostname, validation.Required),
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.Path, validation.Match(absPathPattern)),
		validation.Field(&s.Timeout, validation.Min(0)),
		validation.Field(&s.Retries, validation.Min(0)),
	)
}

func (b BleveConfig) Validate() error {
	return validation.ValidateStruct(&b, validation.Field(&b.IndexPath, validation.Required))
}

func (s SQLiteConfig) Validate() error {
	return validation.ValidateStruct(&s, validation.Field(&s.DatabasePath, validation.Required))
}

func (w WatchConfig) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.Directories, validation.Each(validation.Required)),
		validation.Field(&w.Extensions, validation.Each(validation.Match(extensionPattern))),
	)
}

func (t TypeConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Match(typeNamePattern)),
		validation.Field(&t.Parent, validation.Match(typeNamePattern)),
	)
}
