package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// levelNames maps configured level names, both the java.util.logging style names used
// by Solr deployments and zap's own, to zap levels.
var levelNames = map[string]zapcore.Level{
	"FINEST":  zapcore.DebugLevel,
	"FINER":   zapcore.DebugLevel,
	"FINE":    zapcore.DebugLevel,
	"DEBUG":   zapcore.DebugLevel,
	"CONFIG":  zapcore.InfoLevel,
	"INFO":    zapcore.InfoLevel,
	"WARNING": zapcore.WarnLevel,
	"WARN":    zapcore.WarnLevel,
	"SEVERE":  zapcore.ErrorLevel,
	"ERROR":   zapcore.ErrorLevel,
}

// ParseLevel resolves a level name. off is true for "OFF".
func ParseLevel(name string) (level zapcore.Level, off bool, err error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return zapcore.InfoLevel, false, nil
	}
	if name == "OFF" {
		return zapcore.InfoLevel, true, nil
	}
	l, ok := levelNames[name]
	if !ok {
		return zapcore.InfoLevel, false, fmt.Errorf("unknown log level %q", name)
	}
	return l, false, nil
}

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON) at level.
// Level "OFF" returns a no-op logger.
func NewLogger(debug bool, level string) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	l, off, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if off {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(l)
	return cfg.Build()
}
