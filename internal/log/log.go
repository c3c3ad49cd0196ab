// Package log wraps zap.Logger construction, matching the shape of
// uber-kraken/lib/torrent/scheduler/torrentlog's Config+New pattern: a small
// declarative Config unmarshaled from YAML, turned into a concrete
// *zap.SugaredLogger.
package log

import (
	"fmt"

	"go.uber.org/zap"
)

// Config controls logger construction. The zero value produces a
// production-style JSON logger at info level.
type Config struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

// New builds a *zap.SugaredLogger from config.
func New(config Config) (*zap.SugaredLogger, error) {
	var base *zap.Logger
	var err error
	if config.Development {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("log: build logger: %w", err)
	}
	return base.Sugar(), nil
}

// NewNop returns a logger that discards all output, for tests.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
