package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/objectstore"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath    string // pipeline files
	ModulesPath string // stage manifests

	// Vars holds raw `-var name=value` assignments.
	Vars    map[string]string
	VarFile string

	OutDir string
	// Plan renders the validated graph instead of running it.
	Plan bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	// EventsURL, when set, streams run events to a socket.io server.
	EventsURL string
	// Publish.Endpoint, when set, uploads materialized outputs.
	Publish objectstore.Config
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count cannot be negative, got %d", cfg.WorkerCount)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	if cfg.Publish.Endpoint != "" {
		if cfg.OutDir == "" {
			return nil, errors.New("publishing outputs requires an output directory")
		}
		if cfg.Publish.Bucket == "" {
			return nil, errors.New("publishing outputs requires a bucket")
		}
	}
	if cfg.Vars == nil {
		cfg.Vars = map[string]string{}
	}
	return &cfg, nil
}
