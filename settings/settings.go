// Package settings plays the external "Settings" collaborator role from
// spec.md §6: YAML-unmarshaled, validator-checked configuration with an
// applyDefaults() method, grounded on
// uber-kraken/lib/torrent/scheduler/config.go's Config shape.
package settings

import (
	"fmt"
	"os"
	"time"

	validator "gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"

	"github.com/nyxworks/kestrel/internal/log"
)

// Config is the top-level peer configuration.
type Config struct {
	// TCPPort is the port the seeder server listens on for inbound peer
	// connections.
	TCPPort int `yaml:"tcp_port" validate:"min=1,max=65535"`

	// DownloadsDir is where in-progress and assembled torrent content is
	// stored.
	DownloadsDir string `yaml:"downloads_dir" validate:"nonzero"`

	// LogDir names a directory for log files. Nothing in the module reads
	// it: loggers built from Log write to standard error.
	LogDir string `yaml:"log_dir"`

	// Parallelism bounds how many torrents the multi-torrent driver runs
	// concurrently, per spec.md §4.9's "configured parallelism K".
	Parallelism int `yaml:"parallelism" validate:"min=1"`

	// SeederWorkers bounds the seeder server's accept-loop worker pool.
	SeederWorkers int `yaml:"seeder_workers" validate:"min=1"`

	// AnnounceInterval is a re-announce interval. Nothing in the module
	// reads it: a swarm announces only when it starts and when it completes.
	AnnounceInterval time.Duration `yaml:"announce_interval"`

	// TrackerStorePath is the JSON file backing the tracker service's peer
	// and torrent registry.
	TrackerStorePath string `yaml:"tracker_store_path"`

	// TrackerAddr is the address the tracker HTTP service listens on.
	TrackerAddr string `yaml:"tracker_addr"`

	// TrackerWorkers bounds the tracker service's accept-loop worker pool.
	TrackerWorkers int `yaml:"tracker_workers"`

	// StatsPrefix is a name prefix for telemetry scopes. Nothing in the
	// module reads it: cmd/kestrel-peer reports to tally.NoopScope.
	StatsPrefix string `yaml:"stats_prefix"`

	Log log.Config `yaml:"log"`
}

// applyDefaults fills in zero-valued fields with the module's defaults,
// matching uber-kraken/lib/torrent/scheduler/config.go's applyDefaults
// method pattern.
func (c Config) applyDefaults() Config {
	if c.TCPPort == 0 {
		c.TCPPort = 6881
	}
	if c.LogDir == "" {
		c.LogDir = "./log"
	}
	if c.Parallelism == 0 {
		c.Parallelism = 3
	}
	if c.SeederWorkers == 0 {
		c.SeederWorkers = 8
	}
	if c.AnnounceInterval == 0 {
		c.AnnounceInterval = 30 * time.Minute
	}
	if c.TrackerStorePath == "" {
		c.TrackerStorePath = "./tracker_store.json"
	}
	if c.TrackerAddr == "" {
		c.TrackerAddr = ":6969"
	}
	if c.TrackerWorkers == 0 {
		c.TrackerWorkers = 4
	}
	if c.StatsPrefix == "" {
		c.StatsPrefix = "kestrel"
	}
	return c
}

// Load reads and validates a Config from the YAML file at path.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("settings: read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("settings: unmarshal config: %w", err)
	}
	c = c.applyDefaults()
	if err := validator.Validate(c); err != nil {
		return Config{}, fmt.Errorf("settings: validate config: %w", err)
	}
	return c, nil
}
