// Command kestrel-tracker runs the tracker HTTP service described in
// spec.md §4.10: a JSON-file-backed peer/torrent registry behind a bounded
// worker pool.
package main

import (
	"fmt"
	"os"

	"github.com/andres-erbsen/clock"
	"github.com/spf13/cobra"

	"github.com/nyxworks/kestrel/internal/log"
	"github.com/nyxworks/kestrel/settings"
	"github.com/nyxworks/kestrel/trackerservice"
)

var rootCmd = &cobra.Command{
	Use:           "kestrel-tracker <settings-file>",
	Short:         "kestrel-tracker serves BitTorrent announces and peer bookkeeping.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kestrel-tracker:", err)
		os.Exit(1)
	}
}

func run(settingsPath string) error {
	cfg, err := settings.Load(settingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger, err := log.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	registry, err := trackerservice.NewRegistry(cfg.TrackerStorePath, clock.New())
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}

	svc := &trackerservice.Service{
		Registry: registry,
		Logger:   logger,
		Workers:  cfg.TrackerWorkers,
	}

	logger.Infow("tracker listening", "addr", cfg.TrackerAddr)
	return svc.ListenAndServe(cfg.TrackerAddr)
}
