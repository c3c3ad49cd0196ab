// Command kestrel-peer downloads and seeds BitTorrent swarms, driven by a
// torrent (or directory of torrents) and a settings file, per spec.md §6's
// two-positional-argument command-line surface.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"
	"github.com/uber-go/tally"

	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/driver"
	"github.com/nyxworks/kestrel/internal/log"
	"github.com/nyxworks/kestrel/metainfo"
	"github.com/nyxworks/kestrel/seederserver"
	"github.com/nyxworks/kestrel/settings"
	"github.com/nyxworks/kestrel/storage/fsstorage"
	"github.com/nyxworks/kestrel/swarm"
	"github.com/nyxworks/kestrel/telemetry"
	"github.com/nyxworks/kestrel/trackerclient"
)

var rootCmd = &cobra.Command{
	Use:           "kestrel-peer <torrent-or-directory> <settings-file>",
	Short:         "kestrel-peer downloads and seeds BitTorrent swarms.",
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0], args[1])
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		colorstring.Fprintln(os.Stderr, colorstring.Color(fmt.Sprintf("[red]kestrel-peer: %v[reset]", err)))
		os.Exit(1)
	}
}

func run(torrentPath, settingsPath string) error {
	cfg, err := settings.Load(settingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger, err := log.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	torrentFiles, err := discoverTorrents(torrentPath)
	if err != nil {
		return err
	}
	if len(torrentFiles) == 0 {
		return fmt.Errorf("no .torrent files found at %s", torrentPath)
	}

	store, err := fsstorage.New(cfg.DownloadsDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	stats := tally.NoopScope
	localPeerID := core.RandomPeerID()
	sink := newProgressSink(telemetry.NewLogSink(telemetry.NewTallySink(stats), logger))

	var jobs []driver.Job
	for _, tf := range torrentFiles {
		info, err := metainfo.Load(tf)
		if err != nil {
			logger.Infow("skipping unreadable torrent file", "path", tf, "error", err)
			continue
		}
		completion := store.ScanCompleted(info)
		sink.registerTorrent(info.InfoHash(), info.Name(), info.NumPieces(), completion.Popcount())
		jobs = append(jobs, driver.Job{Torrent: info, Completion: completion})
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no valid torrents found at %s", torrentPath)
	}

	registry := driver.NewRegistry(jobs)

	seeder := &seederserver.Server{
		LocalPeerID: localPeerID,
		Torrents:    registry,
		Storage:     store,
		Stats:       stats,
		Logger:      logger,
		Workers:     cfg.SeederWorkers,
	}
	go func() {
		addr := fmt.Sprintf(":%d", cfg.TCPPort)
		if err := seeder.ListenAndServe(addr); err != nil {
			logger.Infow("seeder server stopped", "error", err)
		}
	}()

	colorstring.Println(colorstring.Color(fmt.Sprintf("[cyan]kestrel-peer[reset] starting %d torrent(s), listening on :%d", len(jobs), cfg.TCPPort)))

	d := &driver.Driver{
		Parallelism: cfg.Parallelism,
		Logger:      logger,
		Factory: func(job driver.Job) *swarm.Coordinator {
			return &swarm.Coordinator{
				LocalPeerID: localPeerID,
				Torrent:     job.Torrent,
				Completion:  job.Completion,
				Tracker:     &trackerclient.TierClient{URLs: []string{job.Torrent.Announce()}, Logger: logger},
				Storage:     store,
				Telemetry:   sink,
				Logger:      logger,
				Stats:       stats,
				ListenPort:  cfg.TCPPort,
			}
		},
	}
	d.Run(jobs)

	return nil
}

// discoverTorrents resolves path to the list of .torrent files it names,
// walking a directory's immediate entries when path is a directory per
// spec.md §6's "torrent-or-directory" positional argument.
func discoverTorrents(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return filepath.Glob(filepath.Join(path, "*.torrent"))
}
