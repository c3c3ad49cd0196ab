package driver

import (
	"sync"
	"testing"

	"github.com/nyxworks/kestrel/bitfield"
	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/internal/log"
	"github.com/nyxworks/kestrel/swarm"
	"github.com/nyxworks/kestrel/telemetry"
	"github.com/nyxworks/kestrel/trackerclient"
)

func TestDriverRunsEveryJobExactlyOnceWhenSuccessful(t *testing.T) {
	ih1, _ := core.NewInfoHashFromHex("000000000000000000000000000000000000000a")
	ih2, _ := core.NewInfoHashFromHex("000000000000000000000000000000000000000b")
	ti1, _ := core.NewTorrentInfo("a", "http://t/a", ih1, 1000, 0, nil)
	ti2, _ := core.NewTorrentInfo("b", "http://t/b", ih2, 1000, 0, nil)

	jobs := []Job{
		{Torrent: ti1, Completion: bitfield.New(0)},
		{Torrent: ti2, Completion: bitfield.New(0)},
	}

	var mu sync.Mutex
	seen := map[string]int{}

	d := &Driver{
		Parallelism: 2,
		Logger:      log.NewNop(),
		Factory: func(job Job) *swarm.Coordinator {
			mu.Lock()
			seen[job.Torrent.InfoHash().Hex()]++
			mu.Unlock()
			// A 0-length torrent has an already-complete bitfield, so the
			// coordinator succeeds immediately without any network I/O.
			return &swarm.Coordinator{
				Torrent:    job.Torrent,
				Completion: job.Completion,
				Tracker:    &trackerclient.TierClient{Logger: log.NewNop()},
				Telemetry:  telemetry.NopSink{},
				Logger:     log.NewNop(),
			}
		},
	}

	d.Run(jobs)

	if seen[ih1.Hex()] != 1 || seen[ih2.Hex()] != 1 {
		t.Fatalf("expected each job run exactly once, got %v", seen)
	}
}
