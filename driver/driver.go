// Package driver implements the multi-torrent driver described in
// spec.md §4.9: a bounded pool of workers pulling (torrent, bitfield) pairs
// off a shared list and running the Swarm Coordinator on each, grounded on
// uber-kraken's Scheduler worker-pool idiom (bounded goroutines draining a
// shared queue under a mutex).
package driver

import (
	"sync"

	"go.uber.org/zap"

	"github.com/nyxworks/kestrel/bitfield"
	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/swarm"
)

// Job pairs a torrent descriptor with its shared completion bitfield, the
// unit of work the driver's list holds.
type Job struct {
	Torrent    *core.TorrentInfo
	Completion *bitfield.Bitfield
}

// CoordinatorFactory builds the Coordinator for one job. Supplied by the
// caller so the driver stays decoupled from tracker/storage/telemetry
// wiring specifics.
type CoordinatorFactory func(job Job) *swarm.Coordinator

// list is the driver's shared mutable job queue, protected by a mutex per
// spec.md §8's "the torrents list uses a mutex" concurrency note.
type list struct {
	mu   sync.Mutex
	jobs []Job
}

func (l *list) pop() (Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.jobs) == 0 {
		return Job{}, false
	}
	j := l.jobs[0]
	l.jobs = l.jobs[1:]
	return j, true
}

func (l *list) pushBack(j Job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs = append(l.jobs, j)
}

// Driver runs up to Parallelism torrents concurrently, per spec.md §4.9.
type Driver struct {
	Parallelism int
	Factory     CoordinatorFactory
	Logger      *zap.SugaredLogger
}

// Run spawns Parallelism workers against jobs and blocks until every job
// has either completed or been retried to exhaustion of the queue (a job
// that keeps failing is pushed back and may be retried indefinitely by
// whichever worker next pops it, matching spec.md §4.9's retry semantics).
func (d *Driver) Run(jobs []Job) {
	l := &list{jobs: jobs}

	var wg sync.WaitGroup
	for i := 0; i < d.Parallelism; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.work(worker, l)
		}(i)
	}
	wg.Wait()
}

func (d *Driver) work(worker int, l *list) {
	for {
		job, ok := l.pop()
		if !ok {
			return
		}
		c := d.Factory(job)
		if err := c.Run(); err != nil {
			d.Logger.Infow("coordinator failed, requeuing", "worker", worker, "info_hash", job.Torrent.InfoHash(), "error", err)
			l.pushBack(job)
		}
	}
}
