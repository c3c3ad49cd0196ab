package driver

import (
	"sync"

	"github.com/nyxworks/kestrel/bitfield"
	"github.com/nyxworks/kestrel/core"
)

// Registry is the shared, read-only-for-descriptors, shared-RW-for-bitfields
// view of every (torrent, bitfield) pair the process is hosting, per
// spec.md §4.9: "The seeder server runs in its own worker for the lifetime
// of the process, sharing the same list of (torrent, bitfield) pairs
// (read-only for descriptors, shared RW for bitfields)." It implements
// peer.Torrents so the seeder server can look torrents up by info hash.
type Registry struct {
	mu      sync.RWMutex
	entries map[core.InfoHash]Job
}

// NewRegistry builds a Registry from the initial job list.
func NewRegistry(jobs []Job) *Registry {
	r := &Registry{entries: make(map[core.InfoHash]Job, len(jobs))}
	for _, j := range jobs {
		r.entries[j.Torrent.InfoHash()] = j
	}
	return r
}

// Lookup implements peer.Torrents.
func (r *Registry) Lookup(infoHash core.InfoHash) (*core.TorrentInfo, *bitfield.Bitfield, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.entries[infoHash]
	if !ok {
		return nil, nil, false
	}
	return j.Torrent, j.Completion, true
}
