// Package trackerservice implements the tracker HTTP server from
// spec.md §4.10: a JSON-file-backed peer/torrent registry behind a bounded
// worker pool, grounded on uber-kraken/tracker/peerstore/local.go's
// RWMutex-guarded in-memory store (adapted here to a single-writer-mutex,
// full-rewrite-per-request JSON document per spec.md's explicit design) and
// on original_source/bittorrent_tracker/src/data/hosted_peer.rs for the
// week/three-day peer lifecycle sweep.
package trackerservice

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
)

// Lifecycle constants, per spec.md §4.10 step 1 and
// original_source/bittorrent_tracker/src/constants.rs's A_WEEK_IN_SECS /
// THREE_DAYS_IN_SECS.
const (
	disconnectAfter = 7 * 24 * time.Hour
	removeAfter     = 3 * 24 * time.Hour
)

// Peer is one hosted peer's tracker-side record.
type Peer struct {
	PeerID       string     `json:"peer_id"`
	IP           string     `json:"ip"`
	Port         int        `json:"port"`
	Connection   time.Time  `json:"connection"`
	Disconnected *time.Time `json:"disconnected,omitempty"`
	Completed    bool       `json:"completed"`
}

func (p *Peer) key() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// TorrentEntry holds the counters and peer set for one info hash.
type TorrentEntry struct {
	Seeders  int              `json:"seeders"`
	Leechers int              `json:"leechers"`
	Peers    map[string]*Peer `json:"peers"`
}

// document is the on-disk JSON shape: info hash hex -> TorrentEntry.
type document map[string]*TorrentEntry

// Registry is the tracker's single source of truth. Every mutating
// operation reads, mutates, and rewrites the backing JSON file under an
// exclusive lock, per spec.md §4.10: "The on-disk JSON document is the
// single source of truth; each request reads, mutates, rewrites."
type Registry struct {
	mu   sync.Mutex
	path string
	clk  clock.Clock
}

// NewRegistry returns a Registry backed by the JSON file at path, creating
// an empty document if it does not yet exist.
func NewRegistry(path string, clk clock.Clock) (*Registry, error) {
	if clk == nil {
		clk = clock.New()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDocument(path, document{}); err != nil {
			return nil, err
		}
	}
	return &Registry{path: path, clk: clk}, nil
}

func readDocument(path string) (document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trackerservice: read registry: %w", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("trackerservice: decode registry: %w", err)
	}
	if doc == nil {
		doc = document{}
	}
	return doc, nil
}

func writeDocument(path string, doc document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("trackerservice: encode registry: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("trackerservice: write registry: %w", err)
	}
	return os.Rename(tmp, path)
}

// AnnounceParams are the parameters of one /announce request, per
// spec.md §4.10.
type AnnounceParams struct {
	InfoHash string
	PeerID   string
	IP       string
	Port     int
	Left     int64
	Event    string // "started", "stopped", "completed", or ""
}

// AnnounceResult is what the handler bencodes back to the client.
type AnnounceResult struct {
	Complete   int
	Incomplete int
	Interval   int
	Peers      []Peer
}

// Announce applies one announce request to the registry and returns the
// reply, per spec.md §4.10 steps 1-4.
func (r *Registry) Announce(p AnnounceParams) (*AnnounceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := readDocument(r.path)
	if err != nil {
		return nil, err
	}

	entry, ok := doc[p.InfoHash]
	if !ok {
		entry = &TorrentEntry{Peers: map[string]*Peer{}}
		doc[p.InfoHash] = entry
	}

	r.sweep(entry)

	key := fmt.Sprintf("%s:%d", p.IP, p.Port)

	if p.Event == "stopped" {
		if existing, ok := entry.Peers[key]; ok {
			if existing.Completed {
				entry.Seeders--
			} else {
				entry.Leechers--
			}
			delete(entry.Peers, key)
		}
	} else {
		completed := p.Event == "completed" || p.Left == 0
		existing, ok := entry.Peers[key]
		if !ok {
			peer := &Peer{
				PeerID:     p.PeerID,
				IP:         p.IP,
				Port:       p.Port,
				Connection: r.clk.Now(),
				Completed:  completed,
			}
			entry.Peers[key] = peer
			if completed {
				entry.Seeders++
			} else {
				entry.Leechers++
			}
		} else {
			existing.PeerID = p.PeerID
			existing.Disconnected = nil
			if completed && !existing.Completed {
				existing.Completed = true
				entry.Leechers--
				entry.Seeders++
			}
		}
	}

	if err := writeDocument(r.path, doc); err != nil {
		return nil, err
	}

	peers := make([]Peer, 0, len(entry.Peers))
	for _, peer := range entry.Peers {
		if peer.Disconnected == nil {
			peers = append(peers, *peer)
		}
	}

	return &AnnounceResult{
		Complete:   entry.Seeders,
		Incomplete: entry.Leechers,
		Interval:   1800,
		Peers:      peers,
	}, nil
}

// sweep implements spec.md §4.10 step 1: connections older than a week are
// marked disconnected; disconnections older than three more days are
// removed, adjusting counters.
func (r *Registry) sweep(entry *TorrentEntry) {
	now := r.clk.Now()
	for key, peer := range entry.Peers {
		if peer.Disconnected == nil && now.Sub(peer.Connection) >= disconnectAfter {
			disconnectAt := peer.Connection.Add(disconnectAfter)
			peer.Disconnected = &disconnectAt
		}
		if peer.Disconnected != nil && now.Sub(*peer.Disconnected) >= removeAfter {
			if peer.Completed {
				entry.Seeders--
			} else {
				entry.Leechers--
			}
			delete(entry.Peers, key)
		}
	}
}

// RegistrySnapshot is a point-in-time aggregate over every tracked torrent,
// reported at /data.json for the GUI's live chart.
type RegistrySnapshot struct {
	Torrents int `json:"torrents"`
	Seeders  int `json:"seeders"`
	Leechers int `json:"leechers"`
}

// Snapshot aggregates torrent/seeder/leecher counts across the document.
func (r *Registry) Snapshot() (RegistrySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := readDocument(r.path)
	if err != nil {
		return RegistrySnapshot{}, err
	}

	snap := RegistrySnapshot{Torrents: len(doc)}
	for _, entry := range doc {
		snap.Seeders += entry.Seeders
		snap.Leechers += entry.Leechers
	}
	return snap, nil
}
