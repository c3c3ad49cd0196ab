// Package swarm implements the per-torrent Swarm Coordinator described in
// spec.md §4.8, grounded on
// original_source/bittorrent_client/src/bt_client/client.rs for the
// started/downloading/completed status transitions this expansion wires
// through telemetry, and on uber-kraken's Scheduler for the
// spawn-workers/consume-events/join shape.
package swarm

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/nyxworks/kestrel/bitfield"
	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/peer"
	"github.com/nyxworks/kestrel/piece"
	"github.com/nyxworks/kestrel/storage/fsstorage"
	"github.com/nyxworks/kestrel/telemetry"
	"github.com/nyxworks/kestrel/trackerclient"
)

// ErrDownloadFailed is returned when the coordinator exhausts all sessions
// without completing the torrent, per spec.md §4.8 step 8.
var ErrDownloadFailed = fmt.Errorf("swarm: download did not complete")

// Coordinator drives one torrent's swarm to completion, per spec.md §4.8's
// numbered procedure.
type Coordinator struct {
	LocalPeerID core.PeerID
	Torrent     *core.TorrentInfo
	Completion  *bitfield.Bitfield
	Tracker     *trackerclient.TierClient
	Storage     *fsstorage.Storage
	Telemetry   telemetry.Sink
	Logger      *zap.SugaredLogger
	Stats       tally.Scope
	ListenPort  int
}

// downloadedBytes reports exact byte counts downloaded so far, accounting
// for the shorter final piece, matching spec.md §4.7's `left` definition.
func (c *Coordinator) downloadedBytes() int64 {
	var n int64
	for i := 0; i < c.Torrent.NumPieces(); i++ {
		if c.Completion.Test(i) {
			n += c.Torrent.PieceLen(i)
		}
	}
	return n
}

// Run executes the coordinator's procedure to completion or failure.
func (c *Coordinator) Run() error {
	c.Telemetry.NewTorrent(c.Torrent.InfoHash(), c.Torrent.Name())

	if c.Completion.Complete() {
		c.announce(trackerclient.EventCompleted)
		c.Telemetry.OurStatus(c.Torrent.InfoHash(), telemetry.StatusSeeding)
		return nil
	}

	c.Telemetry.DownloadingTorrent(c.Torrent.InfoHash())
	c.Telemetry.OurStatus(c.Torrent.InfoHash(), telemetry.StatusDownloading)

	resp, err := c.announce(trackerclient.EventStarted)
	if err != nil {
		c.Telemetry.TorrentDownloadFailed(c.Torrent.InfoHash(), err)
		return fmt.Errorf("swarm: initial announce: %w", err)
	}
	c.Telemetry.NumberOfPeers(c.Torrent.InfoHash(), len(resp.Peers))

	queue := piece.NewFromTorrent(c.Torrent, c.Completion.Test)

	events := make(chan peer.Event, 64)
	finished := atomic.NewBool(false)

	var wg sync.WaitGroup
	for _, p := range resp.Peers {
		wg.Add(1)
		go func(remote core.PeerInfo) {
			defer wg.Done()
			c.runLeecher(remote, queue, events, finished)
		}(p)
	}

	activeConns := 0
	downloadedPieces := c.Completion.Popcount()
	totalPieces := c.Torrent.NumPieces()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

consume:
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case peer.NewConnection:
				activeConns++
				c.Telemetry.NewConnection(ev.Torrent, ev.Peer)
				c.Logger.Infow("leecher connected", "peer", ev.Peer.PeerID, "info_hash", ev.Torrent)
			case peer.NewDownloadedPiece:
				c.Completion.Set(ev.Piece.Index)
				downloadedPieces++
				c.Telemetry.NewDownloadedPiece(ev.Torrent, ev.Piece.Index)
				c.Logger.Infow("piece downloaded", "index", ev.Piece.Index, "peer", ev.Peer.PeerID)
				if c.Completion.Complete() {
					finished.Store(true)
				}
			case peer.ConnectionDropped:
				activeConns--
				c.Telemetry.ConnectionDropped(ev.Torrent, ev.Peer)
				c.Logger.Infow("leecher disconnected", "peer", ev.Peer.PeerID)
			}
			if activeConns <= 0 || downloadedPieces >= totalPieces {
				break consume
			}
		case <-done:
			break consume
		}
	}

	finished.Store(true)
	wg.Wait()

	if !c.Completion.Complete() {
		c.Telemetry.TorrentDownloadFailed(c.Torrent.InfoHash(), ErrDownloadFailed)
		return ErrDownloadFailed
	}

	if err := c.Storage.Assemble(c.Torrent.InfoHash(), c.Torrent.Name(), totalPieces, c.Torrent.PieceLength()); err != nil {
		return fmt.Errorf("swarm: assemble: %w", err)
	}
	c.announce(trackerclient.EventCompleted)
	c.Telemetry.OurStatus(c.Torrent.InfoHash(), telemetry.StatusSeeding)
	return nil
}

func (c *Coordinator) runLeecher(remote core.PeerInfo, queue *piece.Queue, events chan<- peer.Event, finished *atomic.Bool) {
	nc, err := net.DialTimeout("tcp", remote.Endpoint(), 10*time.Second)
	if err != nil {
		c.Logger.Infow("dial failed", "peer", remote.PeerID, "error", err)
		return
	}
	l := &peer.Leecher{
		LocalPeerID: c.LocalPeerID,
		Torrent:     c.Torrent,
		Remote:      remote,
		Queue:       queue,
		Completion:  c.Completion,
		Finished:    finished,
		Events:      events,
		Storage:     c.Storage,
		Stats:       c.Stats,
		Logger:      c.Logger,
	}
	l.Run(nc)
}

func (c *Coordinator) announce(event trackerclient.Event) (*trackerclient.Response, error) {
	req := trackerclient.Request{
		InfoHash:   c.Torrent.InfoHash(),
		PeerID:     c.LocalPeerID,
		Port:       c.ListenPort,
		Uploaded:   0,
		Downloaded: c.downloadedBytes(),
		Left:       c.Torrent.Length() - c.downloadedBytes(),
		Event:      event,
	}
	resp, err := c.Tracker.Announce(req)
	if err != nil {
		c.Logger.Infow("announce failed", "event", event, "error", err)
		return nil, err
	}
	return resp, nil
}
