// Package telemetry implements the Sink collaborator from spec.md §6: a
// channel accepting lifecycle events about torrents, connections, and
// pieces. Send failures are logged and swallowed, never propagated to the
// caller, per spec.md's explicit contract.
package telemetry

import "github.com/nyxworks/kestrel/core"

// Status mirrors the high-level state of a torrent, reported via OurStatus.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusSeeding     Status = "seeding"
	StatusFailed      Status = "failed"
)

// Sink receives telemetry events. Implementations must not block the
// caller for long and must never panic or return an error; failures are
// logged internally and swallowed.
type Sink interface {
	NewTorrent(infoHash core.InfoHash, name string)
	DownloadingTorrent(infoHash core.InfoHash)
	TorrentDownloadFailed(infoHash core.InfoHash, err error)
	NewConnection(infoHash core.InfoHash, peer core.PeerInfo)
	ConnectionDropped(infoHash core.InfoHash, peer core.PeerInfo)
	NewDownloadedPiece(infoHash core.InfoHash, index int)
	NumberOfPeers(infoHash core.InfoHash, n int)
	OurStatus(infoHash core.InfoHash, status Status)
}
