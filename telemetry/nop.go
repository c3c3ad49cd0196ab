package telemetry

import "github.com/nyxworks/kestrel/core"

// NopSink discards every event. Used in tests and wherever telemetry is not
// configured.
type NopSink struct{}

func (NopSink) NewTorrent(core.InfoHash, string)                {}
func (NopSink) DownloadingTorrent(core.InfoHash)                {}
func (NopSink) TorrentDownloadFailed(core.InfoHash, error)      {}
func (NopSink) NewConnection(core.InfoHash, core.PeerInfo)      {}
func (NopSink) ConnectionDropped(core.InfoHash, core.PeerInfo)  {}
func (NopSink) NewDownloadedPiece(core.InfoHash, int)           {}
func (NopSink) NumberOfPeers(core.InfoHash, int)                {}
func (NopSink) OurStatus(core.InfoHash, Status)                 {}

var _ Sink = NopSink{}
