package telemetry

import (
	"go.uber.org/zap"

	"github.com/nyxworks/kestrel/core"
)

// LogSink wraps another Sink and additionally logs every event at Info
// level, grounded on original_source's logger_recv_channel.rs — a dedicated
// logging channel siphoning off telemetry-style events.
type LogSink struct {
	next   Sink
	logger *zap.SugaredLogger
}

// NewLogSink wraps next, logging through logger.
func NewLogSink(next Sink, logger *zap.SugaredLogger) *LogSink {
	return &LogSink{next: next, logger: logger}
}

func (l *LogSink) NewTorrent(infoHash core.InfoHash, name string) {
	l.logger.Infow("new torrent", "info_hash", infoHash, "name", name)
	l.next.NewTorrent(infoHash, name)
}

func (l *LogSink) DownloadingTorrent(infoHash core.InfoHash) {
	l.logger.Infow("downloading torrent", "info_hash", infoHash)
	l.next.DownloadingTorrent(infoHash)
}

func (l *LogSink) TorrentDownloadFailed(infoHash core.InfoHash, err error) {
	l.logger.Infow("torrent download failed", "info_hash", infoHash, "error", err)
	l.next.TorrentDownloadFailed(infoHash, err)
}

func (l *LogSink) NewConnection(infoHash core.InfoHash, peer core.PeerInfo) {
	l.logger.Infow("new connection", "info_hash", infoHash, "peer", peer.PeerID)
	l.next.NewConnection(infoHash, peer)
}

func (l *LogSink) ConnectionDropped(infoHash core.InfoHash, peer core.PeerInfo) {
	l.logger.Infow("connection dropped", "info_hash", infoHash, "peer", peer.PeerID)
	l.next.ConnectionDropped(infoHash, peer)
}

func (l *LogSink) NewDownloadedPiece(infoHash core.InfoHash, index int) {
	l.logger.Infow("piece downloaded", "info_hash", infoHash, "index", index)
	l.next.NewDownloadedPiece(infoHash, index)
}

func (l *LogSink) NumberOfPeers(infoHash core.InfoHash, n int) {
	l.logger.Infow("peer count", "info_hash", infoHash, "count", n)
	l.next.NumberOfPeers(infoHash, n)
}

func (l *LogSink) OurStatus(infoHash core.InfoHash, status Status) {
	l.logger.Infow("status", "info_hash", infoHash, "status", status)
	l.next.OurStatus(infoHash, status)
}

var _ Sink = (*LogSink)(nil)
