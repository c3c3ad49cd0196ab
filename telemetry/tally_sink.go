package telemetry

import (
	"github.com/uber-go/tally"

	"github.com/nyxworks/kestrel/core"
)

// TallySink reports events as tally counters/gauges, grounded on
// uber-kraken's pervasive use of tally.Scope.Tagged(...).Counter(...)/Gauge(...)
// throughout lib/torrent/scheduler.
type TallySink struct {
	scope tally.Scope
}

// NewTallySink wraps scope as a Sink.
func NewTallySink(scope tally.Scope) *TallySink {
	return &TallySink{scope: scope}
}

func (t *TallySink) tagged(infoHash core.InfoHash) tally.Scope {
	return t.scope.Tagged(map[string]string{"info_hash": infoHash.Hex()})
}

func (t *TallySink) NewTorrent(infoHash core.InfoHash, name string) {
	t.tagged(infoHash).Counter("new_torrent").Inc(1)
}

func (t *TallySink) DownloadingTorrent(infoHash core.InfoHash) {
	t.tagged(infoHash).Counter("downloading_torrent").Inc(1)
}

func (t *TallySink) TorrentDownloadFailed(infoHash core.InfoHash, err error) {
	t.tagged(infoHash).Counter("torrent_download_failed").Inc(1)
}

func (t *TallySink) NewConnection(infoHash core.InfoHash, peer core.PeerInfo) {
	t.tagged(infoHash).Counter("new_connection").Inc(1)
}

func (t *TallySink) ConnectionDropped(infoHash core.InfoHash, peer core.PeerInfo) {
	t.tagged(infoHash).Counter("connection_dropped").Inc(1)
}

func (t *TallySink) NewDownloadedPiece(infoHash core.InfoHash, index int) {
	t.tagged(infoHash).Counter("new_downloaded_piece").Inc(1)
}

func (t *TallySink) NumberOfPeers(infoHash core.InfoHash, n int) {
	t.tagged(infoHash).Gauge("number_of_peers").Update(float64(n))
}

func (t *TallySink) OurStatus(infoHash core.InfoHash, status Status) {
	t.tagged(infoHash).Tagged(map[string]string{"status": string(status)}).Counter("status").Inc(1)
}

var _ Sink = (*TallySink)(nil)
