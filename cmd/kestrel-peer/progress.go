package main

import (
	"fmt"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"

	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/telemetry"
)

// progressSink renders per-torrent download progress and colorized status
// lines to the terminal, then delegates to next, replacing
// lvbealr-BitTorrent's hand-rolled strings.Repeat bar and plain status
// prints with a maintained progress bar and ANSI color library.
type progressSink struct {
	next telemetry.Sink

	mu   sync.Mutex
	bars map[core.InfoHash]*progressbar.ProgressBar
}

func newProgressSink(next telemetry.Sink) *progressSink {
	return &progressSink{next: next, bars: make(map[core.InfoHash]*progressbar.ProgressBar)}
}

// registerTorrent creates the progress bar for a torrent before the swarm
// coordinator starts, seeded with whatever pieces are already on disk.
func (p *progressSink) registerTorrent(ih core.InfoHash, name string, totalPieces, alreadyDone int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bar := progressbar.NewOptions(totalPieces,
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
	bar.Set(alreadyDone)
	p.bars[ih] = bar
}

func short(ih core.InfoHash) string {
	h := ih.Hex()
	return h[:8]
}

func (p *progressSink) NewTorrent(ih core.InfoHash, name string) {
	colorstring.Println(colorstring.Color(fmt.Sprintf("[cyan]%s[reset] (%s) queued", name, short(ih))))
	p.next.NewTorrent(ih, name)
}

func (p *progressSink) DownloadingTorrent(ih core.InfoHash) {
	colorstring.Println(colorstring.Color(fmt.Sprintf("[yellow](%s) downloading[reset]", short(ih))))
	p.next.DownloadingTorrent(ih)
}

func (p *progressSink) TorrentDownloadFailed(ih core.InfoHash, err error) {
	colorstring.Println(colorstring.Color(fmt.Sprintf("[red](%s) failed: %v[reset]", short(ih), err)))
	p.next.TorrentDownloadFailed(ih, err)
}

func (p *progressSink) NewConnection(ih core.InfoHash, peer core.PeerInfo) {
	p.next.NewConnection(ih, peer)
}

func (p *progressSink) ConnectionDropped(ih core.InfoHash, peer core.PeerInfo) {
	p.next.ConnectionDropped(ih, peer)
}

func (p *progressSink) NewDownloadedPiece(ih core.InfoHash, index int) {
	p.mu.Lock()
	bar, ok := p.bars[ih]
	p.mu.Unlock()
	if ok {
		bar.Add(1)
	}
	p.next.NewDownloadedPiece(ih, index)
}

func (p *progressSink) NumberOfPeers(ih core.InfoHash, n int) {
	p.next.NumberOfPeers(ih, n)
}

func (p *progressSink) OurStatus(ih core.InfoHash, status telemetry.Status) {
	if status == telemetry.StatusSeeding {
		colorstring.Println(colorstring.Color(fmt.Sprintf("[green](%s) complete, now seeding[reset]", short(ih))))
	}
	p.next.OurStatus(ih, status)
}

var _ telemetry.Sink = (*progressSink)(nil)
