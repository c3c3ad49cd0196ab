// Package piece implements per-piece download state and the per-torrent
// fetch queue described in spec.md §4.3/§4.4, grounded on
// lvbealr-BitTorrent/torrent/p2p.go's piece bookkeeping (sequential
// in-order block requests, SHA-1 verification) but reshaped around the
// core.TorrentInfo descriptor.
package piece

import (
	"crypto/sha1"

	"github.com/nyxworks/kestrel/wire"
)

// MaxBlockLength is the largest single Request/Piece block, mirrored from
// wire.MaxBlockLength.
const MaxBlockLength = wire.MaxBlockLength

// Piece tracks one piece's download progress. Index, Total, and Expected are
// immutable once constructed; Requested, Received, and Payload mutate as
// blocks are requested and received. A Piece is owned exclusively by at most
// one peer session at a time, per spec.md's concurrency model.
type Piece struct {
	Index    int
	Total    int64
	Expected [20]byte

	Requested int64
	Received  int64
	Payload   []byte
}

// New constructs a Piece ready for its first request.
func New(index int, total int64, expected [20]byte) *Piece {
	return &Piece{
		Index:    index,
		Total:    total,
		Expected: expected,
		Payload:  make([]byte, 0, total),
	}
}

// NextBlockLength returns the length of the next block to request:
// min(MaxBlockLength, total-requested). Returns 0 once fully requested.
func (p *Piece) NextBlockLength() int64 {
	remaining := p.Total - p.Requested
	if remaining <= 0 {
		return 0
	}
	if remaining > MaxBlockLength {
		return MaxBlockLength
	}
	return remaining
}

// MarkRequested advances Requested by n, recording that a block of that
// length has been asked for. The caller is responsible for issuing the
// Request at begin == p.Requested (pre-advance).
func (p *Piece) MarkRequested(n int64) {
	p.Requested += n
}

// AcceptBlock appends block to the payload iff begin matches the next
// expected in-order offset (p.Received). Returns false if begin is stale or
// out of order, in which case the caller should ignore the block per
// spec.md §4.5's in-order downloading invariant.
func (p *Piece) AcceptBlock(begin uint32, block []byte) bool {
	if int64(begin) != p.Received {
		return false
	}
	p.Payload = append(p.Payload, block...)
	p.Received += int64(len(block))
	return true
}

// Complete reports whether every byte of the piece has been received.
func (p *Piece) Complete() bool {
	return p.Received >= p.Total
}

// Valid reports whether the accumulated payload hashes to Expected.
func (p *Piece) Valid() bool {
	if int64(len(p.Payload)) != p.Total {
		return false
	}
	return sha1.Sum(p.Payload) == p.Expected
}

// Reset clears Requested, Received, and Payload, returning the Piece to its
// just-enqueued state. Used when a session fails or a hash check fails and
// the piece must be requeued, per spec.md §4.5/§7's error table.
func (p *Piece) Reset() {
	p.Requested = 0
	p.Received = 0
	p.Payload = p.Payload[:0]
}
