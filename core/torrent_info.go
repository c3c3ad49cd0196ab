package core

import "fmt"

// TorrentInfo is the immutable descriptor of a torrent, built once by the
// metainfo collaborator from a .torrent file and shared read-only thereafter.
type TorrentInfo struct {
	name        string
	announce    string
	infoHash    InfoHash
	pieceLength int64
	length      int64
	pieceHashes [][20]byte
}

// NewTorrentInfo constructs a TorrentInfo, validating the invariants from
// spec.md §3: piece count = ceil(length/pieceLength), and len(pieceHashes)
// must equal that count.
func NewTorrentInfo(name, announce string, infoHash InfoHash, pieceLength, length int64, pieceHashes [][20]byte) (*TorrentInfo, error) {
	if pieceLength <= 0 {
		return nil, fmt.Errorf("core: piece length must be positive, got %d", pieceLength)
	}
	if length < 0 {
		return nil, fmt.Errorf("core: length must be non-negative, got %d", length)
	}
	want := numPieces(length, pieceLength)
	if len(pieceHashes) != want {
		return nil, fmt.Errorf("core: expected %d piece hashes, got %d", want, len(pieceHashes))
	}
	return &TorrentInfo{
		name:        name,
		announce:    announce,
		infoHash:    infoHash,
		pieceLength: pieceLength,
		length:      length,
		pieceHashes: pieceHashes,
	}, nil
}

func numPieces(length, pieceLength int64) int {
	if length == 0 {
		return 0
	}
	return int((length + pieceLength - 1) / pieceLength)
}

// Name returns the torrent's display name.
func (t *TorrentInfo) Name() string { return t.name }

// Announce returns the tracker announce URL.
func (t *TorrentInfo) Announce() string { return t.announce }

// InfoHash returns the torrent's swarm identifier.
func (t *TorrentInfo) InfoHash() InfoHash { return t.infoHash }

// PieceLength returns the length of every piece except possibly the last.
func (t *TorrentInfo) PieceLength() int64 { return t.pieceLength }

// Length returns the total content length in bytes.
func (t *TorrentInfo) Length() int64 { return t.length }

// NumPieces returns ceil(Length/PieceLength).
func (t *TorrentInfo) NumPieces() int { return numPieces(t.length, t.pieceLength) }

// PieceHash returns the expected SHA-1 digest for piece i.
func (t *TorrentInfo) PieceHash(i int) [20]byte { return t.pieceHashes[i] }

// PieceLen returns the length of piece i: PieceLength for all but the last
// piece, and length - (count-1)*pieceLength for the last.
func (t *TorrentInfo) PieceLen(i int) int64 {
	n := t.NumPieces()
	if i < n-1 {
		return t.pieceLength
	}
	return t.length - int64(n-1)*t.pieceLength
}
