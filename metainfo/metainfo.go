// Package metainfo implements the metainfo collaborator spec.md §6 treats
// as external: decoding a .torrent file into a core.TorrentInfo. Grounded
// on lvbealr-BitTorrent/torrent/parse.go (extractInfoBytes plus
// bencode.Unmarshal of the top-level dict) and torrent.go's struct shape,
// adapted to single-file torrents only (multi-file layout is out of scope
// per spec.md §3's single "length" field on the Torrent descriptor).
package metainfo

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"os"
	"strconv"

	"github.com/jackpal/bencode-go"

	"github.com/nyxworks/kestrel/core"
)

// rawFile mirrors a single-file .torrent's bencoded top-level dict.
type rawFile struct {
	Announce string  `bencode:"announce"`
	Info     rawInfo `bencode:"info"`
}

type rawInfo struct {
	PieceLength int64  `bencode:"piece length"`
	Pieces      string `bencode:"pieces"`
	Name        string `bencode:"name"`
	Length      int64  `bencode:"length"`
}

// Load decodes the .torrent file at path into a core.TorrentInfo, computing
// the info-hash from the raw bencoded info dictionary (not a re-marshal of
// the decoded struct, to be byte-for-byte faithful to whatever extra keys
// the original file carried).
func Load(path string) (*core.TorrentInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metainfo: read %q: %w", path, err)
	}

	var raw rawFile
	if err := bencode.Unmarshal(bytes.NewReader(data), &raw); err != nil {
		return nil, fmt.Errorf("metainfo: decode %q: %w", path, err)
	}

	infoBytes, err := extractInfoBytes(data)
	if err != nil {
		return nil, fmt.Errorf("metainfo: extract info dict: %w", err)
	}
	infoHash := core.NewInfoHashFromBencodedInfo(infoBytes)

	pieceHashes, err := splitPieceHashes(raw.Info.Pieces)
	if err != nil {
		return nil, fmt.Errorf("metainfo: %w", err)
	}

	return core.NewTorrentInfo(raw.Info.Name, raw.Announce, infoHash, raw.Info.PieceLength, raw.Info.Length, pieceHashes)
}

// splitPieceHashes slices the concatenated 20-byte SHA-1 digests in pieces
// into individual hashes, validating the total length is a multiple of 20
// per spec.md §3's Torrent descriptor invariant.
func splitPieceHashes(pieces string) ([][20]byte, error) {
	if len(pieces)%20 != 0 {
		return nil, fmt.Errorf("pieces string length %d not a multiple of 20", len(pieces))
	}
	n := len(pieces) / 20
	hashes := make([][20]byte, n)
	for i := 0; i < n; i++ {
		copy(hashes[i][:], pieces[i*20:(i+1)*20])
	}
	return hashes, nil
}

// extractInfoBytes locates the raw bencoded bytes of the "info" value
// within data, grounded on lvbealr-BitTorrent/torrent/parse.go's
// extractInfoBytes.
func extractInfoBytes(data []byte) ([]byte, error) {
	idx := bytes.Index(data, []byte("4:info"))
	if idx < 0 {
		return nil, fmt.Errorf("no \"4:info\" key found")
	}
	start := idx + len("4:info")

	depth := 0
	for i := start; i < len(data); i++ {
		switch b := data[i]; b {
		case 'd', 'l':
			depth++
		case 'e':
			depth--
			if depth == 0 {
				return data[start : i+1], nil
			}
		case 'i':
			j := i + 1
			for ; j < len(data) && data[j] != 'e'; j++ {
			}
			if j >= len(data) {
				return nil, fmt.Errorf("unterminated integer at %d", i)
			}
			i = j
		default:
			if b >= '0' && b <= '9' {
				j := i
				for ; j < len(data) && data[j] >= '0' && data[j] <= '9'; j++ {
				}
				if j < len(data) && data[j] == ':' {
					length, err := strconv.Atoi(string(data[i:j]))
					if err != nil {
						return nil, fmt.Errorf("invalid string length at %d-%d", i, j)
					}
					i = j + 1 + length - 1
				}
			}
		}
	}
	return nil, fmt.Errorf("unterminated info dict")
}

// SHA1 hashes the given bytes, exposed for callers (e.g. the .torrent
// creation tool) that need to compute piece hashes without constructing a
// full TorrentInfo.
func SHA1(b []byte) [20]byte {
	return sha1.Sum(b)
}
