// Package trackerclient implements the HTTP tracker announce protocol
// described in spec.md §4.7: raw-socket request construction with a custom
// URL encoder, transport over plain TCP or TLS depending on scheme, and
// bencode-decoded replies, grounded on lvbealr-BitTorrent/torrent/tracker.go
// for the announce parameter set and on jackpal/bencode-go for decoding.
package trackerclient

import (
	"fmt"
	"strings"
)

// urlEncode percent-encodes b, preserving the exact charset spec.md §4.7
// mandates — [A-Za-z0-9.-_~] — and escaping every other byte as %HH in
// uppercase hex.
func urlEncode(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if isUnreserved(c) {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '-' || c == '_' || c == '~':
		return true
	default:
		return false
	}
}
