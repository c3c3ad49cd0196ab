package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/nyxworks/kestrel/core"
)

const (
	protocolString = "BitTorrent protocol"
	// HandshakeLen is the fixed size of a handshake frame in bytes.
	HandshakeLen = 1 + 19 + 8 + 20 + 20
)

// ErrHandshakeInfoHashMismatch is returned when the remote peer's echoed
// info-hash does not match the locally expected one.
var ErrHandshakeInfoHashMismatch = errors.New("wire: handshake info hash mismatch")

// Handshake is the fixed 68-byte frame exchanged before any peer-wire
// message, grounded on lvbealr-BitTorrent/torrent/p2p.go's Handshake struct.
type Handshake struct {
	InfoHash core.InfoHash
	PeerID   core.PeerID
}

// Encode serializes h into the wire's 68-byte layout.
func (h Handshake) Encode() []byte {
	buf := make([]byte, HandshakeLen)
	buf[0] = 19
	copy(buf[1:20], protocolString)
	// buf[20:28] reserved, left zero.
	copy(buf[28:48], h.InfoHash.Bytes())
	copy(buf[48:68], h.PeerID.Bytes())
	return buf
}

// ReadHandshake reads and decodes a handshake frame from r.
func ReadHandshake(r io.Reader) (Handshake, error) {
	buf := make([]byte, HandshakeLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Handshake{}, fmt.Errorf("wire: read handshake: %w", err)
	}
	return decodeHandshake(buf)
}

func decodeHandshake(buf []byte) (Handshake, error) {
	if len(buf) != HandshakeLen {
		return Handshake{}, fmt.Errorf("wire: invalid handshake length %d", len(buf))
	}
	if buf[0] != 19 || !bytes.Equal(buf[1:20], []byte(protocolString)) {
		return Handshake{}, fmt.Errorf("wire: invalid protocol string %q", buf[1:20])
	}
	var hs Handshake
	ih, err := core.InfoHashFromBytes(buf[28:48])
	if err != nil {
		return Handshake{}, err
	}
	hs.InfoHash = ih
	pid, err := core.PeerIDFromBytes(buf[48:68])
	if err != nil {
		return Handshake{}, err
	}
	hs.PeerID = pid
	return hs, nil
}

// WriteHandshake encodes and writes h to w.
func WriteHandshake(w io.Writer, h Handshake) error {
	if _, err := w.Write(h.Encode()); err != nil {
		return fmt.Errorf("wire: write handshake: %w", err)
	}
	return nil
}

// Accept validates a received handshake against the expected info hash, per
// spec.md §4.1: accepted iff the echoed info-hash equals the local expected
// one; the peer id is recorded but never validated.
func Accept(received Handshake, expected core.InfoHash) error {
	if received.InfoHash != expected {
		return ErrHandshakeInfoHashMismatch
	}
	return nil
}
