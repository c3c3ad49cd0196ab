// Package core defines the identifiers and descriptors shared across the
// peer-wire engine, the tracker client, and the tracker service.
package core

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidPeerIDLength is returned when a string peer id does not decode
// into exactly 20 bytes.
var ErrInvalidPeerIDLength = errors.New("core: peer id has invalid length")

// PeerID is the 20-byte identifier a peer presents during a handshake and an
// announce. It may be zero-valued when supplied by a collaborator that does
// not track one.
type PeerID [20]byte

// NewPeerID parses a PeerID from a hexadecimal string encoding exactly 20
// bytes.
func NewPeerID(s string) (PeerID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PeerID{}, fmt.Errorf("core: decode peer id: %w", err)
	}
	if len(b) != 20 {
		return PeerID{}, ErrInvalidPeerIDLength
	}
	var p PeerID
	copy(p[:], b)
	return p, nil
}

// PeerIDFromBytes copies b (which must be exactly 20 bytes) into a PeerID.
func PeerIDFromBytes(b []byte) (PeerID, error) {
	if len(b) != 20 {
		return PeerID{}, ErrInvalidPeerIDLength
	}
	var p PeerID
	copy(p[:], b)
	return p, nil
}

// RandomPeerID generates a new peer id in Azureus-style notation: an
// 8-byte client tag followed by random bytes sourced from a UUID, so two
// processes started in the same instant still diverge.
func RandomPeerID() PeerID {
	const tag = "-KT0001-"
	u := uuid.New()
	var p PeerID
	copy(p[:], tag)
	copy(p[len(tag):], u[:20-len(tag)])
	return p
}

// IsZero reports whether p is the zero-valued peer id, as returned by
// collaborators that do not track one (e.g. an inbound seeder connection
// before its handshake is validated).
func (p PeerID) IsZero() bool {
	return p == PeerID{}
}

// Bytes returns the raw 20 bytes of p.
func (p PeerID) Bytes() []byte {
	return p[:]
}

// String encodes p in hexadecimal notation.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// Equal reports whether p and o are the same peer id.
func (p PeerID) Equal(o PeerID) bool {
	return bytes.Equal(p[:], o[:])
}
