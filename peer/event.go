// Package peer implements the leecher and seeder session state machines
// described in spec.md §4.5/§4.6, grounded on lvbealr-BitTorrent/torrent/p2p.go
// for the work-loop shape and on uber-kraken's Conn/events split for the
// coordinator-facing event channel pattern.
package peer

import (
	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/piece"
)

// EventKind distinguishes the events a session reports to its coordinator.
type EventKind int

const (
	// NewConnection is emitted once a leecher session completes its
	// handshake and is about to enter its work loop.
	NewConnection EventKind = iota
	// NewDownloadedPiece is emitted after a piece has been verified and
	// durably written to storage.
	NewDownloadedPiece
	// ConnectionDropped is emitted when a session terminates, for any
	// reason, fatal or not.
	ConnectionDropped
)

// Event is the message type sessions send on their shared coordinator
// channel, per spec.md §4.8's event-handling procedure.
type Event struct {
	Kind     EventKind
	Torrent  core.InfoHash
	Peer     core.PeerInfo
	Piece    *piece.Piece // set only for NewDownloadedPiece
}
