package peer

import (
	"fmt"
	"net"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/nyxworks/kestrel/bitfield"
	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/piece"
	"github.com/nyxworks/kestrel/wire"
)

// keepAliveInterval bounds how long a leecher session will stay silent on
// the wire before sending a KeepAlive, per spec.md §4.5's "periodically
// send KeepAlive" requirement.
const keepAliveInterval = 2 * time.Second

// handshakeTimeout bounds the initial handshake exchange, independent of
// the session's steady-state idle timeout.
const handshakeTimeout = 10 * time.Second

// Leecher drives one outbound peer session per spec.md §4.5: it drains
// pieces from the shared Queue, downloads and verifies each, writes the
// payload via Storage, and reports progress on Events.
type Leecher struct {
	LocalPeerID core.PeerID
	Torrent     *core.TorrentInfo
	Remote      core.PeerInfo
	Queue       *piece.Queue
	Completion  *bitfield.Bitfield
	Finished    *atomic.Bool
	Events      chan<- Event
	Storage     Storage
	Stats       tally.Scope
	Logger      *zap.SugaredLogger

	amChoked     bool
	amInterested bool
	peerBitfield *bitfield.Bitfield
	current      *piece.Piece
}

// Run performs the handshake exchange and then the work loop against nc,
// blocking until the session terminates. nc is closed before Run returns.
func (l *Leecher) Run(nc net.Conn) {
	defer nc.Close()

	l.amChoked = true
	l.peerBitfield = bitfield.New(l.Torrent.NumPieces())

	if err := l.handshake(nc); err != nil {
		l.Logger.Infow("leecher handshake failed", "remote_peer", l.Remote.PeerID, "error", err)
		l.emitDropped()
		return
	}

	l.Events <- Event{Kind: NewConnection, Torrent: l.Torrent.InfoHash(), Peer: l.Remote}

	c, err := wire.New(nc, l.Remote.PeerID, l.Torrent.InfoHash(), wire.LeecherRole, l.Stats, l.Logger)
	if err != nil {
		l.Logger.Infow("leecher conn setup failed", "remote_peer", l.Remote.PeerID, "error", err)
		l.emitDropped()
		return
	}
	c.Start()
	defer c.Close()

	l.workLoop(c)
}

func (l *Leecher) handshake(nc net.Conn) error {
	if err := nc.SetDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return fmt.Errorf("set handshake deadline: %w", err)
	}
	local := wire.Handshake{InfoHash: l.Torrent.InfoHash(), PeerID: l.LocalPeerID}
	if err := wire.WriteHandshake(nc, local); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}
	remote, err := wire.ReadHandshake(nc)
	if err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}
	if err := wire.Accept(remote, l.Torrent.InfoHash()); err != nil {
		return err
	}
	return nil
}

// workLoop is the body of spec.md §4.5 step 3/4.
func (l *Leecher) workLoop(c *wire.Conn) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		if l.current == nil {
			p, ok := l.Queue.PopFront()
			if ok {
				l.current = p
			} else if l.shouldExitIdle() {
				l.dropCurrentAndExit()
				return
			} else {
				select {
				case <-time.After(10 * time.Millisecond):
					continue
				case msg, open := <-c.Receiver():
					if !open {
						l.dropCurrentAndExit()
						return
					}
					l.handleMessage(c, msg)
					continue
				}
			}
		}

		if !l.amInterested {
			if err := c.Send(wire.InterestedMessage()); err != nil {
				l.dropCurrentAndExit()
				return
			}
			l.amInterested = true
		}

		if !l.amChoked && l.current != nil {
			for {
				n := l.current.NextBlockLength()
				if n == 0 {
					break
				}
				begin := l.current.Requested
				if err := c.Send(wire.RequestMessage(uint32(l.current.Index), uint32(begin), uint32(n))); err != nil {
					l.dropCurrentAndExit()
					return
				}
				l.current.MarkRequested(n)
			}
		}

		select {
		case <-ticker.C:
			_ = c.Send(wire.KeepAliveMessage())
		case msg, open := <-c.Receiver():
			if !open {
				l.dropCurrentAndExit()
				return
			}
			if l.handleMessage(c, msg) {
				return
			}
		}
	}
}

// shouldExitIdle implements spec.md §4.5 step 3's exit condition when the
// queue is empty: the torrent is complete, or the remote peer has nothing
// we still need.
func (l *Leecher) shouldExitIdle() bool {
	if l.Completion.Complete() || l.Finished.Load() {
		return true
	}
	missing := l.Completion.Complement()
	return !l.peerBitfield.IntersectNonEmpty(missing)
}

// handleMessage applies one inbound frame per spec.md §4.5's message table.
// Returns true if the session should terminate.
func (l *Leecher) handleMessage(c *wire.Conn, msg *wire.Message) bool {
	if msg.IsKeepAlive {
		return false
	}
	switch msg.Type {
	case wire.Choke:
		l.amChoked = true
		l.dropCurrentAndExit()
		return true
	case wire.Unchoke:
		l.amChoked = false
	case wire.Have:
		l.peerBitfield.Set(int(msg.Index))
	case wire.BitfieldMsg:
		l.peerBitfield.MergeFrom(bitfield.FromBytes(msg.Bitfield, l.peerBitfield.Len()))
	case wire.Piece:
		if l.current != nil && int(msg.Index) == l.current.Index && msg.Begin == uint32(l.current.Received) {
			l.current.AcceptBlock(msg.Begin, msg.Block)
			l.maybeFinishPiece()
		}
	default:
		// Cancel, Interested, NotInterested, Request: not meaningful to a
		// leecher session, ignored.
	}
	return false
}

// maybeFinishPiece handles a piece that has just become fully received.
func (l *Leecher) maybeFinishPiece() {
	if l.current == nil || !l.current.Complete() {
		return
	}
	p := l.current
	if !p.Valid() {
		// Corrupt block from peer; requeue without dropping the connection.
		l.Queue.PushBack(p)
		l.current = nil
		return
	}
	if err := l.Storage.WritePiece(l.Torrent.InfoHash(), p.Index, p.Payload); err != nil {
		l.Logger.Infow("storage write failed, requeuing piece", "index", p.Index, "error", err)
		l.Queue.PushBack(p)
		l.current = nil
		return
	}
	l.Events <- Event{Kind: NewDownloadedPiece, Torrent: l.Torrent.InfoHash(), Peer: l.Remote, Piece: p}
	l.current = nil
}

func (l *Leecher) dropCurrentAndExit() {
	if l.current != nil {
		l.Queue.PushBack(l.current)
		l.current = nil
	}
	l.emitDropped()
}

func (l *Leecher) emitDropped() {
	l.Events <- Event{Kind: ConnectionDropped, Torrent: l.Torrent.InfoHash(), Peer: l.Remote}
}
