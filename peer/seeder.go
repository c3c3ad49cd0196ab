package peer

import (
	"net"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/nyxworks/kestrel/bitfield"
	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/wire"
)

// seederHandshakeTimeout bounds the inbound handshake read/echo, separate
// from the steady-state seeder idle timeout.
const seederHandshakeTimeout = 10 * time.Second

// Torrents looks up a locally hosted torrent's descriptor and shared
// completion bitfield by info hash, for the seeder server to hand to each
// accepted connection.
type Torrents interface {
	Lookup(infoHash core.InfoHash) (info *core.TorrentInfo, completion *bitfield.Bitfield, ok bool)
}

// Seeder drives one inbound peer session per spec.md §4.6: it validates the
// handshake, announces local availability, and serves Piece data for
// Requests the local completion bitfield can satisfy.
type Seeder struct {
	LocalPeerID core.PeerID
	Torrents    Torrents
	Storage     Storage
	Stats       tally.Scope
	Logger      *zap.SugaredLogger

	peerInterested bool
	peerChoked     bool

	cachedIndex   int
	cachedPayload []byte
	haveCached    bool
}

// Run validates the inbound handshake on nc and, if accepted, serves the
// connection until read error, timeout, or protocol violation. nc is closed
// before Run returns.
func (s *Seeder) Run(nc net.Conn) {
	defer nc.Close()

	s.peerChoked = true

	if err := nc.SetDeadline(time.Now().Add(seederHandshakeTimeout)); err != nil {
		return
	}
	remote, err := wire.ReadHandshake(nc)
	if err != nil {
		s.Logger.Infow("seeder handshake read failed", "error", err)
		return
	}
	info, completion, ok := s.Torrents.Lookup(remote.InfoHash)
	if !ok {
		s.Logger.Infow("seeder rejected unknown info hash", "info_hash", remote.InfoHash)
		return
	}
	local := wire.Handshake{InfoHash: info.InfoHash(), PeerID: s.LocalPeerID}
	if err := wire.WriteHandshake(nc, local); err != nil {
		s.Logger.Infow("seeder handshake echo failed", "error", err)
		return
	}

	c, err := wire.New(nc, remote.PeerID, info.InfoHash(), wire.SeederRole, s.Stats, s.Logger)
	if err != nil {
		s.Logger.Infow("seeder conn setup failed", "error", err)
		return
	}
	c.Start()
	defer c.Close()

	if err := c.Send(wire.BitfieldMessage(completion.Bytes())); err != nil {
		return
	}

	s.serveLoop(c, info, completion)
}

func (s *Seeder) serveLoop(c *wire.Conn, info *core.TorrentInfo, completion *bitfield.Bitfield) {
	for msg := range c.Receiver() {
		if msg.IsKeepAlive {
			continue
		}
		switch msg.Type {
		case wire.Interested:
			s.peerInterested = true
			s.peerChoked = false
			if err := c.Send(wire.UnchokeMessage()); err != nil {
				return
			}
		case wire.NotInterested:
			s.peerInterested = false
		case wire.Request:
			s.handleRequest(c, info, completion, msg)
		default:
			// Have, Bitfield, Piece, Cancel: not acted on by a seeder.
		}
	}
}

func (s *Seeder) handleRequest(c *wire.Conn, info *core.TorrentInfo, completion *bitfield.Bitfield, msg *wire.Message) {
	if !s.peerInterested || s.peerChoked || !completion.Test(int(msg.Index)) {
		return
	}
	payload, err := s.loadPiece(info, int(msg.Index))
	if err != nil {
		s.Logger.Infow("seeder failed to load piece", "index", msg.Index, "error", err)
		return
	}
	begin, length := int(msg.Begin), int(msg.Length)
	if begin < 0 || length < 0 || begin+length > len(payload) {
		return
	}
	_ = c.Send(wire.PieceMessage(msg.Index, msg.Begin, payload[begin:begin+length]))
}

// loadPiece lazily loads piece index into the single-piece cache, reloading
// only when the requested index differs from the cached one, per
// spec.md §4.6.
func (s *Seeder) loadPiece(info *core.TorrentInfo, index int) ([]byte, error) {
	if s.haveCached && s.cachedIndex == index {
		return s.cachedPayload, nil
	}
	payload, err := s.Storage.LoadPiece(info.InfoHash(), index, info.PieceLen(index))
	if err != nil {
		return nil, err
	}
	s.cachedIndex = index
	s.cachedPayload = payload
	s.haveCached = true
	return payload, nil
}
