package peer

import (
	"net"
	"testing"
	"time"

	"github.com/uber-go/tally"

	"github.com/nyxworks/kestrel/bitfield"
	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/internal/log"
	"github.com/nyxworks/kestrel/wire"
)

type fakeTorrents struct {
	info       *core.TorrentInfo
	completion *bitfield.Bitfield
}

func (t *fakeTorrents) Lookup(infoHash core.InfoHash) (*core.TorrentInfo, *bitfield.Bitfield, bool) {
	if t.info == nil || infoHash != t.info.InfoHash() {
		return nil, nil, false
	}
	return t.info, t.completion, true
}

func TestSeederServesRequestedPiece(t *testing.T) {
	payload := []byte("the quick brown fox")
	info := buildSinglePieceTorrent(t, payload)
	completion := bitfield.New(1)
	completion.Set(0)

	storage := newFakeStorage()
	storage.WritePiece(info.InfoHash(), 0, payload)

	local, remote := net.Pipe()
	defer remote.Close()

	s := &Seeder{
		LocalPeerID: core.RandomPeerID(),
		Torrents:    &fakeTorrents{info: info, completion: completion},
		Storage:     storage,
		Stats:       tally.NoopScope,
		Logger:      log.NewNop(),
	}

	go s.Run(local)

	remote.SetDeadline(time.Now().Add(5 * time.Second))

	if err := wire.WriteHandshake(remote, wire.Handshake{InfoHash: info.InfoHash(), PeerID: core.RandomPeerID()}); err != nil {
		t.Fatalf("remote write handshake: %v", err)
	}
	echoed, err := wire.ReadHandshake(remote)
	if err != nil {
		t.Fatalf("remote read echoed handshake: %v", err)
	}
	if echoed.InfoHash != info.InfoHash() {
		t.Fatalf("unexpected echoed info hash")
	}

	bf, err := wire.Read(remote)
	if err != nil || bf.Type != wire.BitfieldMsg {
		t.Fatalf("expected bitfield message, got %+v, err=%v", bf, err)
	}

	if err := wire.Write(remote, wire.InterestedMessage()); err != nil {
		t.Fatalf("send interested: %v", err)
	}
	unchoke, err := wire.Read(remote)
	if err != nil || unchoke.Type != wire.Unchoke {
		t.Fatalf("expected unchoke, got %+v, err=%v", unchoke, err)
	}

	if err := wire.Write(remote, wire.RequestMessage(0, 0, uint32(len(payload)))); err != nil {
		t.Fatalf("send request: %v", err)
	}

	piece, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("read piece: %v", err)
	}
	if piece.Type != wire.Piece || string(piece.Block) != string(payload) {
		t.Fatalf("unexpected piece reply: %+v", piece)
	}
}

func TestSeederRejectsRequestWhileChoked(t *testing.T) {
	payload := []byte("another payload")
	info := buildSinglePieceTorrent(t, payload)
	completion := bitfield.New(1)
	completion.Set(0)

	storage := newFakeStorage()
	storage.WritePiece(info.InfoHash(), 0, payload)

	local, remote := net.Pipe()
	defer remote.Close()

	s := &Seeder{
		LocalPeerID: core.RandomPeerID(),
		Torrents:    &fakeTorrents{info: info, completion: completion},
		Storage:     storage,
		Stats:       tally.NoopScope,
		Logger:      log.NewNop(),
	}

	go s.Run(local)

	remote.SetDeadline(time.Now().Add(5 * time.Second))

	if err := wire.WriteHandshake(remote, wire.Handshake{InfoHash: info.InfoHash(), PeerID: core.RandomPeerID()}); err != nil {
		t.Fatalf("remote write handshake: %v", err)
	}
	if _, err := wire.ReadHandshake(remote); err != nil {
		t.Fatalf("remote read echoed handshake: %v", err)
	}
	if _, err := wire.Read(remote); err != nil {
		t.Fatalf("read bitfield: %v", err)
	}

	// Request without ever sending Interested: seeder stays choked and must
	// not reply with a Piece message. A KeepAlive follows the Request; the
	// seeder answers neither, so nothing may arrive before the read deadline.
	if err := wire.Write(remote, wire.RequestMessage(0, 0, uint32(len(payload)))); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := wire.Write(remote, wire.KeepAliveMessage()); err != nil {
		t.Fatalf("send keepalive: %v", err)
	}
	remote.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	if msg, err := wire.Read(remote); err == nil {
		t.Fatalf("expected no reply to a Request sent while choked, got %+v", msg)
	}
}
