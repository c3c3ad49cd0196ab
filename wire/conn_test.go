package wire

import (
	"net"
	"testing"
	"time"

	"github.com/uber-go/tally"

	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/internal/log"
)

func TestConnSendAndReceiveRoundTrip(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	ih, _ := core.NewInfoHashFromHex("000000000000000000000000000000000000000a")
	c, err := New(local, core.RandomPeerID(), ih, LeecherRole, tally.NoopScope, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Start()
	defer c.Close()

	if err := c.Send(InterestedMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}

	remote.SetDeadline(time.Now().Add(2 * time.Second))
	got, err := Read(remote)
	if err != nil {
		t.Fatalf("remote read: %v", err)
	}
	if got.Type != Interested {
		t.Fatalf("expected Interested, got %v", got.Type)
	}

	if err := Write(remote, UnchokeMessage()); err != nil {
		t.Fatalf("remote write: %v", err)
	}

	select {
	case msg := <-c.Receiver():
		if msg.Type != Unchoke {
			t.Fatalf("expected Unchoke, got %v", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for received message")
	}
}

func TestConnClosePropagatesToReadAndWriteLoops(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	ih, _ := core.NewInfoHashFromHex("000000000000000000000000000000000000000a")
	c, err := New(local, core.RandomPeerID(), ih, SeederRole, tally.NoopScope, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Start()

	c.Close()
	c.Close() // idempotent

	if err := c.Send(ChokeMessage()); err != ErrConnClosed {
		t.Fatalf("expected ErrConnClosed after Close, got %v", err)
	}

	select {
	case _, ok := <-c.Receiver():
		if ok {
			t.Fatalf("expected receiver channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for receiver channel to close")
	}

	if !c.IsClosed() {
		t.Fatalf("expected IsClosed true")
	}
}

func TestConnSendBufferFull(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	ih, _ := core.NewInfoHashFromHex("000000000000000000000000000000000000000a")
	c, err := New(local, core.RandomPeerID(), ih, LeecherRole, tally.NoopScope, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Deliberately not calling Start(): nothing drains the sender channel,
	// so it fills and the next Send reports ErrSendBufferFull.
	for i := 0; i < SenderBufferSize; i++ {
		if err := c.Send(KeepAliveMessage()); err != nil {
			t.Fatalf("unexpected error filling send buffer at %d: %v", i, err)
		}
	}
	if err := c.Send(KeepAliveMessage()); err != ErrSendBufferFull {
		t.Fatalf("expected ErrSendBufferFull, got %v", err)
	}
}
