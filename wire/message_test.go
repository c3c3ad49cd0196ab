package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func roundTrip(t *testing.T, m *Message) *Message {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return got
}

func TestKeepAliveRoundTrip(t *testing.T) {
	got := roundTrip(t, KeepAliveMessage())
	if !got.IsKeepAlive {
		t.Fatalf("expected IsKeepAlive, got %+v", got)
	}
}

func TestZeroPayloadRoundTrip(t *testing.T) {
	for _, m := range []*Message{ChokeMessage(), UnchokeMessage(), InterestedMessage(), NotInterestedMessage()} {
		got := roundTrip(t, m)
		if got.Type != m.Type {
			t.Fatalf("got type %s, want %s", got.Type, m.Type)
		}
	}
}

func TestHaveRoundTrip(t *testing.T) {
	got := roundTrip(t, HaveMessage(42))
	if got.Type != Have || got.Index != 42 {
		t.Fatalf("got %+v", got)
	}
}

func TestBitfieldRoundTrip(t *testing.T) {
	payload := []byte{0xF8, 0x00, 0xAB}
	got := roundTrip(t, BitfieldMessage(payload))
	if got.Type != BitfieldMsg || !bytes.Equal(got.Bitfield, payload) {
		t.Fatalf("got %+v", got)
	}
}

func TestRequestCancelRoundTrip(t *testing.T) {
	req := RequestMessage(1, 2, 16384)
	got := roundTrip(t, req)
	if got.Type != Request || got.Index != 1 || got.Begin != 2 || got.Length != 16384 {
		t.Fatalf("got %+v", got)
	}

	cancel := CancelMessage(1, 2, 16384)
	got = roundTrip(t, cancel)
	if got.Type != Cancel || got.Index != 1 || got.Begin != 2 || got.Length != 16384 {
		t.Fatalf("got %+v", got)
	}
}

func TestPieceRoundTrip(t *testing.T) {
	block := bytes.Repeat([]byte{0x7}, 16384)
	got := roundTrip(t, PieceMessage(3, 16384, block))
	if got.Type != Piece || got.Index != 3 || got.Begin != 16384 || !bytes.Equal(got.Block, block) {
		t.Fatalf("got index=%d begin=%d len(block)=%d", got.Index, got.Begin, len(got.Block))
	}
}

func TestMalformedLengthForKnownTagFails(t *testing.T) {
	// Choke (tag 0) with a 2-byte payload is malformed: length should be 1.
	buf := []byte{0, 0, 0, 2, byte(Choke), 0xFF}
	_, err := Read(bytes.NewReader(buf))
	if err == nil {
		t.Fatalf("expected ErrProtocol, got nil")
	}
}

func TestUnknownTagFails(t *testing.T) {
	buf := []byte{0, 0, 0, 1, 0xFE}
	_, err := Read(bytes.NewReader(buf))
	if err == nil {
		t.Fatalf("expected ErrProtocol for unknown tag, got nil")
	}
}

func TestRequestWrongLengthFails(t *testing.T) {
	buf := []byte{0, 0, 0, 10, byte(Request), 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := Read(bytes.NewReader(buf))
	if err == nil {
		t.Fatalf("expected ErrProtocol for short Request, got nil")
	}
}

func TestOversizedLengthPrefixRejectedBeforeAllocating(t *testing.T) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 0xFFFFFFF0)
	_, err := Read(bytes.NewReader(lenBuf[:]))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol for oversized length prefix, got %v", err)
	}
}
