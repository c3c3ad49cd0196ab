package piece

import (
	"crypto/sha1"
	"testing"
)

func TestValidRoundTrip(t *testing.T) {
	data := make([]byte, 32768+100)
	for i := range data {
		data[i] = byte(i)
	}
	expected := sha1.Sum(data)

	p := New(0, int64(len(data)), expected)
	for !p.Complete() {
		n := p.NextBlockLength()
		begin := p.Requested
		p.MarkRequested(n)
		if !p.AcceptBlock(uint32(begin), data[begin:begin+n]) {
			t.Fatalf("AcceptBlock rejected in-order block at %d", begin)
		}
	}
	if !p.Valid() {
		t.Fatalf("expected valid piece")
	}

	// Flipping any single byte must invalidate it.
	p.Payload[0] ^= 0xFF
	if p.Valid() {
		t.Fatalf("expected invalid piece after corrupting one byte")
	}
}

func TestAcceptBlockOutOfOrderRejected(t *testing.T) {
	p := New(0, 100, [20]byte{})
	if p.AcceptBlock(50, make([]byte, 10)) {
		t.Fatalf("expected out-of-order block to be rejected")
	}
	if p.Received != 0 {
		t.Fatalf("expected Received unchanged after rejected block")
	}
}

func TestNextBlockLengthCaps(t *testing.T) {
	p := New(0, 20000, [20]byte{})
	if n := p.NextBlockLength(); n != MaxBlockLength {
		t.Fatalf("expected first block capped at %d, got %d", MaxBlockLength, n)
	}
	p.MarkRequested(MaxBlockLength)
	if n := p.NextBlockLength(); n != 20000-MaxBlockLength {
		t.Fatalf("expected remaining block length %d, got %d", 20000-MaxBlockLength, n)
	}
	p.MarkRequested(20000 - MaxBlockLength)
	if n := p.NextBlockLength(); n != 0 {
		t.Fatalf("expected 0 once fully requested, got %d", n)
	}
}

func TestReset(t *testing.T) {
	p := New(0, 100, [20]byte{})
	p.MarkRequested(50)
	p.AcceptBlock(0, make([]byte, 50))
	p.Reset()
	if p.Requested != 0 || p.Received != 0 || len(p.Payload) != 0 {
		t.Fatalf("expected fully reset piece, got %+v", p)
	}
}
