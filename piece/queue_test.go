package piece

import (
	"testing"

	"github.com/nyxworks/kestrel/core"
)

func buildTorrentInfo(t *testing.T, length, pieceLength int64) *core.TorrentInfo {
	t.Helper()
	n := int((length + pieceLength - 1) / pieceLength)
	if length == 0 {
		n = 0
	}
	hashes := make([][20]byte, n)
	ih, err := core.NewInfoHashFromHex("000000000000000000000000000000000000000a")
	if err != nil {
		t.Fatalf("NewInfoHashFromHex: %v", err)
	}
	ti, err := core.NewTorrentInfo("t", "http://tracker.example/announce", ih, pieceLength, length, hashes)
	if err != nil {
		t.Fatalf("NewTorrentInfo: %v", err)
	}
	return ti
}

func TestQueueDequeuesInOrder(t *testing.T) {
	const pieceLen = 1000
	const nPieces = 5
	ti := buildTorrentInfo(t, pieceLen*nPieces, pieceLen)

	q := NewFromTorrent(ti, nil)
	if q.Len() != nPieces {
		t.Fatalf("expected %d pieces queued, got %d", nPieces, q.Len())
	}
	for want := 0; want < nPieces; want++ {
		p, ok := q.PopFront()
		if !ok {
			t.Fatalf("expected piece at index %d", want)
		}
		if p.Index != want {
			t.Fatalf("expected index %d, got %d", want, p.Index)
		}
	}
	if _, ok := q.PopFront(); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestQueueLastPieceShorterLength(t *testing.T) {
	const pieceLen = 1000
	const length = 4500 // 5 pieces, last is 500 bytes
	ti := buildTorrentInfo(t, length, pieceLen)

	q := NewFromTorrent(ti, nil)
	var last *Piece
	for {
		p, ok := q.PopFront()
		if !ok {
			break
		}
		last = p
	}
	if last == nil || last.Index != 4 {
		t.Fatalf("expected last piece index 4, got %+v", last)
	}
	if last.Total != length-4*pieceLen {
		t.Fatalf("expected last piece total %d, got %d", length-4*pieceLen, last.Total)
	}
}

func TestQueueSkipsCompleted(t *testing.T) {
	const pieceLen = 1000
	const nPieces = 5
	ti := buildTorrentInfo(t, pieceLen*nPieces, pieceLen)

	completed := map[int]bool{1: true, 3: true}
	q := NewFromTorrent(ti, func(i int) bool { return completed[i] })
	if q.Len() != nPieces-len(completed) {
		t.Fatalf("expected %d pieces queued, got %d", nPieces-len(completed), q.Len())
	}
	for {
		p, ok := q.PopFront()
		if !ok {
			break
		}
		if completed[p.Index] {
			t.Fatalf("did not expect completed index %d in queue", p.Index)
		}
	}
}

func TestPushBackResetsAndRequeues(t *testing.T) {
	ti := buildTorrentInfo(t, 1000, 1000)
	q := NewFromTorrent(ti, nil)
	p, _ := q.PopFront()
	p.MarkRequested(500)
	p.AcceptBlock(0, make([]byte, 500))

	q.PushBack(p)
	if q.Len() != 1 {
		t.Fatalf("expected requeued piece, queue len %d", q.Len())
	}
	got, _ := q.PopFront()
	if got.Requested != 0 || got.Received != 0 || len(got.Payload) != 0 {
		t.Fatalf("expected requeued piece to be reset, got %+v", got)
	}
}
