package piece

import (
	"sync"

	"github.com/nyxworks/kestrel/core"
)

// Queue is the shared FIFO of not-yet-downloaded pieces for one torrent.
// Each Piece appears in at most one of {queue, in-flight at a session} at a
// time, per spec.md §3's Piece Queue invariant. Sessions that find the
// queue empty must yield rather than spin, so PopFront reports emptiness
// via its bool return instead of blocking.
type Queue struct {
	mu    sync.Mutex
	items []*Piece
}

// NewFromTorrent builds the initial Queue for a torrent, skipping any piece
// index already present in completed. Piece lengths follow
// core.TorrentInfo.PieceLen, which accounts for the shorter final piece.
func NewFromTorrent(info *core.TorrentInfo, completed func(index int) bool) *Queue {
	q := &Queue{}
	n := info.NumPieces()
	for i := 0; i < n; i++ {
		if completed != nil && completed(i) {
			continue
		}
		q.items = append(q.items, New(i, info.PieceLen(i), info.PieceHash(i)))
	}
	return q
}

// PopFront removes and returns the piece at the front of the queue. The
// second return is false if the queue was empty.
func (q *Queue) PopFront() (*Piece, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

// PushBack requeues a piece, resetting its in-flight state first. Used when
// a session fails or a piece fails hash verification.
func (q *Queue) PushBack(p *Piece) {
	p.Reset()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
}

// Len reports the number of pieces still waiting in the queue (not counting
// any in flight at a session).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue currently holds no pieces.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}
