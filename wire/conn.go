package wire

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/nyxworks/kestrel/core"
)

// Role distinguishes a Conn's read/write deadline policy: leechers are
// expected to pull data at a brisk pace, seeders merely need to notice a
// stalled peer eventually.
type Role int

const (
	// LeecherRole applies the short idle timeout appropriate for a session
	// actively pulling pieces.
	LeecherRole Role = iota
	// SeederRole applies the long idle timeout appropriate for a session
	// that may sit idle between requests.
	SeederRole
)

// Default per-role idle timeouts, per SPEC_FULL.md §4.3.
const (
	LeecherIdleTimeout = 5 * time.Second
	SeederIdleTimeout  = 120 * time.Second
)

// SenderBufferSize and ReceiverBufferSize bound the internal message
// channels, grounded on uber-kraken's Config.SenderBufferSize /
// ReceiverBufferSize.
const (
	SenderBufferSize   = 64
	ReceiverBufferSize = 64
)

// ErrConnClosed is returned by Send once the Conn has begun closing.
var ErrConnClosed = errors.New("wire: conn closed")

// ErrSendBufferFull is returned by Send when the outbound channel is
// saturated; the caller should treat this the same as a dead connection.
var ErrSendBufferFull = errors.New("wire: send buffer full")

// Conn wraps a net.Conn for one peer session, multiplexing the length-prefixed
// message protocol onto buffered send/receive channels via a read/write loop
// pair, grounded on
// uber-kraken/lib/torrent/scheduler/conn/conn.go's Conn (startOnce, atomic
// closed flag, done channel, WaitGroup-synchronized loop shutdown), adapted
// to the raw tagged-message wire format instead of kraken's protobuf framing.
type Conn struct {
	peerID   core.PeerID
	infoHash core.InfoHash
	role     Role

	nc     net.Conn
	stats  tally.Scope
	logger *zap.SugaredLogger

	startOnce sync.Once

	sender   chan *Message
	receiver chan *Message

	closed *atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// New wraps nc as a Conn for the given remote peer/torrent. Any handshake
// deadline previously set on nc is cleared.
func New(
	nc net.Conn,
	peerID core.PeerID,
	infoHash core.InfoHash,
	role Role,
	stats tally.Scope,
	logger *zap.SugaredLogger,
) (*Conn, error) {
	if err := nc.SetDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("wire: clear handshake deadline: %w", err)
	}
	return &Conn{
		peerID:   peerID,
		infoHash: infoHash,
		role:     role,
		nc:       nc,
		stats:    stats,
		logger:   logger,
		sender:   make(chan *Message, SenderBufferSize),
		receiver: make(chan *Message, ReceiverBufferSize),
		closed:   atomic.NewBool(false),
		done:     make(chan struct{}),
	}, nil
}

// Start begins the read and write loops. Idempotent.
func (c *Conn) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(2)
		go c.readLoop()
		go c.writeLoop()
	})
}

// PeerID returns the remote peer's id.
func (c *Conn) PeerID() core.PeerID { return c.peerID }

// InfoHash returns the torrent this Conn serves.
func (c *Conn) InfoHash() core.InfoHash { return c.infoHash }

func (c *Conn) String() string {
	return fmt.Sprintf("Conn(peer=%s, hash=%s, role=%d)", c.peerID, c.infoHash, c.role)
}

// Send enqueues msg for transmission. Returns ErrConnClosed once the Conn is
// shutting down, or ErrSendBufferFull if the outbound channel is saturated.
func (c *Conn) Send(msg *Message) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	select {
	case <-c.done:
		return ErrConnClosed
	case c.sender <- msg:
		return nil
	default:
		c.stats.Tagged(map[string]string{
			"dropped_message_type": msg.Type.String(),
		}).Counter("dropped_messages").Inc(1)
		return ErrSendBufferFull
	}
}

// Receiver returns the channel of inbound messages. It is closed once the
// read loop exits.
func (c *Conn) Receiver() <-chan *Message {
	return c.receiver
}

// Close begins the Conn's shutdown sequence. Idempotent; safe to call from
// any goroutine.
func (c *Conn) Close() {
	if !c.closed.CAS(false, true) {
		return
	}
	go func() {
		close(c.done)
		c.nc.Close()
		c.wg.Wait()
	}()
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

func (c *Conn) idleTimeout() time.Duration {
	if c.role == SeederRole {
		return SeederIdleTimeout
	}
	return LeecherIdleTimeout
}

func (c *Conn) readLoop() {
	defer func() {
		close(c.receiver)
		c.wg.Done()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.nc.SetReadDeadline(time.Now().Add(c.idleTimeout())); err != nil {
			c.logger.Infow("error setting read deadline, exiting read loop", "error", err, "remote_peer", c.peerID)
			return
		}
		msg, err := Read(c.nc)
		if err != nil {
			c.logger.Infow("error reading message, exiting read loop", "error", err, "remote_peer", c.peerID)
			return
		}
		select {
		case c.receiver <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer func() {
		c.wg.Done()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.sender:
			if err := c.nc.SetWriteDeadline(time.Now().Add(c.idleTimeout())); err != nil {
				c.logger.Infow("error setting write deadline, exiting write loop", "error", err, "remote_peer", c.peerID)
				return
			}
			if err := Write(c.nc, msg); err != nil {
				c.logger.Infow("error writing message, exiting write loop", "error", err, "remote_peer", c.peerID)
				return
			}
		}
	}
}
