// Package wire implements the length-prefixed BitTorrent peer-wire protocol
// and the fixed-layout handshake described in spec.md §4.1, grounded on
// lvbealr-BitTorrent/torrent/p2p.go for exact wire semantics and on
// uber-kraken/lib/torrent/scheduler/conn/message.go for the encode/decode
// function shape (BE uint32 length prefix via encoding/binary, net.Conn
// read/write helpers).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Type identifies a peer-wire message's tag byte.
type Type uint8

// Message tags, per spec.md §4.1.
const (
	Choke Type = iota
	Unchoke
	Interested
	NotInterested
	Have
	BitfieldMsg
	Request
	Piece
	Cancel
)

func (t Type) String() string {
	switch t {
	case Choke:
		return "Choke"
	case Unchoke:
		return "Unchoke"
	case Interested:
		return "Interested"
	case NotInterested:
		return "NotInterested"
	case Have:
		return "Have"
	case BitfieldMsg:
		return "Bitfield"
	case Request:
		return "Request"
	case Piece:
		return "Piece"
	case Cancel:
		return "Cancel"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// MaxBlockLength is the largest block size a Request may ask for or a Piece
// may carry, per the glossary's definition of a Block.
const MaxBlockLength = 16384

// maxFrameLength bounds the length prefix Read will honor, so a malicious or
// corrupt peer can't force an arbitrarily large allocation: the largest
// legitimate frame is a Piece message (tag + index + begin + one block).
const maxFrameLength = 1 + 8 + MaxBlockLength

// ErrProtocol reports a framing violation: an inconsistent length for a
// known tag, or an unknown tag.
var ErrProtocol = errors.New("wire: protocol error")

// Message is a decoded peer-wire frame. KeepAlive is represented as a
// Message with IsKeepAlive set and all other fields zero.
type Message struct {
	IsKeepAlive bool
	Type        Type

	// Have
	Index uint32

	// Bitfield
	Bitfield []byte

	// Request / Cancel
	Begin  uint32
	Length uint32

	// Piece
	Block []byte
}

// KeepAliveMessage constructs the zero-length KeepAlive frame.
func KeepAliveMessage() *Message {
	return &Message{IsKeepAlive: true}
}

// ChokeMessage, UnchokeMessage, InterestedMessage, NotInterestedMessage
// construct their respective zero-payload messages.
func ChokeMessage() *Message         { return &Message{Type: Choke} }
func UnchokeMessage() *Message       { return &Message{Type: Unchoke} }
func InterestedMessage() *Message    { return &Message{Type: Interested} }
func NotInterestedMessage() *Message { return &Message{Type: NotInterested} }

// HaveMessage constructs a Have(index) message.
func HaveMessage(index uint32) *Message {
	return &Message{Type: Have, Index: index}
}

// BitfieldMessage constructs a Bitfield message carrying bs.
func BitfieldMessage(bs []byte) *Message {
	return &Message{Type: BitfieldMsg, Bitfield: bs}
}

// RequestMessage constructs a Request(index, begin, length) message.
func RequestMessage(index, begin, length uint32) *Message {
	return &Message{Type: Request, Index: index, Begin: begin, Length: length}
}

// CancelMessage constructs a Cancel with the same shape as Request.
func CancelMessage(index, begin, length uint32) *Message {
	return &Message{Type: Cancel, Index: index, Begin: begin, Length: length}
}

// PieceMessage constructs a Piece(index, begin, block) message.
func PieceMessage(index, begin uint32, block []byte) *Message {
	return &Message{Type: Piece, Index: index, Begin: begin, Block: block}
}

// Encode serializes m into its length-prefixed wire representation.
func (m *Message) Encode() []byte {
	if m.IsKeepAlive {
		return []byte{0, 0, 0, 0}
	}

	var payload []byte
	switch m.Type {
	case Choke, Unchoke, Interested, NotInterested:
		payload = nil
	case Have:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint32(payload, m.Index)
	case BitfieldMsg:
		payload = m.Bitfield
	case Request, Cancel:
		payload = make([]byte, 12)
		binary.BigEndian.PutUint32(payload[0:4], m.Index)
		binary.BigEndian.PutUint32(payload[4:8], m.Begin)
		binary.BigEndian.PutUint32(payload[8:12], m.Length)
	case Piece:
		payload = make([]byte, 8+len(m.Block))
		binary.BigEndian.PutUint32(payload[0:4], m.Index)
		binary.BigEndian.PutUint32(payload[4:8], m.Begin)
		copy(payload[8:], m.Block)
	}

	buf := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(1+len(payload)))
	buf[4] = byte(m.Type)
	copy(buf[5:], payload)
	return buf
}

// Write encodes and writes m to w.
func Write(w io.Writer, m *Message) error {
	if _, err := w.Write(m.Encode()); err != nil {
		return fmt.Errorf("wire: write message: %w", err)
	}
	return nil
}

// Read reads and decodes one frame from r. A length of 0 decodes to
// KeepAliveMessage(). A malformed length for a known tag, or an unknown tag,
// returns ErrProtocol.
func Read(r io.Reader) (*Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: read length prefix: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return KeepAliveMessage(), nil
	}
	if length > maxFrameLength {
		return nil, fmt.Errorf("%w: frame length %d exceeds %d", ErrProtocol, length, maxFrameLength)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: read message body: %w", err)
	}
	return decodeBody(length, body)
}

func decodeBody(length uint32, body []byte) (*Message, error) {
	tag := Type(body[0])
	payload := body[1:]

	switch tag {
	case Choke, Unchoke, Interested, NotInterested:
		if length != 1 {
			return nil, fmt.Errorf("%w: %s expects length 1, got %d", ErrProtocol, tag, length)
		}
		return &Message{Type: tag}, nil

	case Have:
		if length != 5 {
			return nil, fmt.Errorf("%w: Have expects length 5, got %d", ErrProtocol, length)
		}
		return &Message{Type: Have, Index: binary.BigEndian.Uint32(payload)}, nil

	case BitfieldMsg:
		bs := make([]byte, len(payload))
		copy(bs, payload)
		return &Message{Type: BitfieldMsg, Bitfield: bs}, nil

	case Request, Cancel:
		if length != 13 {
			return nil, fmt.Errorf("%w: %s expects length 13, got %d", ErrProtocol, tag, length)
		}
		return &Message{
			Type:   tag,
			Index:  binary.BigEndian.Uint32(payload[0:4]),
			Begin:  binary.BigEndian.Uint32(payload[4:8]),
			Length: binary.BigEndian.Uint32(payload[8:12]),
		}, nil

	case Piece:
		if length < 9 {
			return nil, fmt.Errorf("%w: Piece expects length >= 9, got %d", ErrProtocol, length)
		}
		block := make([]byte, len(payload)-8)
		copy(block, payload[8:])
		return &Message{
			Type:  Piece,
			Index: binary.BigEndian.Uint32(payload[0:4]),
			Begin: binary.BigEndian.Uint32(payload[4:8]),
			Block: block,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrProtocol, tag)
	}
}
