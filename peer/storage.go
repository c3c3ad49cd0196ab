package peer

import "github.com/nyxworks/kestrel/core"

// Storage is the persistence collaborator leecher and seeder sessions
// depend on. storage/fsstorage provides the concrete implementation; the
// interface lives here so sessions depend only on the shape they need.
type Storage interface {
	// WritePiece durably stores a verified piece's payload.
	WritePiece(infoHash core.InfoHash, index int, payload []byte) error
	// LoadPiece returns the length-byte payload of piece index, for seeding.
	LoadPiece(infoHash core.InfoHash, index int, length int64) ([]byte, error)
}
