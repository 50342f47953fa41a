package core

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// PointID identifies a point within a collection.
// IDs are assigned sequentially by the ingestion pipeline.
type PointID uint64

// HashContent returns a deterministic 64-bit BLAKE2b digest of text.
// Identical sections always produce the same hash.
func HashContent(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// HashContentHex returns HashContent encoded as a 16 character hex string.
func HashContentHex(text string) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], HashContent(text))
	return hex.EncodeToString(buf[:])
}

// Payload keys written by the ingestion pipeline.
const (
	PayloadText        = "text"
	PayloadSection     = "section"
	PayloadContentHash = "content_hash"
)

// Payload is the data attached to a stored point.
type Payload struct {
	Text  string            // Full text of the section the vector was derived from
	Extra map[string]string // Optional extension fields (e.g., "section", "content_hash")
}

// Point is a single vector stored in a collection.
type Point struct {
	ID      PointID
	Vector  []float32
	Payload Payload
}

// CollectionParams holds the settings used when a collection is created.
type CollectionParams struct {
	VectorSize uint64
}

// CollectionInfo describes the current state of a collection.
type CollectionInfo struct {
	Name        string
	VectorSize  uint64
	PointsCount uint64
}

// ScoredPoint is a point returned from a similarity search.
type ScoredPoint struct {
	Point *Point
	Score float32
}
