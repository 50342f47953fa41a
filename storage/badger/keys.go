package badger

import (
	"encoding/binary"

	"github.com/poiesic/docembed/core"
)

// Key prefixes for different data types
const (
	collectionPrefix = "col"
	pointPrefix      = "pt"
)

// makeCollectionKey generates the key holding a collection's parameters.
// Format: col:name
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + ":" + name)
}

// makePointPrefix generates the prefix shared by every point of a collection.
// Format: pt:name:
func makePointPrefix(name string) []byte {
	return []byte(pointPrefix + ":" + name + ":")
}

// makePointKey generates a key for a point by collection and ID.
// Format: pt:name:id
func makePointKey(name string, id core.PointID) []byte {
	prefix := makePointPrefix(name)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so points iterate in ID order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
