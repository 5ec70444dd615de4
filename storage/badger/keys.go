package badger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/stanza/core"
)

// Key prefixes for different data types.
// No prefix is a prefix of another, so prefix scans never overlap.
const (
	fragmentPrefix            = "frag:"
	fragmentDatePrefix        = "fragd:"
	fragmentFingerprintPrefix = "fragf:"
	fragmentIDSeq             = "fragseq"
	checkpointPrefix          = "chkpt:"
)

// makeFragmentKey generates a key for a fragment by ID.
// Format: prefix + big-endian ID, so keys sort by ID.
func makeFragmentKey(id core.ID) []byte {
	buf := make([]byte, len(fragmentPrefix)+8)
	offset := copy(buf, fragmentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// fragmentIDFromKey extracts the ID from a fragment key.
func fragmentIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(fragmentPrefix):]))
}

// makeFragmentDateKey generates a composite key for the recency index.
// Format: prefix:insertedAt:id
func makeFragmentDateKey(insertedAt time.Time, id core.ID) []byte {
	buf := make([]byte, len(fragmentDatePrefix)+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, fragmentDatePrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(insertedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// lastFragmentDateKey returns a key that sorts after every recency index entry.
func lastFragmentDateKey() []byte {
	return append([]byte(fragmentDatePrefix), bytes.Repeat([]byte{0xFF}, 16)...)
}

// makeFragmentFingerprintKey generates a key for the fingerprint index.
func makeFragmentFingerprintKey(fingerprint core.ID) []byte {
	buf := make([]byte, len(fragmentFingerprintPrefix)+8)
	offset := copy(buf, fragmentFingerprintPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(fingerprint))
	return buf
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s%s", checkpointPrefix, processorType))
}
