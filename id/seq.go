package id

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Layout of the identifiers returned by New, from the high bits down:
// Unix milliseconds, the UUIDv7 sub-millisecond sequence, and a node
// number drawn once per process. The sign bit stays clear.
const (
	millisBits = 42
	seqBits    = 12
	nodeBits   = 9

	millisMask = 1<<millisBits - 1
	seqMask    = 1<<seqBits - 1
	nodeMask   = 1<<nodeBits - 1
)

// node separates processes that draw an identifier in the same
// sub-millisecond slot. Two processes share a node with odds 1 in 512.
var node = func() uint64 {
	u := uuid.New()
	return uint64(binary.BigEndian.Uint16(u[14:])) & nodeMask
}()

// New returns a positive int64 identifier that increases monotonically
// within the process. The milliseconds wrap in 2109.
func New() int64 {
	u, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source fails.
		panic("id: generate: " + err.Error())
	}
	return compose(binary.BigEndian.Uint64(u[:8]), node)
}

// compose packs the upper half of a UUIDv7 (48 bits of milliseconds, the
// version nibble, 12 bits of sequence) and a node number.
func compose(hi, node uint64) int64 {
	millis := hi >> 16 & millisMask
	seq := hi & seqMask
	return int64(millis<<(seqBits+nodeBits) | seq<<nodeBits | node&nodeMask)
}
