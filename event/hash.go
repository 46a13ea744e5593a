package event

import (
	"encoding/binary"

	"github.com/minio/highwayhash"
)

var key = []byte("0123456789ABCDEF0123456789ABCDEF")

// Hash returns a keyed 64-bit hash of the snapshot
func (b BasicBlockTrace) Hash() uint64 {
	data := make([]byte, 0, len(b.Function)+17)
	data = append(data, b.Function...)
	data = append(data, 0)
	data = binary.LittleEndian.AppendUint64(data, uint64(b.Index))
	data = binary.LittleEndian.AppendUint64(data, b.EntryCount)
	return highwayhash.Sum64(data, key)
}
