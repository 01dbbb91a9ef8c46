package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindEntry byte = 1

	headerLen = 4 + 1 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("syncache: corrupt entry")
	magic4     = [...]byte{'S', 'Y', 'N', 'C'}
)

// Entry is the decoded frame of one cached value. Payload aliases the input
// buffer passed to DecodeEntry.
type Entry struct {
	Gen      uint64
	StoredAt int64 // unix nanoseconds
	Payload  []byte
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// EncodeEntry frames a payload:
//
//	magic(4) | ver(1) | kind(1) | gen(u64 be) | storedAt(i64 be) | vlen(u32 be) | payload(vlen)
func EncodeEntry(gen uint64, storedAt int64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(storedAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeEntry parses a frame produced by EncodeEntry. Trailing bytes are rejected.
func DecodeEntry(b []byte) (Entry, error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}

	off := 6
	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	storedAt := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}

	return Entry{Gen: gen, StoredAt: storedAt, Payload: b[off : off+vlen]}, nil
}
