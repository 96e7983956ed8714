package metablock

import (
	"encoding/binary"
	"hash/crc32"

	"driftstore/internal/base"
)

// Codec tells the ring how to turn a payload of type T into a fixed-size
// byte slice and back. Size must be constant for the lifetime of a ring;
// changing it changes RecordSize and makes an existing ring unreadable.
type Codec[T any] struct {
	Size      int
	Marshal   func(v T, buf []byte)
	Unmarshal func(buf []byte) T
}

// RecordSize returns the total on-disk size of one encoded record for the
// given codec, including the CRC, version, payload, and (in debug builds)
// field markers.
func RecordSize[T any](codec Codec[T]) int64 {
	const crcSize = 4
	const versionSize = 8
	return marginSize() + crcSize + versionSize + int64(codec.Size)
}

// AlignRecordSize rounds raw up to the nearest multiple of blockSize. A
// Manager backed by a real direct-I/O file needs every slot to land on a
// block boundary and span a whole number of blocks, so the caller building
// a ring's Geometry pads the record size up to this before ever reserving
// extents for it. blockSize <= 0 disables the rounding (the slot size is
// used as-is, the shape a MemFile-backed ring takes since it has no
// alignment requirement of its own).
func AlignRecordSize(raw, blockSize int64) int64 {
	if blockSize <= 0 {
		return raw
	}
	rem := raw % blockSize
	if rem == 0 {
		return raw
	}
	return raw - rem + blockSize
}

// crc32Table is the standard reflected CRC-32 (polynomial 0x04C11DB7,
// init/final XOR 0xFFFFFFFF), the variant crc32.IEEE already implements.
var crc32Table = crc32.MakeTable(crc32.IEEE)

// EncodeRecord writes version and payload into the first RecordSize(codec)
// bytes of buf. buf may be longer than that (a ring aligned to a device
// block pads every slot up to AlignRecordSize's result); the bytes beyond
// RecordSize(codec) are untouched padding. The CRC covers the marshaled
// payload bytes only, not the version field. That exclusion is preserved
// deliberately; see DESIGN.md.
func EncodeRecord[T any](buf []byte, codec Codec[T], version base.Version, payload T) {
	off := 0
	if markersEnabled {
		off += copy(buf[off:], magicMarker[:])
		off += copy(buf[off:], crcMarker[:])
	}
	crcOff := off
	off += 4
	if markersEnabled {
		off += copy(buf[off:], versionMarker[:])
	}
	versionOff := off
	off += 8
	payloadOff := off

	payloadBuf := buf[payloadOff : payloadOff+codec.Size]
	codec.Marshal(payload, payloadBuf)

	crc := crc32.Checksum(payloadBuf, crc32Table)
	binary.LittleEndian.PutUint32(buf[crcOff:], crc)
	binary.LittleEndian.PutUint64(buf[versionOff:], uint64(version))
}

// DecodeRecord reads a record out of the first RecordSize(codec) bytes of
// buf (which, as in EncodeRecord, may be longer) and reports whether it is
// valid: markers (if enabled) match, and the stored CRC matches the
// recomputed CRC of the payload bytes. An invalid record is the expected
// shape of an unwritten or torn slot, not an error condition; see the
// manager's recovery scan.
func DecodeRecord[T any](buf []byte, codec Codec[T]) (version base.Version, payload T, valid bool) {
	off := 0
	if markersEnabled {
		if [10]byte(buf[off:off+10]) != magicMarker {
			return 0, payload, false
		}
		off += 10
		if [5]byte(buf[off:off+5]) != crcMarker {
			return 0, payload, false
		}
		off += 5
	}
	crcOff := off
	off += 4
	if markersEnabled {
		if [5]byte(buf[off:off+5]) != versionMarker {
			return 0, payload, false
		}
		off += 5
	}
	versionOff := off
	off += 8
	payloadOff := off

	payloadBuf := buf[payloadOff : payloadOff+codec.Size]
	storedCRC := binary.LittleEndian.Uint32(buf[crcOff:])
	if crc32.Checksum(payloadBuf, crc32Table) != storedCRC {
		return 0, payload, false
	}

	version = base.Version(binary.LittleEndian.Uint64(buf[versionOff:]))
	payload = codec.Unmarshal(payloadBuf)
	return version, payload, true
}
