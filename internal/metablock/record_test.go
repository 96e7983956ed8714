package metablock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftstore/internal/base"
	"driftstore/internal/metablock"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	buf := make([]byte, metablock.RecordSize(rootCodec))
	want := rootPointer{Offset: 100, Length: 200}
	metablock.EncodeRecord(buf, rootCodec, base.Version(5), want)

	version, got, valid := metablock.DecodeRecord(buf, rootCodec)
	require.True(t, valid)
	assert.Equal(t, base.Version(5), version)
	assert.Equal(t, want, got)
}

func TestDecodeRejectsCorruptPayload(t *testing.T) {
	buf := make([]byte, metablock.RecordSize(rootCodec))
	metablock.EncodeRecord(buf, rootCodec, base.Version(1), rootPointer{Offset: 9, Length: 9})

	buf[len(buf)-1] ^= 0xFF

	_, _, valid := metablock.DecodeRecord(buf, rootCodec)
	assert.False(t, valid)
}

func TestDecodeRejectsUnwrittenSlot(t *testing.T) {
	buf := make([]byte, metablock.RecordSize(rootCodec))
	_, _, valid := metablock.DecodeRecord(buf, rootCodec)
	assert.False(t, valid)
}

func TestCRCDoesNotCoverVersion(t *testing.T) {
	buf := make([]byte, metablock.RecordSize(rootCodec))
	metablock.EncodeRecord(buf, rootCodec, base.Version(1), rootPointer{Offset: 3, Length: 4})

	// Tampering with the version field alone must not be caught by the
	// CRC: it is computed over the payload only, by design.
	buf[4] ^= 0xFF // version field starts right after the 4-byte CRC

	version, payload, valid := metablock.DecodeRecord(buf, rootCodec)
	assert.True(t, valid)
	assert.NotEqual(t, base.Version(1), version)
	assert.Equal(t, rootPointer{Offset: 3, Length: 4}, payload)
}
