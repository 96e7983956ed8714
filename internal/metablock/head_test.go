package metablock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"driftstore/internal/metablock"
)

func testGeometry() metablock.Geometry {
	return metablock.Geometry{
		StaticHeaderSize: 0,
		ExtentSize:        30,
		RecordSize:        10, // 3 slots per extent
	}
}

func TestHeadAdvanceStaysWithinExtent(t *testing.T) {
	g := testGeometry()
	h := &metablock.Head{}
	h.Advance(g)
	assert.Equal(t, uint32(0), h.Extent)
	assert.Equal(t, uint32(1), h.Slot)
}

func TestHeadAdvanceWrapsAcrossExtentsAndSetsWraparound(t *testing.T) {
	g := testGeometry()
	h := &metablock.Head{}
	for i := 0; i < int(g.SlotsPerExtent())*metablock.NExtents; i++ {
		h.Advance(g)
	}
	assert.Equal(t, uint32(0), h.Extent)
	assert.Equal(t, uint32(0), h.Slot)
	assert.True(t, h.Wraparound)
}

func TestHeadPushPopAndAtSaved(t *testing.T) {
	h := &metablock.Head{}
	g := testGeometry()
	h.Advance(g)
	h.Advance(g)
	h.Push()

	_, _, ok := h.Pop()
	assert.True(t, ok)
	assert.True(t, h.AtSaved())

	h.Advance(g)
	assert.False(t, h.AtSaved())
}
