// Package metablock implements the CRC-checksummed rotating metablock
// ring: the crash-atomic "head of the world" pointer a log-structured
// storage engine uses to find its most recent durable root after a
// restart. A fixed number of extents are carved into fixed-size slots;
// each write advances to the next slot and bumps a monotonic version
// counter, so recovery can always identify the most recent valid write by
// scanning the ring from its first slot and keeping the highest version.
package metablock

import (
	"context"

	"driftstore/internal/extent"
)

// NExtents is the number of extents the ring rotates across. Two extents
// guarantees that a crash mid-write to one extent never corrupts every
// copy of the previous valid record, which lives in the other extent.
const NExtents = 2

// ExtentSeparation is the number of extent-sized strides between the
// start of one ring extent and the next, measured from the end of the
// static header. Leaving gaps between the ring's extents keeps them from
// sharing a disk track with whatever the data block manager puts right
// after the static header, so a write to one doesn't interfere with
// reads of the other.
const ExtentSeparation = 4

// Geometry describes the fixed on-disk layout of one metablock ring.
type Geometry struct {
	// StaticHeaderSize is the size, in bytes, of the fixed header that
	// precedes the ring's first extent.
	StaticHeaderSize int64

	// ExtentSize is the size, in bytes, of one ring extent.
	ExtentSize int64

	// RecordSize is the size, in bytes, of one slot: an encoded record
	// (CRC, version, payload, and any debug markers) plus any alignment
	// padding (see AlignRecordSize).
	RecordSize int64
}

// SlotsPerExtent returns how many fixed-size records fit in one extent.
func (g Geometry) SlotsPerExtent() uint32 {
	return uint32(g.ExtentSize / g.RecordSize)
}

// TotalSlots returns the number of slots across the whole ring.
func (g Geometry) TotalSlots() uint32 {
	return uint32(NExtents) * g.SlotsPerExtent()
}

// ExtentOffset returns the byte offset of the start of the given extent
// relative to the start of the ring (i.e. after the static header).
func (g Geometry) ExtentOffset(extentIndex uint32) int64 {
	return int64(extentIndex) * ExtentSeparation * g.ExtentSize
}

// PrepareGeometry reserves the ring's NExtents extents from em, plus the
// (ExtentSeparation-1) extents of padding after each one, so that nothing
// else the extent manager hands out can land in the ring's separation
// gaps. It returns the Geometry a Manager should be constructed with.
func PrepareGeometry(ctx context.Context, em extent.Manager, recordSize, staticHeaderSize int64) (Geometry, error) {
	g := Geometry{
		StaticHeaderSize: staticHeaderSize,
		ExtentSize:        em.ExtentSize(),
		RecordSize:        recordSize,
	}
	for i := 0; i < NExtents*ExtentSeparation; i++ {
		if _, err := em.ReserveExtent(ctx); err != nil {
			return Geometry{}, err
		}
	}
	return g, nil
}
