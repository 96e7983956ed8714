package metablock

// Head is the ring's write cursor: the (extent, slot) pair the next write
// will land on. It also remembers the one position the recovery scan
// singled out as the best candidate found so far, so the scan knows where
// it started and can recognize when it has come full circle.
type Head struct {
	Extent uint32
	Slot   uint32

	// Wraparound is set the first time Advance crosses back to extent 0,
	// i.e. once every extent has been visited at least once.
	Wraparound bool

	savedValid  bool
	savedExtent uint32
	savedSlot   uint32
}

// Offset returns the byte offset, relative to the start of the ring, of
// the slot this head currently points at.
func (h *Head) Offset(g Geometry) int64 {
	return g.ExtentOffset(h.Extent) + int64(h.Slot)*g.RecordSize
}

// Advance moves the cursor to the next slot, wrapping to the next extent
// (and back to extent 0) as needed.
func (h *Head) Advance(g Geometry) {
	h.Slot++
	if h.Slot >= g.SlotsPerExtent() {
		h.Slot = 0
		h.Extent = (h.Extent + 1) % NExtents
		if h.Extent == 0 {
			h.Wraparound = true
		}
	}
}

// Push remembers the current position as the best recovery candidate seen
// so far.
func (h *Head) Push() {
	h.savedValid = true
	h.savedExtent = h.Extent
	h.savedSlot = h.Slot
}

// Pop returns the last position saved by Push, and whether anything has
// been saved yet.
func (h *Head) Pop() (extent, slot uint32, ok bool) {
	return h.savedExtent, h.savedSlot, h.savedValid
}

// AtSaved reports whether the cursor is currently at the position last
// saved by Push. The recovery scan uses this, combined with Wraparound, to
// detect that it has come back around to its best candidate and can stop.
func (h *Head) AtSaved() bool {
	return h.savedValid && h.Extent == h.savedExtent && h.Slot == h.savedSlot
}
