package metablock

// Debug-mode field markers. These exist purely to make a raw hex dump of
// the ring legible; they are never checked as a correctness mechanism
// beyond detecting that a ring was written in the other build mode (see
// DecodeRecord).
var (
	magicMarker = [10]byte{'m', 'e', 't', 'a', 'b', 'l', 'o', 'c', 'k', 0}
	crcMarker   = [5]byte{'c', 'r', 'c', ':', 0}

	// versionMarker is declared with the same width as crcMarker rather
	// than its own string's length, so "version:\0" never fits. Preserved
	// deliberately rather than quietly fixed, since it's purely cosmetic
	// (DESIGN.md).
	versionMarker = [5]byte{'v', 'e', 'r', 's', 0}
)

func marginSize() int64 {
	if !markersEnabled {
		return 0
	}
	return int64(len(magicMarker) + len(crcMarker) + len(versionMarker))
}
