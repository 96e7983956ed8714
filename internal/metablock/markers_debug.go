//go:build metablock_debug

package metablock

// markersEnabled is true in debug builds (built with -tags metablock_debug),
// which prepend human-legible field markers to every record. This makes a
// raw hex dump of the ring readable, at the cost of a handful of bytes per
// slot; it changes the on-disk record size, so a ring written by one build
// mode is unreadable by the other.
const markersEnabled = true
