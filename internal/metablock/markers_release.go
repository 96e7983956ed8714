//go:build !metablock_debug

package metablock

// markersEnabled controls whether encoded records carry the debug-only
// magic and field markers. Release builds omit them: every byte in the
// record is either the CRC, the version, or the payload.
const markersEnabled = false
