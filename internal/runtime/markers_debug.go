//go:build runtime_debug

package runtime

import "github.com/google/uuid"

// newDebugID returns a fresh per-message identifier when the runtime is
// built with the runtime_debug tag, mirroring the metablock package's own
// debug/release marker split. Disabled by default: stamping every posted
// message with a UUID is diagnostic overhead no production build needs.
func newDebugID() string {
	return uuid.NewString()
}
