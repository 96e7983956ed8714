//go:build !runtime_debug

package runtime

// newDebugID is a no-op in release builds; Link.debugID stays empty.
func newDebugID() string {
	return ""
}
