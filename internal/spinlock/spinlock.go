// Package spinlock provides a short-hold compare-and-swap lock for the one
// or two places the runtime needs mutual exclusion outside a worker's own
// event loop: the message hub's external inbox and the thread pool's
// interrupt-message slot. Both are held for a handful of instructions, so a
// spinlock avoids the scheduling overhead of a full mutex.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a CAS-loop lock. It is not reentrant and must not be held
// across anything that can block.
type Spinlock struct {
	held atomic.Bool
}

// Lock spins until the lock is acquired, yielding the OS thread between
// attempts so a contended spinlock doesn't starve other goroutines on the
// same GOMAXPROCS slot.
func (s *Spinlock) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// Unlock releases the lock. Calling Unlock without a matching Lock is a bug
// in the caller and will corrupt the lock state.
func (s *Spinlock) Unlock() {
	s.held.Store(false)
}

// TryLock attempts to acquire the lock without spinning, returning whether
// it succeeded.
func (s *Spinlock) TryLock() bool {
	return s.held.CompareAndSwap(false, true)
}
