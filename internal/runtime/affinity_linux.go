//go:build linux

package runtime

import (
	goruntime "runtime"

	"golang.org/x/sys/unix"
)

// pinAffinity binds the calling OS thread to a single CPU via
// sched_setaffinity. The caller must have already called
// runtime.LockOSThread. cpu is reduced modulo the number of online CPUs,
// so a pool configured with more workers than cores still pins each one
// somewhere rather than leaving it unpinned.
func pinAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu % goruntime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
