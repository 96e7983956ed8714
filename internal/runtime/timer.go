package runtime

import (
	"container/heap"
	"time"
)

// timerEntry is one scheduled callback, ordered by deadline for the heap.
type timerEntry struct {
	deadline time.Time
	fn       func()
	index    int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// TimerWheel is a worker's per-thread deadline scheduler, backed by a
// small binary heap, the natural Go idiom for "next deadline across N
// pending timers" when N stays small, as it does for one worker's own
// timer load.
type TimerWheel struct {
	h timerHeap
}

// NewTimerWheel returns an empty timer wheel.
func NewTimerWheel() *TimerWheel {
	return &TimerWheel{}
}

// Schedule arranges for fn to run (on the worker that owns this wheel, from
// its own event loop) at or after deadline.
func (t *TimerWheel) Schedule(deadline time.Time, fn func()) {
	heap.Push(&t.h, &timerEntry{deadline: deadline, fn: fn})
}

// After is a convenience wrapper over Schedule using a relative duration.
func (t *TimerWheel) After(d time.Duration, fn func()) {
	t.Schedule(time.Now().Add(d), fn)
}

// Next returns the duration until the earliest pending deadline, and false
// if nothing is scheduled.
func (t *TimerWheel) Next() (time.Duration, bool) {
	if len(t.h) == 0 {
		return 0, false
	}
	d := time.Until(t.h[0].deadline)
	if d < 0 {
		d = 0
	}
	return d, true
}

// RunExpired runs and removes every entry whose deadline is at or before
// now.
func (t *TimerWheel) RunExpired(now time.Time) {
	for len(t.h) > 0 && !t.h[0].deadline.After(now) {
		e := heap.Pop(&t.h).(*timerEntry)
		e.fn()
	}
}
