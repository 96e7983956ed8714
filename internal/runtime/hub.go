package runtime

import (
	"sync/atomic"

	"driftstore/internal/spinlock"
)

// depositSlot is a lock-free single-producer hand-off: the source worker
// pushes by prepending onto an atomic LIFO stack, and the slot's owning
// worker drains by atomically stealing the whole stack and reversing it
// back into FIFO order. This is the "atomic list-splice" cross-thread
// hand-off: no per-message lock on the hot path, and ordering between any
// one (source, target) pair is preserved.
type depositSlot struct {
	top atomic.Pointer[Link]
}

// push returns true if the slot was empty before this push, so the caller
// can decide whether to wake the target worker.
func (d *depositSlot) push(l *Link) bool {
	for {
		old := d.top.Load()
		l.next = old
		if d.top.CompareAndSwap(old, l) {
			return old == nil
		}
	}
}

func (d *depositSlot) drainInto(q *list) {
	top := d.top.Swap(nil)
	if top == nil {
		return
	}
	// top is LIFO (most recently pushed first); reverse it so messages from
	// the same source are delivered in the order they were posted.
	var fifo *Link
	for n := top; n != nil; {
		next := n.next
		n.next = fifo
		fifo = n
		n = next
	}
	for n := fifo; n != nil; {
		next := n.next
		q.pushBack(n)
		n = next
	}
}

// Hub is a worker's mailbox. Every worker has its own deposit slot into
// this hub, plus a shared, spinlock-guarded external inbox for posters that
// aren't one of the pool's fixed worker slots (including the pool's own
// signal goroutine). Pump folds both sources into the local run
// queue, which only the owning worker ever touches.
type Hub struct {
	ownerID int

	deposits []depositSlot // indexed by source worker id

	extLock  spinlock.Spinlock
	external list

	run list

	notify chan struct{}
}

// NewHub builds a hub for the worker with the given id among nWorkers total
// worker slots.
func NewHub(ownerID, nWorkers int) *Hub {
	return &Hub{
		ownerID:  ownerID,
		deposits: make([]depositSlot, nWorkers),
		notify:   make(chan struct{}, 1),
	}
}

// PostLocal enqueues a message on behalf of the hub's own owning worker.
// The caller must actually be running on that worker; no synchronization
// happens here because only one goroutine ever touches the run list
// directly.
func (h *Hub) PostLocal(m Message) {
	l := m.linkNode()
	l.markQueued()
	h.run.pushBack(l)
}

// depositFrom enqueues a message sent by the worker with the given source
// id. It is lock-free and safe to call concurrently with the hub owner's
// Pump from any number of distinct source ids.
func (h *Hub) depositFrom(sourceID int, m Message) {
	l := m.linkNode()
	l.markQueued()
	if h.deposits[sourceID].push(l) {
		h.wake()
	}
}

// PostExternal enqueues a message from a poster that has no dedicated
// deposit slot: the main goroutine, a signal handler goroutine, or the
// blocking pool delivering a completion. Guarded by a short spinlock.
func (h *Hub) PostExternal(m Message) {
	l := m.linkNode()
	l.markQueued()
	h.extLock.Lock()
	wasEmpty := h.external.empty()
	h.external.pushBack(l)
	h.extLock.Unlock()
	if wasEmpty {
		h.wake()
	}
}

func (h *Hub) wake() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Pump drains every deposit slot and the external inbox into the local run
// queue. Only the owning worker may call this.
func (h *Hub) Pump() {
	for i := range h.deposits {
		h.deposits[i].drainInto(&h.run)
	}
	h.extLock.Lock()
	h.run.spliceFrom(&h.external)
	h.extLock.Unlock()
}

// Drain dispatches every message currently in the local run queue, in FIFO
// order. A message posted by dispatch itself (a handler re-posting to the
// same worker via PostLocal) lands back on the tail of the same run list
// and is popped and dispatched within this same Drain call, not deferred
// to the next one; Drain only returns once popFront finds the queue empty.
func (h *Hub) Drain(dispatch func(Message)) {
	for {
		l := h.run.popFront()
		if l == nil {
			return
		}
		l.clearQueued()
		dispatch(l.owner)
	}
}

// Empty reports whether the local run queue has nothing left to dispatch.
// It does not account for messages still sitting in deposit slots or the
// external inbox; callers that need a true quiescence check should Pump
// first.
func (h *Hub) Empty() bool {
	return h.run.empty()
}
