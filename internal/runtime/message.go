package runtime

import "sync/atomic"

// Link is the intrusive queue node embedded in every Message. A message
// carries its own list linkage, so posting it never allocates a wrapper;
// this is what lets the interrupt message and the per-worker timer-tick
// messages be built once, by Pool, and reused for the life of the pool
// instead of being allocated fresh on every signal or tick.
//
// A Link may belong to at most one list at a time; Hub.Drain clears the
// queued flag just before delivering the owning message, so the message
// can be reposted.
type Link struct {
	next   *Link
	queued atomic.Bool
	owner  Message

	// debugID is a per-message identifier stamped only in runtime_debug
	// builds, mirroring the metablock package's own debug/release marker
	// split.
	debugID string
}

// Init binds the link to its owning message. Every concrete message type
// must call Init(self) once, immediately after construction, before the
// message is posted anywhere.
func (l *Link) Init(owner Message) {
	l.owner = owner
	l.debugID = newDebugID()
}

// DebugID returns this message's debug identifier, or "" in a release
// build (the runtime_debug tag was not set at compile time).
func (l *Link) DebugID() string {
	return l.debugID
}

func (l *Link) linkNode() *Link { return l }

// markQueued claims the link for a list. It panics if the link is already
// queued: posting the same message object twice concurrently is a caller
// bug, not a recoverable condition.
func (l *Link) markQueued() {
	if !l.queued.CompareAndSwap(false, true) {
		panic("runtime: message posted while already queued")
	}
}

func (l *Link) clearQueued() {
	l.queued.Store(false)
}

// Message is anything that can be posted through a Hub and later delivered
// on the worker that received it. Concrete types embed Link and call
// Init(self) in their constructor.
type Message interface {
	// Deliver runs the message's handler on the worker it was posted to.
	Deliver(w *Worker)
	linkNode() *Link
}

// CallbackMessage adapts a plain closure into a Message, since most
// posted work is "run this closure on worker W" rather than a hand-rolled
// message type.
type CallbackMessage struct {
	Link
	fn func(w *Worker)
}

// NewCallbackMessage wraps fn as a postable Message.
func NewCallbackMessage(fn func(w *Worker)) *CallbackMessage {
	m := &CallbackMessage{fn: fn}
	m.Link.Init(m)
	return m
}

func (m *CallbackMessage) Deliver(w *Worker) {
	m.fn(w)
}

// list is a singly linked FIFO queue of Links. It has no internal
// synchronization; callers provide whatever is appropriate for the list's
// sharing pattern (none, for a worker's own run queue; a spinlock, for the
// external inbox; atomic splice, for a deposit slot).
type list struct {
	head, tail *Link
}

func (q *list) empty() bool { return q.head == nil }

func (q *list) pushBack(l *Link) {
	l.next = nil
	if q.tail == nil {
		q.head, q.tail = l, l
		return
	}
	q.tail.next = l
	q.tail = l
}

func (q *list) popFront() *Link {
	l := q.head
	if l == nil {
		return nil
	}
	q.head = l.next
	if q.head == nil {
		q.tail = nil
	}
	l.next = nil
	return l
}

// spliceFrom moves other's entire contents onto the tail of q, leaving
// other empty. Both lists must belong to the caller alone at the time of
// the call.
func (q *list) spliceFrom(other *list) {
	if other.head == nil {
		return
	}
	if q.tail == nil {
		q.head = other.head
	} else {
		q.tail.next = other.head
	}
	q.tail = other.tail
	other.head, other.tail = nil, nil
}
