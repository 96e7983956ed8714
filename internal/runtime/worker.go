package runtime

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MainThreadID is the sentinel source id used by posters that are not one
// of the pool's fixed worker slots (the goroutine driving Pool.Start, a
// signal-handling goroutine, or a BlockingPool helper delivering a
// completion). Such posters always go through a target hub's external
// inbox rather than a deposit slot.
const MainThreadID = -1

// Worker is one event loop: a mailbox, a timer wheel, and a handle back to
// the pool for cross-worker sends. The utility worker additionally owns
// the pool's BlockingPool.
type Worker struct {
	ID        int
	IsUtility bool

	pool   *Pool
	hub    *Hub
	Timers *TimerWheel

	shutdown    <-chan struct{}
	runWg       *sync.WaitGroup

	log *zap.Logger

	dispatched uint64 // messages delivered, exposed via Stats

	// watched records descriptors Watch has been told this worker cares
	// about. This module never polls a descriptor directly (the blocking
	// pool already delivers I/O completions as ordinary messages), so the
	// set is pure bookkeeping, useful for confirming nothing is left
	// outstanding at shutdown.
	watched map[int]struct{}
}

func zapWorkerID(id int) zap.Field { return zap.Int("worker_id", id) }

func newWorker(id int, isUtility bool, pool *Pool, shutdown <-chan struct{}, wg *sync.WaitGroup, log *zap.Logger) *Worker {
	return &Worker{
		ID:        id,
		IsUtility: isUtility,
		pool:      pool,
		hub:       NewHub(id, pool.totalWorkers()),
		Timers:    NewTimerWheel(),
		shutdown:  shutdown,
		runWg:     wg,
		log:       log.With(zapWorkerID(id)),
		watched:   make(map[int]struct{}),
	}
}

// Watch records fd as a descriptor this worker is tracking. The caller
// must be running on this worker's own goroutine.
func (w *Worker) Watch(fd int) {
	w.watched[fd] = struct{}{}
}

// Unwatch removes fd from the set Watch recorded. Unwatching a descriptor
// that was never watched is a no-op.
func (w *Worker) Unwatch(fd int) {
	delete(w.watched, fd)
}

// WatchedCount reports how many descriptors are currently recorded as
// watched, for shutdown diagnostics.
func (w *Worker) WatchedCount() int {
	return len(w.watched)
}

// PostLocal posts a message for immediate delivery on this worker. The
// caller must already be running on this worker's own goroutine.
func (w *Worker) PostLocal(m Message) {
	w.hub.PostLocal(m)
}

// PostTo posts a message to another worker (or to itself by id), routed as
// a lock-free deposit if the caller is itself a worker, or through the
// spinlocked external inbox otherwise.
func (w *Worker) PostTo(targetID int, m Message) {
	target := w.pool.workerByID(targetID)
	if w.ID == MainThreadID {
		target.hub.PostExternal(m)
		return
	}
	target.hub.depositFrom(w.ID, m)
}

// Blocker returns the pool's blocking-operation pool, usable from any
// worker to dispatch a synchronous job off its own event loop.
func (w *Worker) Blocker() *BlockingPool {
	return w.pool.blocker
}

// PostCompletion delivers m to this worker on behalf of a caller that is
// not itself a worker goroutine (a BlockingPool helper thread finishing a
// job submitted by this worker).
func (w *Worker) PostCompletion(m Message) {
	w.hub.PostExternal(m)
}

// Stats is a point-in-time snapshot of a worker's own dispatch counter.
type Stats struct {
	WorkerID   int
	Dispatched uint64
}

// StatsSnapshot returns a snapshot of this worker's dispatch counter. Safe to call
// from outside the worker's own goroutine; the counter is only ever
// written by the worker itself and read here without synchronization
// beyond what the Go memory model guarantees for a single word on most
// platforms (acceptable for a diagnostic counter, not for control flow).
func (w *Worker) StatsSnapshot() Stats {
	return Stats{WorkerID: w.ID, Dispatched: w.dispatched}
}

func (w *Worker) dispatch(m Message) {
	w.dispatched++
	m.Deliver(w)
}

// Run is the worker's event loop: pull in anything posted from elsewhere,
// drain the local queue, block until the next timer deadline or a wakeup,
// and repeat until shutdown has been observed and the queue has run dry.
func (w *Worker) Run() {
	defer w.runWg.Done()
	defer w.classifyFault()

	for {
		w.hub.Pump()
		w.hub.Drain(w.dispatch)

		wait, hasTimer := w.Timers.Next()
		var timerC <-chan time.Time
		var timer *time.Timer
		if hasTimer {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-w.hub.notify:
		case <-timerC:
		case <-w.shutdown:
			if timer != nil {
				timer.Stop()
			}
			w.hub.Pump()
			w.hub.Drain(w.dispatch)
			if w.hub.Empty() {
				return
			}
			continue
		}
		if timer != nil {
			timer.Stop()
		}
		w.Timers.RunExpired(time.Now())
	}
}

// classifyFault recovers a worker's panic, classifies it, logs it, and
// terminates the process. A real unrecoverable runtime fatal (a genuine
// goroutine stack overflow past the runtime's hard limit) cannot be
// intercepted this way at all; Go's runtime calls fatal and exits directly
// for that case instead of reaching this recover. See DESIGN.md.
func (w *Worker) classifyFault() {
	r := recover()
	if r == nil {
		return
	}
	kind := "generic fault"
	if s, ok := r.(string); ok && strings.Contains(s, "stack overflow") {
		kind = "coroutine stack overflow"
	}
	if w.log != nil {
		w.log.Error("fatal worker fault",
			zap.String("kind", kind),
			zap.Any("recovered", r),
			zap.Int("worker_id", w.ID),
		)
	}
	w.pool.terminate(1)
}
