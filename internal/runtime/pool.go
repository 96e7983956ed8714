package runtime

import (
	goruntime "runtime"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"driftstore/internal/spinlock"
)

// Pool is the thread-per-core runtime: a fixed set of worker goroutines,
// each pinned to its own OS thread (and, optionally, its own CPU core),
// plus one extra utility worker that also owns the BlockingPool used for
// synchronous I/O. It owns the startup/shutdown barrier, the interrupt
// message slot, and the optional SIGALRM-style tick fallback.
type Pool struct {
	nData            int
	affinity         bool
	blockingPoolSize int
	alarmIntervalMS  int
	log              *zap.Logger

	workers []*Worker
	blocker *BlockingPool

	barrier  *Barrier
	runWg    sync.WaitGroup
	shutdown chan struct{}
	shutOnce sync.Once

	interruptMu  spinlock.Spinlock
	interruptMsg Message

	sigCh   chan os.Signal
	alarmCh chan os.Signal
	stopSig chan struct{}

	// tickMsgs holds one pre-built, no-op CallbackMessage per worker,
	// reused by alarmLoop on every tick rather than allocated fresh.
	tickMsgs []*CallbackMessage

	started bool
	mu      sync.Mutex
}

// New builds a pool with nData data workers plus one utility worker. The
// pool is not running until Start is called.
func New(nData int, opts ...Option) *Pool {
	p := &Pool{
		nData:            nData,
		blockingPoolSize: 4,
		log:              zap.NewNop(),
		shutdown:         make(chan struct{}),
		stopSig:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt.apply(p)
	}
	return p
}

func (p *Pool) totalWorkers() int { return p.nData + 1 }

func (p *Pool) utilityID() int { return p.nData }

func (p *Pool) workerByID(id int) *Worker {
	if id < 0 || id >= len(p.workers) {
		panic(ErrUnknownWorker)
	}
	return p.workers[id]
}

// WorkerByID exposes workerByID for callers outside the package (e.g. the
// engine wiring posting an initial message to worker 0).
func (p *Pool) WorkerByID(id int) *Worker { return p.workerByID(id) }

// postExternal delivers m to the worker with the given id on behalf of a
// caller that is not itself one of the pool's worker goroutines.
func (p *Pool) postExternal(targetID int, m Message) {
	p.workers[targetID].hub.PostExternal(m)
}

// PostExternal is the public entry point for non-worker code (the engine's
// own goroutines, tests) to post a message to a specific worker.
func (p *Pool) PostExternal(targetID int, m Message) {
	p.postExternal(targetID, m)
}

// NumWorkers returns the total number of worker slots, data workers plus
// the utility worker.
func (p *Pool) NumWorkers() int { return p.totalWorkers() }

// Start brings every worker online: each constructs its hub and timer
// wheel, pins its OS thread (and optionally its CPU core), and the
// utility worker additionally constructs the shared BlockingPool, all
// before the startup barrier releases, so that every worker can see the
// blocking pool immediately after release. initial, if non-nil, is
// delivered to worker 0 once the pool is running.
func (p *Pool) Start(initial Message) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	n := p.totalWorkers()
	p.workers = make([]*Worker, n)
	p.barrier = NewBarrier(n + 1) // +1 for this goroutine
	p.runWg.Add(n)

	for i := 0; i < n; i++ {
		go p.bootWorker(i, initial)
	}
	p.barrier.Wait()
	p.installSignals()
	return nil
}

func (p *Pool) bootWorker(id int, initial Message) {
	goruntime.LockOSThread()
	isUtility := id == p.utilityID()

	if p.affinity {
		if err := pinAffinity(id); err != nil {
			p.log.Warn("cpu affinity pin failed", zap.Int("worker_id", id), zap.Error(err))
		}
	}

	w := newWorker(id, isUtility, p, p.shutdown, &p.runWg, p.log)
	if isUtility {
		p.blocker = NewBlockingPool(p.blockingPoolSize)
	}
	p.workers[id] = w

	p.barrier.Wait()

	if id == 0 && initial != nil {
		w.PostLocal(initial)
	}

	w.Run()

	p.barrier.Wait()
}

// installSignals wires SIGINT/SIGTERM to the interrupt-message slot and,
// if configured, a periodic tick broadcast standing in for an optional
// SIGALRM-style fallback. Go delivers catchable signals to an ordinary
// goroutine rather than a true signal-handler context, so allocating in
// that goroutine is not the hard constraint a real signal handler would
// impose, but both the interrupt message and the per-worker tick messages
// are still pre-built once and reused rather than constructed fresh on
// every signal, to keep the delivery path allocation-free regardless.
func (p *Pool) installSignals() {
	p.sigCh = make(chan os.Signal, 4)
	signal.Notify(p.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go p.signalLoop()

	if p.alarmIntervalMS > 0 {
		p.tickMsgs = make([]*CallbackMessage, len(p.workers))
		for i := range p.tickMsgs {
			p.tickMsgs[i] = NewCallbackMessage(func(*Worker) {})
		}
		go p.alarmLoop(time.Duration(p.alarmIntervalMS) * time.Millisecond)
	}
}

func (p *Pool) signalLoop() {
	for {
		select {
		case <-p.sigCh:
			msg := p.SwapInterruptMessage(nil)
			if msg != nil {
				p.postExternal(p.utilityID(), msg)
			}
		case <-p.stopSig:
			return
		}
	}
}

func (p *Pool) alarmLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for id := range p.tickMsgs {
				p.postExternal(id, p.tickMsgs[id])
			}
		case <-p.stopSig:
			return
		}
	}
}

// SwapInterruptMessage atomically replaces the message delivered to the
// utility worker on the next SIGINT/SIGTERM, returning the previous one.
// Passing nil disarms delivery (a signal arriving with no message
// installed is dropped).
func (p *Pool) SwapInterruptMessage(m Message) Message {
	p.interruptMu.Lock()
	old := p.interruptMsg
	p.interruptMsg = m
	p.interruptMu.Unlock()
	return old
}

// Shutdown signals every worker to drain and exit, waits for them, and
// tears down the blocking pool. Shutdown is idempotent.
func (p *Pool) Shutdown() {
	p.shutOnce.Do(func() {
		close(p.stopSig)
		if p.sigCh != nil {
			signal.Stop(p.sigCh)
		}
		close(p.shutdown)
		p.runWg.Wait()
		p.barrier.Wait()
		if p.blocker != nil {
			p.blocker.Close()
		}
	})
}

// terminate is invoked by a worker's fault classifier. A worker fault is,
// by the module's invariants, unrecoverable: rather than leave the pool
// half-alive, the whole process exits with a nonzero status after the
// fault has been logged.
func (p *Pool) terminate(code int) {
	os.Exit(code)
}
