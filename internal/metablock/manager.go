package metablock

import (
	"go.uber.org/zap"

	"driftstore/internal/arena"
	"driftstore/internal/base"
	"driftstore/internal/ioengine"
	"driftstore/internal/runtime"
)

type state int32

const (
	stateUnstarted state = iota
	stateRecovering
	stateReady
	stateWriting
	stateShutDown
)

// writeRequest is one queued write: a payload and the continuation to run
// once it has durably landed (or failed).
type writeRequest[T any] struct {
	payload T
	done    func(error)
}

// Manager is the CRC metablock ring: it owns exactly one worker's worth of
// confinement (every method must be called from the worker passed to
// NewManager, except where noted), a fixed two-extent ring, and a
// single-writer FIFO queue for writes that arrive faster than the device
// can durably absorb them.
type Manager[T any] struct {
	w      *runtime.Worker
	file   ioengine.DirectFile
	header StaticHeader
	codec  Codec[T]
	geom   Geometry

	state   state
	head    Head
	version base.AtomicVersion

	queue           []writeRequest[T]
	pendingShutdown bool
	shutdownDone    func()

	// headers is the optional collaborator Manager delegates to for
	// state_reading_header/state_writing_header; nil means the caller
	// already supplied a complete StaticHeader to NewManager and there is
	// nothing on disk left to read or write.
	headers HeaderStore

	slotsWritten uint64
	wraparounds  uint64

	// scratch is a single slot-sized buffer reused by every read and
	// write: the manager's single-writer protocol means at most one I/O
	// is ever in flight, so one buffer, carved out of a dedicated arena
	// rather than allocated fresh per operation, is enough. It is carved
	// at an alignment matching file's block size, not a fixed 8 bytes, so
	// a direct-I/O file's ReadAt/WriteAt sees a properly aligned buffer
	// rather than one that only happens to satisfy an in-memory codec.
	arena   *arena.Arena
	scratch []byte

	log *zap.Logger
}

// Option configures a Manager at construction time.
type Option[T any] interface {
	apply(*Manager[T])
}

type optionFunc[T any] func(*Manager[T])

func (f optionFunc[T]) apply(m *Manager[T]) { f(m) }

// WithLogger sets the zap logger a Manager logs through. Defaults to
// zap.NewNop().
func WithLogger[T any](log *zap.Logger) Option[T] {
	return optionFunc[T](func(m *Manager[T]) { m.log = log })
}

// WithHeaderStore configures the collaborator ReadHeaders/WriteHeaders
// delegate to. Without one, both are no-ops: the StaticHeader passed to
// NewManager is treated as already complete.
func WithHeaderStore[T any](hs HeaderStore) Option[T] {
	return optionFunc[T](func(m *Manager[T]) { m.headers = hs })
}

// NewManager builds a Manager confined to worker w, reading and writing
// through file starting after header's static region. The caller must
// call Start before the first Write.
//
// header.Geometry.RecordSize, not RecordSize(codec), determines the
// scratch buffer's size: against a direct-I/O file the two differ, since
// the geometry's slot size has already been padded up to a multiple of
// file's block size (see AlignRecordSize), and the scratch buffer must
// span a whole slot for ReadAsync/WriteAsync to see a block-aligned
// length. EncodeRecord and DecodeRecord only ever touch the leading
// RecordSize(codec) bytes of it; the rest is alignment padding.
func NewManager[T any](w *runtime.Worker, file ioengine.DirectFile, header StaticHeader, codec Codec[T], opts ...Option[T]) *Manager[T] {
	slotSize := uint(header.Geometry.RecordSize)
	blockSize := uint(file.BlockSize())
	if blockSize == 0 {
		blockSize = 1
	}
	a := arena.New(slotSize + blockSize) // headroom for the arena's reserved nil offset and alignment padding
	off, err := a.Allocate(slotSize, blockSize)
	if err != nil {
		// slotSize always fits a freshly constructed arena sized for it
		// plus blockSize of headroom; a failure here means New's overflow
		// accounting changed underneath this call.
		panic(err)
	}

	m := &Manager[T]{
		w:       w,
		file:    file,
		header:  header,
		codec:   codec,
		geom:    header.Geometry,
		log:     zap.NewNop(),
		arena:   a,
		scratch: a.GetBytes(off, slotSize),
	}
	for _, opt := range opts {
		opt.apply(m)
	}
	return m
}

// Close releases the manager's scratch-buffer arena. Call it after
// Shutdown has completed.
func (m *Manager[T]) Close() error {
	return m.arena.Close()
}

// CurrentVersion returns the version of the most recently issued write
// (the counter is bumped when a write is submitted, before it lands, and is
// not rolled back if the write fails), or the version Start's recovery
// found, or base.VersionZero before recovery has completed or when it
// found nothing.
func (m *Manager[T]) CurrentVersion() base.Version {
	return m.version.Load()
}

// Stats is a point-in-time snapshot of a ring's operational counters,
// returned by StatsSnapshot; the manager does not log it or export it to a
// metric sink.
type Stats struct {
	SlotsWritten uint64
	Wraparounds  uint64
	QueueDepth   int
}

// StatsSnapshot returns the ring's current counters. Safe to call from the
// owning worker at any time after Start.
func (m *Manager[T]) StatsSnapshot() Stats {
	return Stats{SlotsWritten: m.slotsWritten, Wraparounds: m.wraparounds, QueueDepth: len(m.queue)}
}

// ReadHeaders reads the static header through the configured HeaderStore.
// It is a no-op if no HeaderStore was configured at construction
// (NewManager's header argument already supplies a complete,
// caller-computed StaticHeader in that case).
func (m *Manager[T]) ReadHeaders(done func(error)) {
	if m.headers == nil {
		done(nil)
		return
	}
	m.headers.ReadHeader(m.w, func(h StaticHeader, err error) {
		if err == nil {
			m.header = h
			m.geom = h.Geometry
		}
		done(err)
	})
}

// WriteHeaders persists the manager's current StaticHeader through the
// configured HeaderStore. It is a no-op if no HeaderStore was configured.
func (m *Manager[T]) WriteHeaders(done func(error)) {
	if m.headers == nil {
		done(nil)
		return
	}
	m.headers.WriteHeader(m.w, m.header, done)
}

// Start scans the ring for the most recent valid record and invokes
// onRecovered with the result once the scan completes. found is false if
// the ring has never held a valid record. The scan reads at most
// TotalSlots()*2 slots: one full pass to find the best candidate (it may
// be the very first slot examined) and, in the worst case, a second pass
// to come back around and confirm nothing newer follows it.
func (m *Manager[T]) Start(onRecovered func(found bool, payload T, err error)) error {
	if m.state != stateUnstarted {
		return ErrAlreadyStarted
	}
	m.state = stateRecovering
	m.head = Head{}

	var (
		best      T
		bestVer   base.Version
		found     bool
		attempts  uint32
		total     = m.geom.TotalSlots()
		hardCap   = total*2 + 2
	)

	shouldStop := func() bool {
		if attempts == 0 {
			return false
		}
		if attempts > hardCap {
			return true
		}
		if !found {
			return attempts >= total
		}
		return attempts > total && m.head.AtSaved()
	}

	var step func()
	step = func() {
		if shouldStop() {
			if attempts > hardCap {
				m.state = stateReady
				onRecovered(found, best, ErrRingExhausted)
				return
			}
			m.version.Store(bestVer)
			m.state = stateReady
			onRecovered(found, best, nil)
			return
		}

		offset := m.geom.StaticHeaderSize + m.head.Offset(m.geom)
		m.file.ReadAsync(m.w, offset, m.scratch, func(n int, err error) {
			if err != nil {
				m.state = stateReady
				onRecovered(found, best, err)
				return
			}
			attempts++
			if version, payload, valid := DecodeRecord(m.scratch, m.codec); valid {
				if !found || version > bestVer {
					found, bestVer, best = true, version, payload
					m.head.Push()
				}
			}
			m.head.Advance(m.geom)
			step()
		})
	}
	step()
	return nil
}

// Write durably appends payload to the ring and invokes done once it has
// landed (or failed). Writes from the same Manager are serviced strictly
// in the order Write was called; a write that arrives while another is
// still in flight is queued rather than interleaved.
func (m *Manager[T]) Write(payload T, done func(error)) error {
	switch m.state {
	case stateUnstarted, stateRecovering:
		return ErrNotStarted
	case stateShutDown:
		return ErrShutDown
	}
	if m.pendingShutdown {
		return ErrShutDown
	}

	m.queue = append(m.queue, writeRequest[T]{payload: payload, done: done})
	if m.state == stateReady {
		m.state = stateWriting
		m.popAndWrite()
	}
	return nil
}

func (m *Manager[T]) popAndWrite() {
	if len(m.queue) == 0 {
		if m.pendingShutdown {
			m.finishShutdown()
		} else {
			m.state = stateReady
		}
		return
	}
	req := m.queue[0]
	m.queue = m.queue[1:]

	next := m.version.Add(1)
	EncodeRecord(m.scratch, m.codec, next, req.payload)
	offset := m.geom.StaticHeaderSize + m.head.Offset(m.geom)
	prevExtent := m.head.Extent

	m.file.WriteAsync(m.w, offset, m.scratch, func(n int, err error) {
		if err == nil {
			m.head.Advance(m.geom)
			m.slotsWritten++
			if m.head.Extent == 0 && prevExtent == NExtents-1 {
				m.wraparounds++
			}
		}
		req.done(err)
		m.popAndWrite()
	})
}

// Shutdown stops accepting new writes and invokes done once the write in
// flight and every write already queued behind it have completed. Calling
// Write after Shutdown returns ErrShutDown.
func (m *Manager[T]) Shutdown(done func()) {
	if m.state == stateWriting {
		m.pendingShutdown = true
		m.shutdownDone = done
		return
	}
	m.state = stateShutDown
	if done != nil {
		done()
	}
}

func (m *Manager[T]) finishShutdown() {
	m.state = stateShutDown
	if m.shutdownDone != nil {
		d := m.shutdownDone
		m.shutdownDone = nil
		d()
	}
}
