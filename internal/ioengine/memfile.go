package ioengine

import (
	"sync"

	"driftstore/internal/runtime"
)

// MemFile is an in-memory DirectFile backed by a plain byte slice. It
// still dispatches through a real runtime.BlockingPool, so it exercises
// the same submit/complete path a real File does; only the underlying
// storage is fake. Used by tests that need a metablock ring without a
// real disk.
type MemFile struct {
	mu   sync.Mutex
	data []byte
	pool *runtime.BlockingPool
}

// NewMemFile returns a MemFile with size bytes of zeroed backing storage.
func NewMemFile(size int, pool *runtime.BlockingPool) *MemFile {
	return &MemFile{data: make([]byte, size), pool: pool}
}

func (m *MemFile) ReadAsync(w *runtime.Worker, offset int64, buf []byte, done Completion) {
	m.pool.Submit(runtime.BlockingJob{
		Run: func() (int, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			n := copy(buf, m.data[offset:offset+int64(len(buf))])
			return n, nil
		},
		PostBack: func(n int, err error) {
			w.PostCompletion(runtime.NewCallbackMessage(func(*runtime.Worker) {
				done(n, err)
			}))
		},
	})
}

func (m *MemFile) WriteAsync(w *runtime.Worker, offset int64, buf []byte, done Completion) {
	m.pool.Submit(runtime.BlockingJob{
		Run: func() (int, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			n := copy(m.data[offset:offset+int64(len(buf))], buf)
			return n, nil
		},
		PostBack: func(n int, err error) {
			w.PostCompletion(runtime.NewCallbackMessage(func(*runtime.Worker) {
				done(n, err)
			}))
		},
	})
}

func (m *MemFile) BlockSize() int { return 512 }

func (m *MemFile) Close() error { return nil }

// Corrupt flips every bit in n bytes starting at offset. It exists for
// tests that need to simulate a torn or corrupted write without a real
// crash.
func (m *MemFile) Corrupt(offset int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := int64(0); i < int64(n); i++ {
		m.data[offset+i] ^= 0xFF
	}
}
