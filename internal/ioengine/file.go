package ioengine

import (
	"os"

	"github.com/ncw/directio"

	"driftstore/internal/runtime"
)

// File is a DirectFile backed by a real O_DIRECT file descriptor. Reads
// and writes run on a runtime.BlockingPool helper thread; File only
// submits and wires up the completion, it never touches the fd itself.
type File struct {
	f    *os.File
	pool *runtime.BlockingPool
}

// Open opens path for direct, unbuffered I/O, dispatching blocking
// syscalls to pool. The file is created if it does not exist.
func Open(path string, pool *runtime.BlockingPool) (*File, error) {
	f, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{f: f, pool: pool}, nil
}

func (d *File) ReadAsync(w *runtime.Worker, offset int64, buf []byte, done Completion) {
	fd := int(d.f.Fd())
	w.Watch(fd)
	d.pool.Submit(runtime.BlockingJob{
		Run: func() (int, error) {
			return d.f.ReadAt(buf, offset)
		},
		PostBack: func(n int, err error) {
			w.PostCompletion(runtime.NewCallbackMessage(func(cw *runtime.Worker) {
				cw.Unwatch(fd)
				done(n, err)
			}))
		},
	})
}

func (d *File) WriteAsync(w *runtime.Worker, offset int64, buf []byte, done Completion) {
	fd := int(d.f.Fd())
	w.Watch(fd)
	d.pool.Submit(runtime.BlockingJob{
		Run: func() (int, error) {
			return d.f.WriteAt(buf, offset)
		},
		PostBack: func(n int, err error) {
			w.PostCompletion(runtime.NewCallbackMessage(func(cw *runtime.Worker) {
				cw.Unwatch(fd)
				done(n, err)
			}))
		},
	})
}

func (d *File) BlockSize() int {
	return directio.BlockSize
}

// DirectBlockSize returns the alignment a direct-I/O file requires for its
// offsets and buffer lengths. It is available without opening a file, so a
// caller can size a ring's Geometry before the first Open call.
func DirectBlockSize() int {
	return directio.BlockSize
}

func (d *File) Close() error {
	return d.f.Close()
}
