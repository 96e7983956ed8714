// Package engine wires the runtime pool, the blocking-backed direct file,
// and a metablock ring together into the one object a caller needs: an
// Engine that durably tracks a single root pointer across restarts.
package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"driftstore/internal/config"
	"driftstore/internal/extent"
	"driftstore/internal/ioengine"
	"driftstore/internal/metablock"
	"driftstore/internal/runtime"
)

// RootPointer is the payload the metablock ring durably tracks: the
// location and length of the storage engine's current root structure.
// A real storage engine would track something richer (an LBA, a
// generation, maybe a checksum of the root itself); this is the minimal
// shape that exercises the ring end to end.
type RootPointer struct {
	Offset uint64
	Length uint64
}

// RootCodec is the Codec the engine uses to marshal a RootPointer into
// its fixed 16-byte on-disk form.
var RootCodec = metablock.Codec[RootPointer]{
	Size: 16,
	Marshal: func(v RootPointer, buf []byte) {
		binary.LittleEndian.PutUint64(buf[0:8], v.Offset)
		binary.LittleEndian.PutUint64(buf[8:16], v.Length)
	},
	Unmarshal: func(buf []byte) RootPointer {
		return RootPointer{
			Offset: binary.LittleEndian.Uint64(buf[0:8]),
			Length: binary.LittleEndian.Uint64(buf[8:16]),
		}
	},
}

// Engine is a running pool plus a metablock ring confined to worker 0.
type Engine struct {
	RunID string

	pool *runtime.Pool
	file ioengine.DirectFile
	mgr  *metablock.Manager[RootPointer]
	log  *zap.Logger
}

// Open starts the runtime pool, opens (or creates) the ring file under
// cfg.DataDir, and recovers the most recent root pointer. onReady is
// invoked once recovery completes, on worker 0.
func Open(cfg config.Config, log *zap.Logger, onReady func(found bool, root RootPointer, err error)) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nWorkers := cfg.Workers
	if nWorkers <= 0 {
		nWorkers = 1
	}

	pool := runtime.New(nWorkers,
		runtime.WithAffinity(cfg.Affinity),
		runtime.WithBlockingPoolSize(cfg.BlockingPool),
		runtime.WithAlarmFallback(cfg.AlarmMS),
		runtime.WithLogger(log),
	)
	if err := pool.Start(nil); err != nil {
		return nil, fmt.Errorf("engine: starting pool: %w", err)
	}

	e := &Engine{
		RunID: uuid.NewString(),
		pool:  pool,
		log:   log,
	}

	// The ring's file is opened for direct, unbuffered I/O (see
	// ioengine.Open), so both the slot size and the static header ahead of
	// it must be device-block multiples: ReadAt/WriteAt against an
	// O_DIRECT descriptor reject a buffer or offset that isn't.
	blockSize := int64(ioengine.DirectBlockSize())
	recordSize := metablock.AlignRecordSize(metablock.RecordSize(RootCodec), blockSize)
	staticHeaderSize := metablock.AlignRecordSize(4096, blockSize)
	extentSize := recordSize * 64
	extentsMgr := extent.NewBumpManager(extentSize, extentSize*metablock.NExtents*metablock.ExtentSeparation)
	geom, err := metablock.PrepareGeometry(context.Background(), extentsMgr, recordSize, staticHeaderSize)
	if err != nil {
		pool.Shutdown()
		return nil, fmt.Errorf("engine: reserving ring extents: %w", err)
	}
	header := metablock.StaticHeader{Geometry: geom, Magic: metablock.DefaultMagic}

	ringPath := cfg.DataDir
	if ringPath == "" {
		ringPath = "driftstore.ring"
	} else {
		ringPath = ringPath + string(os.PathSeparator) + "driftstore.ring"
	}

	done := make(chan error, 1)
	pool.PostExternal(0, runtime.NewCallbackMessage(func(w *runtime.Worker) {
		file, err := ioengine.Open(ringPath, w.Blocker())
		if err != nil {
			done <- fmt.Errorf("engine: opening ring file: %w", err)
			return
		}
		e.file = file
		e.mgr = metablock.NewManager(w, file, header, RootCodec,
			metablock.WithLogger[RootPointer](log))

		if err := e.mgr.Start(func(found bool, root RootPointer, startErr error) {
			if onReady != nil {
				onReady(found, root, startErr)
			}
			done <- startErr
		}); err != nil {
			done <- err
		}
	}))
	if err := <-done; err != nil {
		pool.Shutdown()
		return nil, err
	}
	return e, nil
}

// WriteRoot durably records a new root pointer, delivering err to done
// once the write has landed (or failed). Safe to call from any goroutine.
func (e *Engine) WriteRoot(root RootPointer, done func(error)) {
	e.pool.PostExternal(0, runtime.NewCallbackMessage(func(w *runtime.Worker) {
		if err := e.mgr.Write(root, done); err != nil {
			done(err)
		}
	}))
}

// Close shuts the ring down cleanly and stops the runtime pool.
func (e *Engine) Close() error {
	doneCh := make(chan struct{})
	e.pool.PostExternal(0, runtime.NewCallbackMessage(func(w *runtime.Worker) {
		e.mgr.Shutdown(func() { close(doneCh) })
	}))
	<-doneCh
	var result *multierror.Error
	result = multierror.Append(result, e.mgr.Close())
	result = multierror.Append(result, e.file.Close())
	e.pool.Shutdown()
	return result.ErrorOrNil()
}

// Container builds a dig container wiring config, logging, and the engine
// together, the same shape this module's reference CLI bootstrap uses for
// its own service graph.
func Container(onReady func(found bool, root RootPointer, err error)) (*dig.Container, error) {
	c := dig.New()
	providers := []interface{}{
		config.Load,
		func() *zap.Logger {
			log, _ := zap.NewProduction()
			return log
		},
		func(cfg config.Config, log *zap.Logger) (*Engine, error) {
			return Open(cfg, log, onReady)
		},
	}
	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}
