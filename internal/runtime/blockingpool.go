package runtime

import (
	goruntime "runtime"
	"sync"
)

// BlockingJob is one unit of synchronous work dispatched to a BlockingPool
// helper thread, plus the continuation that delivers its result back to
// whichever worker submitted it.
type BlockingJob struct {
	Run      func() (int, error)
	PostBack func(n int, err error)
}

// BlockingPool is a fixed set of OS-thread-pinned goroutines that run
// blocking system calls (direct I/O, in this module's case) on behalf of
// workers that must never block their own event loop. Each helper locks
// itself to its OS thread because a blocking syscall must not stall a
// thread the scheduler expects to keep making progress.
type BlockingPool struct {
	jobs chan BlockingJob
	wg   sync.WaitGroup
}

// NewBlockingPool starts size helper goroutines and returns the pool
// handle. size should match the concurrency the underlying storage device
// can usefully absorb.
func NewBlockingPool(size int) *BlockingPool {
	p := &BlockingPool{
		jobs: make(chan BlockingJob, 4096),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.helper()
	}
	return p
}

func (p *BlockingPool) helper() {
	defer p.wg.Done()
	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()
	for job := range p.jobs {
		n, err := job.Run()
		job.PostBack(n, err)
	}
}

// Submit enqueues a job for a helper thread. While the 4096-job channel
// buffer has room it does not wait for a helper to be free; once the buffer
// is full, Submit blocks until a helper takes a job. A full buffer is a
// sign the pool is undersized for the workload.
func (p *BlockingPool) Submit(job BlockingJob) {
	p.jobs <- job
}

// Close stops accepting new jobs and waits for every helper to drain its
// current job and exit. Jobs already queued when Close is called still
// run to completion.
func (p *BlockingPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
