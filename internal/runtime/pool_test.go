package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStartDeliversInitialMessage(t *testing.T) {
	p := New(1)
	var wg sync.WaitGroup
	wg.Add(1)
	initial := NewCallbackMessage(func(w *Worker) {
		assert.Equal(t, 0, w.ID)
		wg.Done()
	})
	require.NoError(t, p.Start(initial))
	defer p.Shutdown()

	waitOrTimeout(t, &wg, time.Second)
}

func TestPoolCrossWorkerPost(t *testing.T) {
	p := New(2)
	require.NoError(t, p.Start(nil))
	defer p.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	p.PostExternal(1, NewCallbackMessage(func(w *Worker) {
		assert.Equal(t, 1, w.ID)
		wg.Done()
	}))
	waitOrTimeout(t, &wg, time.Second)
}

func TestPoolShutdownIsIdempotent(t *testing.T) {
	p := New(1)
	require.NoError(t, p.Start(nil))
	p.Shutdown()
	p.Shutdown()
}

func TestPoolDoubleStartFails(t *testing.T) {
	p := New(1)
	require.NoError(t, p.Start(nil))
	defer p.Shutdown()
	assert.ErrorIs(t, p.Start(nil), ErrAlreadyStarted)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting")
	}
}
