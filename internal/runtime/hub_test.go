package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubLocalFIFO(t *testing.T) {
	h := NewHub(0, 2)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		h.PostLocal(NewCallbackMessage(func(*Worker) { order = append(order, i) }))
	}
	h.Drain(func(m Message) { m.Deliver(nil) })
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestHubDepositFIFOPerSource(t *testing.T) {
	h := NewHub(0, 2)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		h.depositFrom(1, NewCallbackMessage(func(*Worker) { order = append(order, i) }))
	}
	h.Pump()
	h.Drain(func(m Message) { m.Deliver(nil) })
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestHubExternalInbox(t *testing.T) {
	h := NewHub(0, 1)
	delivered := false
	h.PostExternal(NewCallbackMessage(func(*Worker) { delivered = true }))
	h.Pump()
	h.Drain(func(m Message) { m.Deliver(nil) })
	assert.True(t, delivered)
}

func TestMessagePostedTwicePanics(t *testing.T) {
	h := NewHub(0, 1)
	m := NewCallbackMessage(func(*Worker) {})
	h.PostLocal(m)
	require.Panics(t, func() { h.PostLocal(m) })
}

func TestHubEmptyAfterDrain(t *testing.T) {
	h := NewHub(0, 1)
	assert.True(t, h.Empty())
	h.PostLocal(NewCallbackMessage(func(*Worker) {}))
	assert.False(t, h.Empty())
	h.Drain(func(m Message) { m.Deliver(nil) })
	assert.True(t, h.Empty())
}
