package events

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	ID int
}

func newTestRegistry() *Registry {
	return NewRegistry(zerolog.Nop())
}

func TestTwoListenersUnsubscribeOne(t *testing.T) {
	r := newTestRegistry()

	var first, second []int
	h1 := On(r, "new_message", func(m message) { first = append(first, m.ID) })
	On(r, "new_message", func(m message) { second = append(second, m.ID) })

	r.Publish("new_message", message{ID: 1})
	h1()
	r.Publish("new_message", message{ID: 2})
	r.Publish("new_message", message{ID: 3})

	assert.Equal(t, []int{1}, first)
	assert.Equal(t, []int{1, 2, 3}, second)
}

func TestHandleIdempotent(t *testing.T) {
	r := newTestRegistry()

	var calls int
	h1 := r.Subscribe("k", func(any) { calls++ })
	r.Subscribe("k", func(any) { calls++ })

	h1()
	h1()
	h1()

	assert.Equal(t, 1, r.Count("k"))
	r.Publish("k", nil)
	assert.Equal(t, 1, calls)
}

func TestSameCallbackTwiceIsTwoRegistrations(t *testing.T) {
	r := newTestRegistry()

	var calls int
	fn := func(any) { calls++ }
	h := r.Subscribe("k", fn)
	r.Subscribe("k", fn)

	h()
	r.Publish("k", nil)
	assert.Equal(t, 1, calls)
}

func TestOrderPreservedPerSubscriber(t *testing.T) {
	r := newTestRegistry()

	var got []int
	On(r, "k", func(m message) { got = append(got, m.ID) })
	for i := 0; i < 50; i++ {
		r.Publish("k", message{ID: i})
	}

	require.Len(t, got, 50)
	for i, id := range got {
		assert.Equal(t, i, id)
	}
}

func TestKindsAreIsolated(t *testing.T) {
	r := newTestRegistry()

	var online int
	r.Subscribe("user_online", func(any) { online++ })
	r.Publish("user_offline", nil)

	assert.Zero(t, online)
}

func TestTypedListenerIgnoresOtherTypes(t *testing.T) {
	r := newTestRegistry()

	var got []int
	On(r, "k", func(m message) { got = append(got, m.ID) })
	r.Publish("k", "not a message")
	r.Publish("k", message{ID: 4})

	assert.Equal(t, []int{4}, got)
}

func TestClosedRegistry(t *testing.T) {
	r := newTestRegistry()

	var calls int
	h := r.Subscribe("k", func(any) { calls++ })
	r.Close()

	r.Publish("k", nil)
	assert.Zero(t, calls)
	assert.NotPanics(t, func() { h() })

	late := r.Subscribe("k", func(any) { calls++ })
	assert.NotPanics(t, func() { late() })
	r.Publish("k", nil)
	assert.Zero(t, calls)
}

func TestNilSafety(t *testing.T) {
	var r *Registry
	h := On(r, "k", func(message) {})
	assert.NotPanics(t, func() { h() })

	real := newTestRegistry()
	assert.NotPanics(t, func() { real.Subscribe("k", nil)() })
}

func TestPanickingListenerDoesNotStopDelivery(t *testing.T) {
	r := newTestRegistry()

	var delivered bool
	r.Subscribe("k", func(any) { panic("boom") })
	r.Subscribe("k", func(any) { delivered = true })

	assert.NotPanics(t, func() { r.Publish("k", nil) })
	assert.True(t, delivered)
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	r := newTestRegistry()

	var second int
	var h Handle
	h = r.Subscribe("k", func(any) { h() })
	r.Subscribe("k", func(any) { second++ })

	r.Publish("k", nil)
	r.Publish("k", nil)

	assert.Equal(t, 2, second)
	assert.Equal(t, 1, r.Count("k"))
}

func TestConcurrentSubscribePublish(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h := r.Subscribe("k", func(any) {})
				r.Publish("k", nil)
				h()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, r.Count("k"))
}
