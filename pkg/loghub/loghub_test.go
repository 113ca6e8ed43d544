package loghub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSplitsLines(t *testing.T) {
	h := New(10)

	n, err := h.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.Equal(t, []string{"first", "second"}, h.Snapshot())
}

func TestBufferIsBounded(t *testing.T) {
	h := New(3)

	h.Write([]byte("a\nb\nc\nd\n"))
	assert.Equal(t, []string{"b", "c", "d"}, h.Snapshot())
}

func TestSubscribeReceivesNewLines(t *testing.T) {
	h := New(10)
	h.Write([]byte("old\n"))

	ch, unsub := h.Subscribe(4)
	defer unsub()

	h.Write([]byte("new\n"))
	assert.Equal(t, "new", <-ch)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := New(10)
	ch, unsub := h.Subscribe(1)

	unsub()
	unsub() // idempotent

	_, ok := <-ch
	assert.False(t, ok)
}

func TestSlowSubscriberDoesNotStallWrites(t *testing.T) {
	h := New(10)
	_, unsub := h.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			h.Write([]byte("line\n"))
		}
	}()
	<-done
	assert.Len(t, h.Snapshot(), 10)
}
