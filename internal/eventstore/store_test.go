package eventstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hidapi/usagepages"
)

func TestDrainReturnsEnqueueOrder(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.EnqueueKeyboard(hidapi.KeyDown(usagepages.KeyA + uint16(i)))
	}

	buf := make([]hidapi.KeyboardEvent, MaxQueuedEvents)
	n := s.DrainKeyboard(buf)
	require.Equal(t, 5, n)
	for i := 0; i < 5; i++ {
		assert.Equal(t, usagepages.KeyA+uint16(i), buf[i].Keycode)
	}

	// nothing survives a drain
	assert.Equal(t, 0, s.DrainKeyboard(buf))
}

func TestOverflowDropsNewest(t *testing.T) {
	s := New()
	for i := 0; i < 20; i++ {
		s.EnqueueKeyboard(hidapi.KeyDown(uint16(i + 1)))
	}

	buf := make([]hidapi.KeyboardEvent, MaxQueuedEvents)
	n := s.DrainKeyboard(buf)
	require.Equal(t, MaxQueuedEvents, n)
	for i := 0; i < MaxQueuedEvents; i++ {
		assert.Equal(t, uint16(i+1), buf[i].Keycode, "first 16 events survive in order")
	}
	kbdDropped, _ := s.Dropped()
	assert.Equal(t, uint64(4), kbdDropped)

	// queue usable again after the drain
	s.EnqueueKeyboard(hidapi.KeyDown(usagepages.KeyZ))
	assert.Equal(t, 1, s.DrainKeyboard(buf))
}

func TestQueuesAreIndependent(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		s.EnqueueKeyboard(hidapi.KeyDown(usagepages.KeyA + uint16(i)))
	}
	for i := 0; i < 5; i++ {
		s.EnqueueMouse(hidapi.MouseEvent{DX: int8(i + 1)})
	}

	kbdBuf := make([]hidapi.KeyboardEvent, MaxQueuedEvents)
	mouseBuf := make([]hidapi.MouseEvent, MaxQueuedEvents)
	require.Equal(t, 3, s.DrainKeyboard(kbdBuf))
	require.Equal(t, 5, s.DrainMouse(mouseBuf))
	for i := 0; i < 5; i++ {
		assert.Equal(t, int8(i+1), mouseBuf[i].DX)
	}
}

func TestConcurrentEnqueueDrain(t *testing.T) {
	s := New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 200; i++ {
			s.EnqueueKeyboard(hidapi.KeyDown(uint16(i)))
		}
	}()

	// observed events must be a subsequence of the enqueued ones
	buf := make([]hidapi.KeyboardEvent, MaxQueuedEvents)
	last := uint16(0)
	var observed []uint16
	for {
		n := s.DrainKeyboard(buf)
		for _, e := range buf[:n] {
			require.Greater(t, e.Keycode, last, "drain order must follow enqueue order")
			last = e.Keycode
			observed = append(observed, e.Keycode)
		}
		select {
		case <-done:
			if n := s.DrainKeyboard(buf); n == 0 {
				assert.NotEmpty(t, observed)
				return
			}
		default:
		}
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.EnqueueMouse(hidapi.MouseEvent{DX: 1})
			}
		}()
	}
	wg.Wait()
	buf := make([]hidapi.MouseEvent, MaxQueuedEvents)
	assert.LessOrEqual(t, s.DrainMouse(buf), MaxQueuedEvents)
}
