// Package eventstore is the shared hand-off point between the USB ingest
// task and the host dispatch task: two bounded FIFOs behind one mutex.
package eventstore

import (
	"sync"

	"github.com/toshok/babelfish/hidapi"
	"go.uber.org/atomic"
)

// MaxQueuedEvents bounds each queue. Input is soft-realtime; once a queue
// is full further enqueues are dropped until the next drain.
const MaxQueuedEvents = 16

type Store struct {
	mu sync.Mutex

	kbd      [MaxQueuedEvents]hidapi.KeyboardEvent
	kbdCount int

	mouse      [MaxQueuedEvents]hidapi.MouseEvent
	mouseCount int

	kbdDropped   atomic.Uint64
	mouseDropped atomic.Uint64
}

func New() *Store {
	return &Store{}
}

// EnqueueKeyboard appends one keyboard event. Drops silently when full;
// the producer is never blocked and never sees an error.
func (s *Store) EnqueueKeyboard(e hidapi.KeyboardEvent) {
	s.mu.Lock()
	if s.kbdCount < MaxQueuedEvents {
		s.kbd[s.kbdCount] = e
		s.kbdCount++
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.kbdDropped.Inc()
}

// EnqueueMouse appends one mouse event, with the same overflow policy.
func (s *Store) EnqueueMouse(e hidapi.MouseEvent) {
	s.mu.Lock()
	if s.mouseCount < MaxQueuedEvents {
		s.mouse[s.mouseCount] = e
		s.mouseCount++
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.mouseDropped.Inc()
}

// DrainKeyboard moves the entire queued batch into buf and empties the
// queue. buf must hold at least MaxQueuedEvents entries.
func (s *Store) DrainKeyboard(buf []hidapi.KeyboardEvent) int {
	s.mu.Lock()
	n := copy(buf, s.kbd[:s.kbdCount])
	s.kbdCount = 0
	s.mu.Unlock()
	return n
}

// DrainMouse is the mouse counterpart of DrainKeyboard.
func (s *Store) DrainMouse(buf []hidapi.MouseEvent) int {
	s.mu.Lock()
	n := copy(buf, s.mouse[:s.mouseCount])
	s.mouseCount = 0
	s.mu.Unlock()
	return n
}

// Dropped reports how many keyboard and mouse events have been discarded
// due to full queues since startup.
func (s *Store) Dropped() (kbd, mouse uint64) {
	return s.kbdDropped.Load(), s.mouseDropped.Load()
}
