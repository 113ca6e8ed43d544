// Package loghub buffers recent log lines in memory and fans them out to
// subscribers. It backs the debug surface in place of the firmware's CDC
// serial console.
package loghub

import (
	"bytes"
	"sync"
)

type Hub struct {
	mu       sync.Mutex
	buf      []string
	capacity int
	subs     map[chan string]struct{}
}

func New(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Hub{
		capacity: capacity,
		subs:     make(map[chan string]struct{}),
	}
}

// Write makes the hub usable as a zap WriteSyncer sink.
func (h *Hub) Write(p []byte) (int, error) {
	for _, ln := range bytes.Split(p, []byte{'\n'}) {
		if len(ln) == 0 {
			continue
		}
		h.add(string(ln))
	}
	return len(p), nil
}

func (h *Hub) Sync() error {
	return nil
}

func (h *Hub) add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf = append(h.buf, line)
	if len(h.buf) > h.capacity {
		h.buf = h.buf[len(h.buf)-h.capacity:]
	}

	for ch := range h.subs {
		select {
		case ch <- line:
		default:
			// slow readers miss lines rather than stall logging
		}
	}
}

// Snapshot copies the buffered lines.
func (h *Hub) Snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.buf))
	copy(out, h.buf)
	return out
}

// Subscribe returns a channel of future lines and an unsubscribe func.
func (h *Hub) Subscribe(buffer int) (<-chan string, func()) {
	if buffer <= 0 {
		buffer = 128
	}
	ch := make(chan string, buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, unsub
}
