// Package hostsvc is the host dispatch task: it drains the event store,
// runs keyboard events through the command-mode filter, forwards the rest
// to the active host emulator, and ticks the emulator's Update.
package hostsvc

import (
	"context"
	"time"

	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hostapi"
	"github.com/toshok/babelfish/internal/cmdmode"
	"github.com/toshok/babelfish/internal/eventstore"
	"go.uber.org/zap"
)

// tickInterval paces the dispatch loop. The firmware spins; a daemon
// sleeps a millisecond instead, which is still far above the aggregate
// event rate.
const tickInterval = 1 * time.Millisecond

type Service struct {
	log    *zap.Logger
	store  *eventstore.Store
	filter *cmdmode.Filter
	host   hostapi.Host

	// devicePoll services the board's own USB device stack (debug
	// serial). May be nil.
	devicePoll func()

	ready chan struct{}
}

type Option func(*Service)

func WithDevicePoll(fn func()) Option {
	return func(s *Service) {
		s.devicePoll = fn
	}
}

func New(log *zap.Logger, store *eventstore.Store, filter *cmdmode.Filter, host hostapi.Host, opts ...Option) *Service {
	s := &Service{
		log:    log,
		store:  store,
		filter: filter,
		host:   host,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start runs the dispatch loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	kbdBuf := make([]hidapi.KeyboardEvent, eventstore.MaxQueuedEvents)
	mouseBuf := make([]hidapi.MouseEvent, eventstore.MaxQueuedEvents)

	close(s.ready)
	s.log.Info("dispatch started", zap.String("host", s.host.Descriptor().Name))

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.iterate(kbdBuf, mouseBuf)
		}
	}
}

// iterate is one pass of the firmware mainloop. All keyboard events of a
// batch are handled before any mouse events; each queue keeps its own
// order.
func (s *Service) iterate(kbdBuf []hidapi.KeyboardEvent, mouseBuf []hidapi.MouseEvent) {
	n := s.store.DrainKeyboard(kbdBuf)
	for _, e := range kbdBuf[:n] {
		if s.filter.ProcessEvent(e) {
			continue
		}
		s.log.Debug("xmit", zap.Stringer("event", e))
		s.host.KeyboardEvent(e)
	}

	n = s.store.DrainMouse(mouseBuf)
	for _, e := range mouseBuf[:n] {
		s.host.MouseEvent(e)
	}

	s.host.Update()

	if s.devicePoll != nil {
		s.devicePoll()
	}
}
