// Package usbsvc is the USB ingest task: it owns the USB host backends,
// normalizes their boot-protocol reports, and feeds the event store. It is
// a pure producer; the dispatch side never calls into it.
package usbsvc

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/internal/eventstore"
	"github.com/toshok/babelfish/pkg/bus"
	"go.uber.org/zap"
)

type DeviceKind uint8

const (
	DeviceKeyboard DeviceKind = iota
	DeviceMouse
)

func (k DeviceKind) String() string {
	if k == DeviceMouse {
		return "mouse"
	}
	return "keyboard"
}

// Device describes one mounted HID device.
type Device struct {
	ID   string
	Name string
	Kind DeviceKind
}

// Sink receives device lifecycle and raw report callbacks from a backend.
// All callbacks run on the backend's goroutines.
type Sink interface {
	DeviceAttached(dev Device)
	DeviceDetached(id string)
	Report(id string, report []byte)
}

// Backend drives one physical USB host port.
type Backend interface {
	Start(ctx context.Context, sink Sink) error
	Ready() <-chan struct{}
}

type DeviceEventType uint8

const (
	DeviceAttached DeviceEventType = iota
	DeviceDetached
)

type DeviceEvent struct {
	Type   DeviceEventType
	Device Device
}

type DeviceBus = bus.Bus[DeviceKind, DeviceEvent]

type Service struct {
	log   *zap.Logger
	store *eventstore.Store

	backends  map[string]Backend
	devices   *xsync.MapOf[string, Device]
	deviceBus *DeviceBus

	// at most one keyboard and one mouse are bound; extra devices are
	// ignored until the bound one detaches
	boundKbd   *xsync.MapOf[string, *Normalizer]
	boundMouse *xsync.MapOf[string, struct{}]

	ready chan struct{}
}

type Option func(*Service)

func WithBackend(name string, backend Backend) Option {
	return func(s *Service) {
		s.backends[name] = backend
	}
}

func New(log *zap.Logger, store *eventstore.Store, opts ...Option) *Service {
	s := &Service{
		log:        log,
		store:      store,
		backends:   make(map[string]Backend),
		devices:    xsync.NewMapOf[string, Device](),
		boundKbd:   xsync.NewMapOf[string, *Normalizer](),
		boundMouse: xsync.NewMapOf[string, struct{}](),
		ready:      make(chan struct{}),
	}
	s.deviceBus = bus.NewBus[DeviceKind, DeviceEvent](log.Named("bus"))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start pumps every backend until ctx is cancelled. This is the secondary
// "core" of the firmware: all HID callbacks land here and only touch the
// event store.
func (s *Service) Start(ctx context.Context) error {
	s.deviceBus.Start(ctx)
	errCh := make(chan error, len(s.backends))
	for name, backend := range s.backends {
		name, backend := name, backend
		go func() {
			if err := backend.Start(ctx, s); err != nil {
				errCh <- fmt.Errorf("usb backend %s: %w", name, err)
			}
		}()
	}
	for _, backend := range s.backends {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case <-backend.Ready():
		}
	}
	close(s.ready)
	s.log.Info("USB ingest started", zap.Int("backends", len(s.backends)))
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// SubscribeDevices exposes attach/detach events (used by the CLI and the
// port-OK LED).
func (s *Service) SubscribeDevices(ctx context.Context) <-chan bus.Message[DeviceKind, DeviceEvent] {
	return s.deviceBus.Subscribe(ctx)
}

// Devices lists currently mounted devices.
func (s *Service) Devices() []Device {
	var devs []Device
	s.devices.Range(func(_ string, dev Device) bool {
		devs = append(devs, dev)
		return true
	})
	return devs
}

func (s *Service) DeviceAttached(dev Device) {
	s.devices.Store(dev.ID, dev)
	switch dev.Kind {
	case DeviceKeyboard:
		if s.boundKbd.Size() == 0 {
			s.boundKbd.Store(dev.ID, NewNormalizer())
			s.log.Info("keyboard bound", zap.String("id", dev.ID), zap.String("name", dev.Name))
		} else {
			s.log.Warn("ignoring additional keyboard", zap.String("id", dev.ID))
		}
	case DeviceMouse:
		if s.boundMouse.Size() == 0 {
			s.boundMouse.Store(dev.ID, struct{}{})
			s.log.Info("mouse bound", zap.String("id", dev.ID), zap.String("name", dev.Name))
		} else {
			s.log.Warn("ignoring additional mouse", zap.String("id", dev.ID))
		}
	}
	s.deviceBus.Publish(context.Background(), dev.Kind, DeviceEvent{Type: DeviceAttached, Device: dev})
}

func (s *Service) DeviceDetached(id string) {
	dev, ok := s.devices.LoadAndDelete(id)
	if !ok {
		return
	}
	s.boundKbd.Delete(id)
	s.boundMouse.Delete(id)
	s.log.Info("device detached", zap.String("id", id), zap.Stringer("kind", dev.Kind))
	s.deviceBus.Publish(context.Background(), dev.Kind, DeviceEvent{Type: DeviceDetached, Device: dev})
}

// Report normalizes one raw boot report and enqueues the resulting events.
func (s *Service) Report(id string, report []byte) {
	if norm, ok := s.boundKbd.Load(id); ok {
		for _, e := range norm.OnKeyboardReport(report) {
			s.store.EnqueueKeyboard(e)
		}
		return
	}
	if _, ok := s.boundMouse.Load(id); ok {
		if e, ok := hidapi.DecodeBootMouseReport(report); ok {
			s.store.EnqueueMouse(e)
		}
	}
}
