// Package hidraw is the hidapi-based USB ingest backend. It enumerates
// boot-protocol keyboards and mice, opens them, and pumps their reports
// into the ingest sink. Hotplug is handled by periodic re-enumeration.
package hidraw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sstallion/go-hid"
	"github.com/toshok/babelfish/internal/usbsvc"
	"go.uber.org/zap"
)

// Generic desktop page usages distinguishing keyboards from mice.
const (
	usagePageDesktop = 0x01
	usageKeyboard    = 0x06
	usageMouse       = 0x02
)

var defaultOptions = options{
	pollInterval: 1 * time.Second,
	readTimeout:  250 * time.Millisecond,
}

type options struct {
	pollInterval time.Duration
	readTimeout  time.Duration
}

type Option func(*options)

func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

type Backend struct {
	log     *zap.Logger
	options options

	opened *xsync.MapOf[string, *openDevice]
	ready  chan struct{}
}

type openDevice struct {
	dev    *hid.Device
	cancel context.CancelFunc
}

func NewBackend(log *zap.Logger, opts ...Option) *Backend {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Backend{
		log:     log,
		options: o,
		opened:  xsync.NewMapOf[string, *openDevice](),
		ready:   make(chan struct{}),
	}
}

func (b *Backend) Ready() <-chan struct{} {
	return b.ready
}

func (b *Backend) Start(ctx context.Context, sink usbsvc.Sink) error {
	if err := hid.Init(); err != nil {
		return fmt.Errorf("hidapi init: %w", err)
	}
	defer hid.Exit()

	if err := b.refresh(ctx, sink); err != nil {
		b.log.Error("initial enumeration failed", zap.Error(err))
	}
	close(b.ready)
	b.log.Info("hidraw backend started")

	ticker := time.NewTicker(b.options.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.closeAll(sink)
			return nil
		case <-ticker.C:
			if err := b.refresh(ctx, sink); err != nil {
				b.log.Error("enumeration failed", zap.Error(err))
			}
		}
	}
}

func (b *Backend) refresh(ctx context.Context, sink usbsvc.Sink) error {
	seen := make(map[string]hid.DeviceInfo)
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		if info.UsagePage != usagePageDesktop {
			return nil
		}
		if info.Usage != usageKeyboard && info.Usage != usageMouse {
			return nil
		}
		seen[info.Path] = *info
		return nil
	})
	if err != nil {
		return err
	}

	b.opened.Range(func(path string, od *openDevice) bool {
		if _, ok := seen[path]; !ok {
			od.cancel()
			od.dev.Close()
			b.opened.Delete(path)
			sink.DeviceDetached(path)
		}
		return true
	})

	for path, info := range seen {
		if _, ok := b.opened.Load(path); ok {
			continue
		}
		b.open(ctx, sink, info)
	}
	return nil
}

func (b *Backend) open(ctx context.Context, sink usbsvc.Sink, info hid.DeviceInfo) {
	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		b.log.Warn("failed to open device", zap.String("path", info.Path), zap.Error(err))
		return
	}
	kind := usbsvc.DeviceKeyboard
	if info.Usage == usageMouse {
		kind = usbsvc.DeviceMouse
	}
	devCtx, cancel := context.WithCancel(ctx)
	b.opened.Store(info.Path, &openDevice{dev: dev, cancel: cancel})
	sink.DeviceAttached(usbsvc.Device{
		ID:   info.Path,
		Name: deviceName(info),
		Kind: kind,
	})
	go b.readLoop(devCtx, sink, info.Path, dev)
}

func (b *Backend) readLoop(ctx context.Context, sink usbsvc.Sink, id string, dev *hid.Device) {
	buf := make([]byte, 16)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := dev.ReadWithTimeout(buf, b.options.readTimeout)
		if err != nil {
			if errors.Is(err, hid.ErrTimeout) {
				continue
			}
			b.log.Debug("device read failed", zap.String("id", id), zap.Error(err))
			return
		}
		if n == 0 {
			continue
		}
		report := make([]byte, n)
		copy(report, buf[:n])
		sink.Report(id, report)
	}
}

func (b *Backend) closeAll(sink usbsvc.Sink) {
	b.opened.Range(func(path string, od *openDevice) bool {
		od.cancel()
		od.dev.Close()
		b.opened.Delete(path)
		sink.DeviceDetached(path)
		return true
	})
}

func deviceName(info hid.DeviceInfo) string {
	var parts []string
	if info.MfrStr != "" {
		parts = append(parts, info.MfrStr)
	}
	if info.ProductStr != "" {
		parts = append(parts, info.ProductStr)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%04x:%04x", info.VendorID, info.ProductID)
	}
	return strings.Join(parts, " ")
}
