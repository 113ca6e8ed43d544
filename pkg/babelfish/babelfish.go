// Package babelfish wires the pipeline together: one event store shared by
// the USB ingest task and the host dispatch task, one host emulator active
// for the lifetime of the process.
package babelfish

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger"
	"github.com/toshok/babelfish/hostapi"
	"github.com/toshok/babelfish/hosts"
	"github.com/toshok/babelfish/internal/board"
	"github.com/toshok/babelfish/internal/cmdmode"
	"github.com/toshok/babelfish/internal/configsvc"
	"github.com/toshok/babelfish/internal/debugsvc"
	"github.com/toshok/babelfish/internal/eventstore"
	"github.com/toshok/babelfish/internal/hostsvc"
	"github.com/toshok/babelfish/internal/selstore"
	"github.com/toshok/babelfish/internal/usbsvc"
	"github.com/toshok/babelfish/internal/usbsvc/hidraw"
	"github.com/toshok/babelfish/pkg/loghub"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// defaultHostIndex matches the board's factory default (apollo).
const defaultHostIndex = 2

type Runtime struct {
	config Config
	log    *zap.Logger
	hub    *loghub.Hub

	db       *badger.DB
	registry *hostapi.Registry
	board    *board.Board
	store    *eventstore.Store
	selStore *selstore.Store

	hostIndex int
	host      hostapi.Host

	configSvc *configsvc.Service
	usbSvc    *usbsvc.Service
	hostSvc   *hostsvc.Service
	debugSvc  *debugsvc.Service
}

type runtimeOptions struct {
	ports *[board.NumChannels]board.Port
	muxes *[board.NumChannels]board.MuxDriver
	leds  board.LEDDriver
	reset func()
	usb   []usbsvc.Option
}

type Option func(*runtimeOptions)

// WithBoard supplies real board-support drivers. Without it the channels
// run on in-memory loopbacks, which is only useful for bench work.
func WithBoard(ports [board.NumChannels]board.Port, muxes [board.NumChannels]board.MuxDriver, leds board.LEDDriver) Option {
	return func(o *runtimeOptions) {
		o.ports = &ports
		o.muxes = &muxes
		o.leds = leds
	}
}

// WithResetFunc sets the bootloader-reset hook invoked by the magic CDC
// baud rate.
func WithResetFunc(reset func()) Option {
	return func(o *runtimeOptions) {
		o.reset = reset
	}
}

// WithUSBBackend adds an extra ingest backend (tests use fakes).
func WithUSBBackend(name string, backend usbsvc.Backend) Option {
	return func(o *runtimeOptions) {
		o.usb = append(o.usb, usbsvc.WithBackend(name, backend))
	}
}

func NewRuntime(config Config, opts ...Option) (*Runtime, error) {
	var options runtimeOptions
	for _, opt := range opts {
		opt(&options)
	}

	hub := loghub.New(1000)
	logger, err := buildLogger(hub)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("==== B A B E L F I S H ====")

	dbOptions := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: logger.Named("badger")}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	r := &Runtime{
		config:   config,
		log:      logger,
		hub:      hub,
		db:       db,
		store:    eventstore.New(),
		selStore: selstore.New(logger.Named("selstore"), db),
		registry: hostapi.NewRegistry(),
	}
	hosts.Register(r.registry)

	if options.ports != nil {
		r.board = board.New(logger.Named("board"), *options.ports, *options.muxes, options.leds)
	} else {
		r.board, _ = board.NewLoopback(logger.Named("board"))
	}
	r.board.LEDs().Startup()

	r.configSvc = configsvc.New(logger.Named("config"))

	settings, err := r.loadSettings()
	if err != nil {
		return nil, err
	}

	if err := r.selectHost(settings); err != nil {
		return nil, err
	}

	filter := cmdmode.New(logger.Named("cmdmode"), r.host)
	cmdmode.RegisterBuiltins(filter, r.registry, r.hostIndex, r.selStore)

	reset := options.reset
	if reset == nil {
		reset = func() {
			logger.Warn("bootloader reset requested, no board attached")
		}
	}
	cdc := board.NewCDC(logger.Named("cdc"), reset)

	usbOpts := options.usb
	if len(usbOpts) == 0 {
		usbOpts = []usbsvc.Option{
			usbsvc.WithBackend("hidraw", hidraw.NewBackend(logger.Named("usb.hidraw"))),
		}
	}
	r.usbSvc = usbsvc.New(logger.Named("usb"), r.store, usbOpts...)
	r.hostSvc = hostsvc.New(logger.Named("host"), r.store, filter, r.host)
	r.debugSvc = debugsvc.New(logger.Named("debug"), settings.DebugAddr, hub, cdc)

	return r, nil
}

// loadSettings reads babelfish.yml if configured. A missing file is fine;
// defaults apply.
func (r *Runtime) loadSettings() (Settings, error) {
	if r.config.Settings == "" {
		return Settings{}, nil
	}
	// registration happens once the watcher exists; reads before Start
	// use a plain load
	settings, err := configsvc.Load(r.config.Settings, Settings{})
	if err != nil {
		r.log.Warn("settings not loaded, using defaults", zap.Error(err))
		return Settings{}, nil
	}
	return settings, nil
}

// selectHost resolves the boot-time host: persisted selection first, then
// the configured name, then the factory default. The chosen host is
// initialized exactly once and never replaced.
func (r *Runtime) selectHost(settings Settings) error {
	index := defaultHostIndex
	if settings.Host != "" {
		if i, ok := r.registry.IndexOf(settings.Host); ok {
			index = i
		} else {
			r.log.Warn("unknown host in settings", zap.String("host", settings.Host))
		}
	}
	if i, ok, err := r.selStore.Selected(); err != nil {
		r.log.Error("failed to read persisted selection", zap.Error(err))
	} else if ok {
		if i >= 0 && i < r.registry.Len() {
			index = i
		} else {
			r.log.Warn("persisted selection out of range", zap.Int("index", i))
		}
	}

	host, err := r.registry.New(index, r.board)
	if err != nil {
		return err
	}
	if err := host.Init(); err != nil {
		return fmt.Errorf("host %s init: %w", host.Descriptor().Name, err)
	}
	r.hostIndex = index
	r.host = host
	r.log.Info("host initialized",
		zap.String("host", host.Descriptor().Name),
		zap.String("notes", host.Descriptor().Notes))
	return nil
}

// Run starts the tasks and blocks until the context is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return r.configSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return r.watchSettings(groupCtx)
	})
	group.Go(func() error {
		return r.usbSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return r.hostSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return r.debugSvc.Start(groupCtx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("babelfish failed: %w", err)
	}
	return nil
}

// watchSettings keeps an eye on babelfish.yml so operators get immediate
// feedback on edits. Selection still only applies at the next boot.
func (r *Runtime) watchSettings(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-r.configSvc.Ready():
	}
	if r.config.Settings == "" {
		return nil
	}
	_, err := configsvc.Register(r.configSvc, r.config.Settings, Settings{}, func(s Settings, err error) {
		if err != nil {
			r.log.Error("settings reload failed", zap.Error(err))
			return
		}
		r.log.Info("settings changed, host selection applies on next boot",
			zap.String("host", s.Host))
	})
	if err != nil {
		r.log.Warn("settings watch not registered", zap.Error(err))
	}
	return nil
}

func (r *Runtime) Close() error {
	return r.db.Close()
}

func (r *Runtime) USB() *usbsvc.Service {
	return r.usbSvc
}

func (r *Runtime) Hosts() *hostapi.Registry {
	return r.registry
}

func (r *Runtime) Selection() *selstore.Store {
	return r.selStore
}

func (r *Runtime) ActiveHost() (int, hostapi.Descriptor) {
	return r.hostIndex, r.host.Descriptor()
}

func buildLogger(hub *loghub.Hub) (*zap.Logger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, err
	}

	hubEncCfg := zap.NewDevelopmentEncoderConfig()
	hubEncCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
	hubCore := zapcore.NewCore(zapcore.NewConsoleEncoder(hubEncCfg), zapcore.AddSync(hub), zapcore.DebugLevel)
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, hubCore)
	})), nil
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}
