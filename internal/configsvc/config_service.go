// Package configsvc watches configuration files and notifies clients of
// changes. Host selection changes only take effect on the next boot; the
// watch exists so operators can see a bad edit immediately in the logs.
package configsvc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

type subscriber func(event fsnotify.Event)

type Service struct {
	log *zap.Logger

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	subscribers []subscriber
	hashes      map[string]uint64
	ready       chan struct{}
}

func New(log *zap.Logger) *Service {
	return &Service{
		log:    log,
		hashes: make(map[string]uint64),
		ready:  make(chan struct{}),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	s.watcher = watcher
	defer s.watcher.Close()
	close(s.ready)
	s.log.Info("config service started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.mu.Lock()
			subs := append([]subscriber(nil), s.subscribers...)
			s.mu.Unlock()
			for _, sub := range subs {
				sub(event)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("watcher error", zap.Error(err))
		}
	}
}

// Register reads the config at path and arranges for fn to be called on
// every content change. Editor write storms are collapsed by hashing the
// file contents. Service is a parameter instead of the receiver to allow
// the generic type.
func Register[T any](s *Service, path string, def T, fn func(config T, err error)) (T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return def, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	config, raw, err := readConfig(absPath, def)
	if err != nil {
		return def, fmt.Errorf("failed to read config: %w", err)
	}

	if err := s.watcher.Add(filepath.Dir(absPath)); err != nil {
		return def, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	s.mu.Lock()
	s.hashes[absPath] = xxhash.Sum64(raw)
	s.subscribers = append(s.subscribers, func(event fsnotify.Event) {
		if event.Name != absPath || (!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create)) {
			return
		}
		newConfig, raw, err := readConfig(absPath, def)
		if err == nil {
			sum := xxhash.Sum64(raw)
			s.mu.Lock()
			unchanged := s.hashes[absPath] == sum
			s.hashes[absPath] = sum
			s.mu.Unlock()
			if unchanged {
				return
			}
		}
		fn(newConfig, err)
	})
	s.mu.Unlock()

	return config, nil
}

// Load reads a config file once, without watching it.
func Load[T any](path string, def T) (T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return def, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	config, _, err := readConfig(absPath, def)
	return config, err
}

func readConfig[T any](path string, def T) (T, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return def, nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return def, raw, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return def, raw, nil
}
