package hostsvc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hidapi/usagepages"
	"github.com/toshok/babelfish/hostapi"
	"github.com/toshok/babelfish/internal/cmdmode"
	"github.com/toshok/babelfish/internal/eventstore"
	"go.uber.org/zap"
)

type syncHost struct {
	mu      sync.Mutex
	kbd     []hidapi.KeyboardEvent
	mouse   []hidapi.MouseEvent
	updates int
}

func (h *syncHost) Descriptor() hostapi.Descriptor { return hostapi.Descriptor{Name: "fake"} }
func (h *syncHost) Init() error                    { return nil }

func (h *syncHost) KeyboardEvent(e hidapi.KeyboardEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kbd = append(h.kbd, e)
}

func (h *syncHost) MouseEvent(e hidapi.MouseEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mouse = append(h.mouse, e)
}

func (h *syncHost) Update() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates++
}

func (h *syncHost) snapshot() (kbd []hidapi.KeyboardEvent, mouse []hidapi.MouseEvent, updates int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hidapi.KeyboardEvent(nil), h.kbd...), append([]hidapi.MouseEvent(nil), h.mouse...), h.updates
}

func TestDispatchForwardsBatches(t *testing.T) {
	store := eventstore.New()
	host := &syncHost{}
	filter := cmdmode.New(zap.NewNop(), host)

	var polls int
	svc := New(zap.NewNop(), store, filter, host, WithDevicePoll(func() { polls++ }))

	store.EnqueueKeyboard(hidapi.KeyDown(usagepages.KeyA))
	store.EnqueueKeyboard(hidapi.KeyUp(usagepages.KeyA))
	store.EnqueueMouse(hidapi.MouseEvent{DX: 7})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()
	<-svc.Ready()

	require.Eventually(t, func() bool {
		kbd, mouse, updates := host.snapshot()
		return len(kbd) == 2 && len(mouse) == 1 && updates > 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	kbd, mouse, _ := host.snapshot()
	assert.Equal(t, hidapi.KeyDown(usagepages.KeyA), kbd[0])
	assert.Equal(t, hidapi.KeyUp(usagepages.KeyA), kbd[1])
	assert.Equal(t, int8(7), mouse[0].DX)
	assert.Positive(t, polls)
}

func TestDispatchSkipsConsumedEvents(t *testing.T) {
	store := eventstore.New()
	host := &syncHost{}
	filter := cmdmode.New(zap.NewNop(), host)
	svc := New(zap.NewNop(), store, filter, host)

	// the command-key DOWN is held in limbo by the filter
	store.EnqueueKeyboard(hidapi.KeyDown(cmdmode.CommandKey))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()
	<-svc.Ready()

	require.Eventually(t, func() bool {
		_, _, updates := host.snapshot()
		return updates > 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	kbd, _, _ := host.snapshot()
	assert.Empty(t, kbd)
}
