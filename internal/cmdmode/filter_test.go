package cmdmode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hidapi/usagepages"
	"github.com/toshok/babelfish/hostapi"
	"go.uber.org/zap"
)

type recordingHost struct {
	events []hidapi.KeyboardEvent
}

func (h *recordingHost) Descriptor() hostapi.Descriptor       { return hostapi.Descriptor{Name: "fake"} }
func (h *recordingHost) Init() error                          { return nil }
func (h *recordingHost) KeyboardEvent(e hidapi.KeyboardEvent) { h.events = append(h.events, e) }
func (h *recordingHost) MouseEvent(hidapi.MouseEvent)         {}
func (h *recordingHost) Update()                              {}

// typed reconstructs the string synthesized at the host from its DOWN
// events.
func (h *recordingHost) typed() string {
	var sb strings.Builder
	for _, e := range h.events {
		if !e.Down {
			continue
		}
		if b := usagepages.ToASCII(e.Keycode); b != 0 {
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestFilter(host *recordingHost) (*Filter, *fakeClock) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	f := New(zap.NewNop(), host,
		WithClock(func() time.Time { return clk.now }, func(time.Duration) {}))
	return f, clk
}

func TestShortHoldReplaysCommandKey(t *testing.T) {
	host := &recordingHost{}
	f, clk := newTestFilter(host)

	require.True(t, f.ProcessEvent(hidapi.KeyDown(CommandKey)), "command key held in limbo")
	assert.Empty(t, host.events)

	clk.advance(100 * time.Millisecond)
	consumed := f.ProcessEvent(hidapi.KeyDown(usagepages.KeyA))
	assert.False(t, consumed, "short hold: current event passes through")

	// the host saw the replayed command-key DOWN, and the caller now
	// forwards A itself; stream order is EQ down then A down
	require.Len(t, host.events, 1)
	assert.Equal(t, hidapi.KeyDown(CommandKey), host.events[0])

	// filter is back in Idle
	assert.False(t, f.ProcessEvent(hidapi.KeyUp(usagepages.KeyA)))
}

func TestShortTapReleaseReplays(t *testing.T) {
	host := &recordingHost{}
	f, clk := newTestFilter(host)

	f.ProcessEvent(hidapi.KeyDown(CommandKey))
	clk.advance(50 * time.Millisecond)
	consumed := f.ProcessEvent(hidapi.KeyUp(CommandKey))
	assert.False(t, consumed)
	require.Len(t, host.events, 1)
	assert.Equal(t, hidapi.KeyDown(CommandKey), host.events[0])
}

func TestLongHoldConsumesKeys(t *testing.T) {
	host := &recordingHost{}
	f, clk := newTestFilter(host)

	f.ProcessEvent(hidapi.KeyDown(CommandKey))
	clk.advance(600 * time.Millisecond)

	// A is not a registered command; consumed silently
	assert.True(t, f.ProcessEvent(hidapi.KeyDown(usagepages.KeyA)))
	assert.True(t, f.ProcessEvent(hidapi.KeyUp(usagepages.KeyA)))

	// command-key UP exits; the initial DOWN never reached the host
	assert.True(t, f.ProcessEvent(hidapi.KeyUp(CommandKey)))
	assert.Empty(t, host.events)

	// back to normal pass-through
	assert.False(t, f.ProcessEvent(hidapi.KeyDown(usagepages.KeyB)))
}

func TestHostListCommand(t *testing.T) {
	host := &recordingHost{}
	f, clk := newTestFilter(host)

	registry := hostapi.NewRegistry()
	registry.Register(hostapi.Descriptor{Name: "sun"}, nil)
	registry.Register(hostapi.Descriptor{Name: "adb"}, nil)
	registry.Register(hostapi.Descriptor{Name: "apollo"}, nil)
	RegisterBuiltins(f, registry, 1, nil)

	f.ProcessEvent(hidapi.KeyDown(CommandKey))
	clk.advance(600 * time.Millisecond)
	assert.True(t, f.ProcessEvent(hidapi.KeyDown(usagepages.KeyH)))
	assert.True(t, f.ProcessEvent(hidapi.KeyUp(usagepages.KeyH)))
	assert.True(t, f.ProcessEvent(hidapi.KeyUp(CommandKey)))

	// '*' is not a typeable character and is skipped on the wire too
	want := filterTypeable("  0 sun\n* 1 adb\n  2 apollo\n")
	assert.Equal(t, want, host.typed())

	// every synthesized DOWN has a matching UP
	downs, ups := 0, 0
	for _, e := range host.events {
		if e.Down {
			downs++
		} else {
			ups++
		}
	}
	assert.Equal(t, downs, ups)
}

func TestSelectCommandPersists(t *testing.T) {
	host := &recordingHost{}
	f, clk := newTestFilter(host)

	registry := hostapi.NewRegistry()
	registry.Register(hostapi.Descriptor{Name: "sun"}, nil)
	registry.Register(hostapi.Descriptor{Name: "adb"}, nil)
	sel := &fakeSelector{}
	RegisterBuiltins(f, registry, 0, sel)

	f.ProcessEvent(hidapi.KeyDown(CommandKey))
	clk.advance(600 * time.Millisecond)
	assert.True(t, f.ProcessEvent(hidapi.KeyDown(usagepages.Key1)))

	require.NotNil(t, sel.persisted)
	assert.Equal(t, 1, *sel.persisted)
	assert.Equal(t, "ok\n", host.typed())
}

type fakeSelector struct {
	persisted *int
}

func (s *fakeSelector) Persist(index int) error {
	s.persisted = &index
	return nil
}

func filterTypeable(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if usagepages.FromASCII(s[i]) != 0 {
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func TestTypePacing(t *testing.T) {
	host := &recordingHost{}
	var slept []time.Duration
	f := New(zap.NewNop(), host,
		WithClock(func() time.Time { return time.Unix(0, 0) }, func(d time.Duration) {
			slept = append(slept, d)
		}))

	f.Type("ab")
	require.Len(t, host.events, 4)
	require.Len(t, slept, 4, "one delay after every transition")
	for _, d := range slept {
		assert.Equal(t, TypeDelay, d)
	}
}
