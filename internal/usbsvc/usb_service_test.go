package usbsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hidapi/usagepages"
	"github.com/toshok/babelfish/internal/eventstore"
	"go.uber.org/zap"
)

func newTestService() (*Service, *eventstore.Store) {
	store := eventstore.New()
	return New(zap.NewNop(), store), store
}

func TestKeyboardReportsAreNormalized(t *testing.T) {
	svc, store := newTestService()
	svc.DeviceAttached(Device{ID: "kbd0", Name: "test kbd", Kind: DeviceKeyboard})

	svc.Report("kbd0", []byte{0x00, 0x00, uint8(usagepages.KeyA), 0, 0, 0, 0, 0})
	svc.Report("kbd0", []byte{0x00, 0x00, 0, 0, 0, 0, 0, 0})

	buf := make([]hidapi.KeyboardEvent, eventstore.MaxQueuedEvents)
	n := store.DrainKeyboard(buf)
	require.Equal(t, 2, n)
	assert.Equal(t, hidapi.KeyDown(usagepages.KeyA), buf[0])
	assert.Equal(t, hidapi.KeyUp(usagepages.KeyA), buf[1])
}

func TestMouseReportsAreEnqueued(t *testing.T) {
	svc, store := newTestService()
	svc.DeviceAttached(Device{ID: "m0", Name: "test mouse", Kind: DeviceMouse})

	svc.Report("m0", []byte{0x01, 0x05, 0xFB})

	buf := make([]hidapi.MouseEvent, eventstore.MaxQueuedEvents)
	n := store.DrainMouse(buf)
	require.Equal(t, 1, n)
	assert.Equal(t, hidapi.MouseEvent{Buttons: hidapi.MouseButtonLeft, DX: 5, DY: -5}, buf[0])
}

func TestSecondKeyboardIsIgnored(t *testing.T) {
	svc, store := newTestService()
	svc.DeviceAttached(Device{ID: "kbd0", Kind: DeviceKeyboard})
	svc.DeviceAttached(Device{ID: "kbd1", Kind: DeviceKeyboard})

	svc.Report("kbd1", []byte{0x00, 0x00, uint8(usagepages.KeyA), 0, 0, 0, 0, 0})

	buf := make([]hidapi.KeyboardEvent, eventstore.MaxQueuedEvents)
	assert.Zero(t, store.DrainKeyboard(buf), "unbound keyboard feeds nothing")
}

func TestDetachUnbinds(t *testing.T) {
	svc, store := newTestService()
	svc.DeviceAttached(Device{ID: "kbd0", Kind: DeviceKeyboard})
	svc.DeviceDetached("kbd0")

	svc.Report("kbd0", []byte{0x00, 0x00, uint8(usagepages.KeyA), 0, 0, 0, 0, 0})
	buf := make([]hidapi.KeyboardEvent, eventstore.MaxQueuedEvents)
	assert.Zero(t, store.DrainKeyboard(buf))

	// slot freed for the next keyboard
	svc.DeviceAttached(Device{ID: "kbd1", Kind: DeviceKeyboard})
	svc.Report("kbd1", []byte{0x00, 0x00, uint8(usagepages.KeyB), 0, 0, 0, 0, 0})
	assert.Equal(t, 1, store.DrainKeyboard(buf))
}
