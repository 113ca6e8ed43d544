// Package hidapi holds the normalized input event types flowing between the
// USB ingest side and the host emulators.
package hidapi

import (
	"fmt"

	"github.com/toshok/babelfish/hidapi/usagepages"
)

// KeyboardEvent is a single key state change. Modifiers are not folded into
// a mask; they arrive as their own keycodes (usages 0xE0-0xE7 on page 7).
// Events are immutable once enqueued.
type KeyboardEvent struct {
	Page    uint8
	Keycode uint16
	Down    bool
}

func KeyDown(code uint16) KeyboardEvent {
	return KeyboardEvent{Page: usagepages.PageKeyboard, Keycode: code, Down: true}
}

func KeyUp(code uint16) KeyboardEvent {
	return KeyboardEvent{Page: usagepages.PageKeyboard, Keycode: code, Down: false}
}

func (e KeyboardEvent) String() string {
	dir := "up"
	if e.Down {
		dir = "down"
	}
	return fmt.Sprintf("%s %s [%d/0x%04x]", usagepages.KeyName(e.Keycode), dir, e.Page, e.Keycode)
}

// Mouse button bits, matching the boot-protocol report layout.
const (
	MouseButtonLeft uint8 = 1 << iota
	MouseButtonRight
	MouseButtonMiddle
)

// MouseEvent is one mouse report: relative deltas since the previous report
// plus the current button bitmask. Immutable once enqueued.
type MouseEvent struct {
	DX      int8
	DY      int8
	Wheel   int8
	Buttons uint8
}

func (e MouseEvent) String() string {
	return fmt.Sprintf("mouse dx=%d dy=%d wheel=%d buttons=%03b", e.DX, e.DY, e.Wheel, e.Buttons)
}
