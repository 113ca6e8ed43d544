package hidapi

import (
	"github.com/toshok/babelfish/hidapi/usagepages"
)

// BootKeyboardReport is the 8-byte boot-protocol keyboard report: one
// modifier bitmask byte, one reserved byte, then up to six keycodes.
type BootKeyboardReport struct {
	Modifiers uint8
	Keys      [6]uint8
}

// DecodeBootKeyboardReport parses a raw boot report. Short reports are
// tolerated; missing bytes read as zero.
func DecodeBootKeyboardReport(buf []byte) BootKeyboardReport {
	var r BootKeyboardReport
	if len(buf) > 0 {
		r.Modifiers = buf[0]
	}
	for i := 0; i < 6 && i+2 < len(buf); i++ {
		r.Keys[i] = buf[i+2]
	}
	return r
}

func (r BootKeyboardReport) contains(code uint8) bool {
	for _, k := range r.Keys {
		if k == code {
			return true
		}
	}
	return false
}

// Diff compares this report against the previous one and returns the key
// state changes, releases first. Modifier bits are re-emitted as their own
// keycodes (usages 0xE0-0xE7). Phantom-rollover reports (all slots 0x01)
// produce no key changes.
func (r BootKeyboardReport) Diff(prev BootKeyboardReport) []KeyboardEvent {
	var events []KeyboardEvent

	for bit := 0; bit < 8; bit++ {
		mask := uint8(1 << bit)
		was := prev.Modifiers&mask != 0
		is := r.Modifiers&mask != 0
		if was == is {
			continue
		}
		code := usagepages.KeyLeftControl + uint16(bit)
		if is {
			events = append(events, KeyDown(code))
		} else {
			events = append(events, KeyUp(code))
		}
	}

	if r.phantom() {
		return events
	}

	for _, k := range prev.Keys {
		if k <= 0x03 {
			// 0 is empty, 1-3 are error usages
			continue
		}
		if !r.contains(k) {
			events = append(events, KeyUp(uint16(k)))
		}
	}
	for _, k := range r.Keys {
		if k <= 0x03 {
			continue
		}
		if !prev.contains(k) {
			events = append(events, KeyDown(uint16(k)))
		}
	}
	return events
}

// phantom reports signal key-rollover overflow; every slot holds 0x01.
func (r BootKeyboardReport) phantom() bool {
	for _, k := range r.Keys {
		if k != 0x01 {
			return false
		}
	}
	return true
}

// DecodeBootMouseReport parses a boot-protocol mouse report: buttons, dx,
// dy, and an optional wheel byte.
func DecodeBootMouseReport(buf []byte) (MouseEvent, bool) {
	if len(buf) < 3 {
		return MouseEvent{}, false
	}
	e := MouseEvent{
		Buttons: buf[0] & 0x07,
		DX:      int8(buf[1]),
		DY:      int8(buf[2]),
	}
	if len(buf) > 3 {
		e.Wheel = int8(buf[3])
	}
	return e, true
}
