package hosts

import (
	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hidapi/usagepages"
	"github.com/toshok/babelfish/hostapi"
	"go.uber.org/zap"
)

// Apple Desktop Bus. The board-support layer handles the single-wire
// signalling; what reaches the channel is one command byte per bus
// transaction (AAAA CCRR: address, command, register), and whatever we
// write is the register payload for the most recent Talk.
//
// We emulate two devices: a keyboard at address 2 (handler 2) and a mouse
// at address 3 (handler 1). Key transitions queue up between polls and go
// out two at a time on Talk R0; mouse motion accumulates and is clamped to
// the 7-bit deltas of the classic mouse protocol.

const (
	adbKbdAddress   = 2
	adbMouseAddress = 3

	adbKbdHandler   = 0x02
	adbMouseHandler = 0x01

	adbCmdFlush  = 0x01
	adbCmdListen = 0x02
	adbCmdTalk   = 0x03

	adbReleaseBit = 0x80
	adbNoKey      = 0xFF

	adbMuxPosition = 1
)

var adbDescriptor = hostapi.Descriptor{
	Name:  "adb",
	Notes: "Ch A RX bidirectional. Shifter setting 5V.",
}

type ADB struct {
	log *zap.Logger
	ch  hostapi.Channel

	pendingKeys []byte

	accDX, accDY int
	buttonDown   bool

	// Listen payloads arrive as data bytes after the command; they are
	// counted down and discarded.
	listenRemaining int
}

func NewADB(p hostapi.Provider) hostapi.Host {
	return &ADB{
		log: p.Log().Named("adb"),
		ch:  p.Channel(0),
	}
}

func (a *ADB) Descriptor() hostapi.Descriptor {
	return adbDescriptor
}

func (a *ADB) Init() error {
	return a.ch.Configure(hostapi.ChannelMode{
		Baud:   0, // bit-banged by the bus driver, no UART clock
		Parity: hostapi.ParityNone,
		Mux:    adbMuxPosition,
	})
}

func (a *ADB) KeyboardEvent(e hidapi.KeyboardEvent) {
	code, ok := adbKeymap[e.Keycode]
	if !ok {
		a.log.Debug("no adb keycode", zap.String("key", usagepages.KeyName(e.Keycode)))
		return
	}
	if !e.Down {
		code |= adbReleaseBit
	}
	a.pendingKeys = append(a.pendingKeys, code)
}

func (a *ADB) MouseEvent(e hidapi.MouseEvent) {
	a.accDX += int(e.DX)
	a.accDY += int(e.DY)
	a.buttonDown = e.Buttons&hidapi.MouseButtonLeft != 0
}

func (a *ADB) Update() {
	for {
		b, ok := a.ch.TryRead()
		if !ok {
			return
		}
		if a.listenRemaining > 0 {
			a.listenRemaining--
			continue
		}
		addr := b >> 4
		cmd := (b >> 2) & 0x03
		reg := b & 0x03
		switch cmd {
		case adbCmdTalk:
			a.talk(addr, reg)
		case adbCmdListen:
			a.listenRemaining = 2
		case adbCmdFlush:
			if addr == adbKbdAddress {
				a.pendingKeys = a.pendingKeys[:0]
			}
		default:
			// SendReset addresses every device
			a.pendingKeys = a.pendingKeys[:0]
			a.accDX, a.accDY = 0, 0
		}
	}
}

func (a *ADB) talk(addr, reg byte) {
	switch {
	case addr == adbKbdAddress && reg == 0:
		if len(a.pendingKeys) == 0 {
			return // no response; bus times out
		}
		first := a.pendingKeys[0]
		second := byte(adbNoKey)
		if len(a.pendingKeys) > 1 {
			second = a.pendingKeys[1]
			a.pendingKeys = a.pendingKeys[2:]
		} else {
			a.pendingKeys = a.pendingKeys[1:]
		}
		a.ch.Write([]byte{first, second})
	case addr == adbMouseAddress && reg == 0:
		if a.accDX == 0 && a.accDY == 0 && !a.buttonDown {
			return
		}
		dx := clamp7(a.accDX)
		dy := clamp7(a.accDY)
		a.accDX -= dx
		a.accDY -= dy
		b0 := byte(dy) & 0x7F
		if !a.buttonDown {
			b0 |= 0x80
		}
		b1 := byte(dx)&0x7F | 0x80
		a.ch.Write([]byte{b0, b1})
	case reg == 3:
		handler := byte(adbKbdHandler)
		if addr == adbMouseAddress {
			handler = adbMouseHandler
		}
		a.ch.Write([]byte{0x60 | addr, handler})
	}
}

// PendingKeys reports how many key transitions are waiting for a poll.
func (a *ADB) PendingKeys() int {
	return len(a.pendingKeys)
}

// ServiceRequest reports whether more transitions are queued than the
// last poll drained. The bus driver asserts SRQ on the wire from this.
func (a *ADB) ServiceRequest() bool {
	return len(a.pendingKeys) > 0
}

func clamp7(v int) int {
	if v > 63 {
		return 63
	}
	if v < -64 {
		return -64
	}
	return v
}

// HID keyboard page to ADB keyboard codes (Apple Standard layout).
var adbKeymap = map[uint16]byte{
	usagepages.KeyA: 0x00, usagepages.KeyS: 0x01, usagepages.KeyD: 0x02,
	usagepages.KeyF: 0x03, usagepages.KeyH: 0x04, usagepages.KeyG: 0x05,
	usagepages.KeyZ: 0x06, usagepages.KeyX: 0x07, usagepages.KeyC: 0x08,
	usagepages.KeyV: 0x09, usagepages.KeyB: 0x0B, usagepages.KeyQ: 0x0C,
	usagepages.KeyW: 0x0D, usagepages.KeyE: 0x0E, usagepages.KeyR: 0x0F,
	usagepages.KeyY: 0x10, usagepages.KeyT: 0x11,

	usagepages.Key1: 0x12, usagepages.Key2: 0x13, usagepages.Key3: 0x14,
	usagepages.Key4: 0x15, usagepages.Key6: 0x16, usagepages.Key5: 0x17,
	usagepages.KeyEqual: 0x18, usagepages.Key9: 0x19, usagepages.Key7: 0x1A,
	usagepages.KeyMinus: 0x1B, usagepages.Key8: 0x1C, usagepages.Key0: 0x1D,

	usagepages.KeyRightBracket: 0x1E, usagepages.KeyO: 0x1F,
	usagepages.KeyU: 0x20, usagepages.KeyLeftBracket: 0x21,
	usagepages.KeyI: 0x22, usagepages.KeyP: 0x23,
	usagepages.KeyEnter: 0x24, usagepages.KeyL: 0x25, usagepages.KeyJ: 0x26,
	usagepages.KeyApostrophe: 0x27, usagepages.KeyK: 0x28,
	usagepages.KeySemicolon: 0x29, usagepages.KeyBackslash: 0x2A,
	usagepages.KeyComma: 0x2B, usagepages.KeySlash: 0x2C,
	usagepages.KeyN: 0x2D, usagepages.KeyM: 0x2E, usagepages.KeyPeriod: 0x2F,

	usagepages.KeyTab: 0x30, usagepages.KeySpace: 0x31,
	usagepages.KeyGrave: 0x32, usagepages.KeyBackspace: 0x33,
	usagepages.KeyEscape: 0x35,
	usagepages.KeyLeftControl: 0x36, usagepages.KeyRightControl: 0x36,
	usagepages.KeyLeftGUI: 0x37, usagepages.KeyRightGUI: 0x37,
	usagepages.KeyLeftShift: 0x38, usagepages.KeyRightShift: 0x38,
	usagepages.KeyCapsLock: 0x39,
	usagepages.KeyLeftAlt: 0x3A, usagepages.KeyRightAlt: 0x3A,

	usagepages.KeyLeft: 0x3B, usagepages.KeyRight: 0x3C,
	usagepages.KeyDown: 0x3D, usagepages.KeyUp: 0x3E,

	usagepages.KeyF1: 0x7A, usagepages.KeyF2: 0x78, usagepages.KeyF3: 0x63,
	usagepages.KeyF4: 0x76, usagepages.KeyF5: 0x60, usagepages.KeyF6: 0x61,
	usagepages.KeyF7: 0x62, usagepages.KeyF8: 0x64, usagepages.KeyF9: 0x65,
	usagepages.KeyF10: 0x6D, usagepages.KeyF11: 0x67, usagepages.KeyF12: 0x6F,

	usagepages.KeyHome: 0x73, usagepages.KeyEnd: 0x77,
	usagepages.KeyPageUp: 0x74, usagepages.KeyPageDown: 0x79,
	usagepages.KeyDelete: 0x75,
}
