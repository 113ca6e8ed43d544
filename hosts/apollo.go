package hosts

import (
	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hidapi/usagepages"
	"github.com/toshok/babelfish/hostapi"
	"go.uber.org/zap"
)

// Apollo/Domain workstation keyboard. A single UART (1200 8E1 on channel
// A) carries both keyboard and mouse traffic. In raw mode the keyboard
// sends a make code on press and make|0x80 on release; mouse motion goes
// out as 0xDF-headed four-byte frames on the same line. The host drives
// mode changes with 0xFF-prefixed two-byte commands.

const (
	apolloBreakBit    = 0x80
	apolloMouseHeader = 0xDF
	apolloCmdPrefix   = 0xFF

	apolloModeCooked = 0x00
	apolloModeRaw    = 0x01

	apolloMuxPosition = 2
)

var apolloDescriptor = hostapi.Descriptor{
	Name:  "apollo",
	Notes: "Ch A RX/TX for keyboard and mouse. Shifter setting 5V.",
}

type Apollo struct {
	log *zap.Logger
	ch  hostapi.Channel

	mode        byte
	awaitingCmd bool
}

func NewApollo(p hostapi.Provider) hostapi.Host {
	return &Apollo{
		log:  p.Log().Named("apollo"),
		ch:   p.Channel(0),
		mode: apolloModeRaw,
	}
}

func (a *Apollo) Descriptor() hostapi.Descriptor {
	return apolloDescriptor
}

func (a *Apollo) Init() error {
	return a.ch.Configure(hostapi.ChannelMode{
		Baud:   1200,
		Parity: hostapi.ParityEven,
		Mux:    apolloMuxPosition,
	})
}

func (a *Apollo) KeyboardEvent(e hidapi.KeyboardEvent) {
	code, ok := apolloKeymap[e.Keycode]
	if !ok {
		a.log.Debug("no apollo scancode", zap.String("key", usagepages.KeyName(e.Keycode)))
		return
	}
	if !e.Down {
		code |= apolloBreakBit
	}
	a.ch.Write([]byte{code})
}

func (a *Apollo) MouseEvent(e hidapi.MouseEvent) {
	a.ch.Write([]byte{
		apolloMouseHeader,
		0xF0 | (e.Buttons & 0x07),
		byte(e.DX),
		byte(-e.DY),
	})
}

func (a *Apollo) Update() {
	for {
		b, ok := a.ch.TryRead()
		if !ok {
			return
		}
		if a.awaitingCmd {
			a.awaitingCmd = false
			switch b {
			case apolloModeCooked, apolloModeRaw:
				a.mode = b
				// acknowledge the mode switch
				a.ch.Write([]byte{apolloCmdPrefix, b})
			default:
				a.log.Debug("unknown mode command", zap.Uint8("byte", b))
			}
			continue
		}
		if b == apolloCmdPrefix {
			a.awaitingCmd = true
			continue
		}
		a.log.Debug("unexpected host byte", zap.Uint8("byte", b))
	}
}

// Mode reports the current keyboard mode requested by the host.
func (a *Apollo) Mode() byte {
	return a.mode
}

// HID keyboard page to Apollo raw-mode make codes.
var apolloKeymap = map[uint16]byte{
	usagepages.KeyEscape: 0x17,

	usagepages.Key1: 0x18, usagepages.Key2: 0x19, usagepages.Key3: 0x1A,
	usagepages.Key4: 0x1B, usagepages.Key5: 0x1C, usagepages.Key6: 0x1D,
	usagepages.Key7: 0x1E, usagepages.Key8: 0x1F, usagepages.Key9: 0x20,
	usagepages.Key0: 0x21,
	usagepages.KeyMinus: 0x22, usagepages.KeyEqual: 0x23,
	usagepages.KeyBackspace: 0x24,

	usagepages.KeyTab: 0x2D,
	usagepages.KeyQ:   0x2E, usagepages.KeyW: 0x2F, usagepages.KeyE: 0x30,
	usagepages.KeyR: 0x31, usagepages.KeyT: 0x32, usagepages.KeyY: 0x33,
	usagepages.KeyU: 0x34, usagepages.KeyI: 0x35, usagepages.KeyO: 0x36,
	usagepages.KeyP: 0x37,
	usagepages.KeyLeftBracket: 0x38, usagepages.KeyRightBracket: 0x39,

	usagepages.KeyLeftControl: 0x43,
	usagepages.KeyA:           0x46, usagepages.KeyS: 0x47, usagepages.KeyD: 0x48,
	usagepages.KeyF: 0x49, usagepages.KeyG: 0x4A, usagepages.KeyH: 0x4B,
	usagepages.KeyJ: 0x4C, usagepages.KeyK: 0x4D, usagepages.KeyL: 0x4E,
	usagepages.KeySemicolon: 0x4F, usagepages.KeyApostrophe: 0x50,
	usagepages.KeyEnter: 0x52, usagepages.KeyBackslash: 0x53,

	usagepages.KeyLeftShift: 0x5E,
	usagepages.KeyZ:         0x60, usagepages.KeyX: 0x61, usagepages.KeyC: 0x62,
	usagepages.KeyV: 0x63, usagepages.KeyB: 0x64, usagepages.KeyN: 0x65,
	usagepages.KeyM: 0x66, usagepages.KeyComma: 0x67, usagepages.KeyPeriod: 0x68,
	usagepages.KeySlash: 0x69, usagepages.KeyRightShift: 0x6A,

	usagepages.KeySpace:    0x70,
	usagepages.KeyCapsLock: 0x7E,
	usagepages.KeyLeftAlt: 0x75, usagepages.KeyRightAlt: 0x77,

	usagepages.KeyUp: 0x15, usagepages.KeyDown: 0x5C,
	usagepages.KeyLeft: 0x59, usagepages.KeyRight: 0x5B,

	usagepages.KeyF1: 0x05, usagepages.KeyF2: 0x06, usagepages.KeyF3: 0x07,
	usagepages.KeyF4: 0x08, usagepages.KeyF5: 0x09, usagepages.KeyF6: 0x0A,
	usagepages.KeyF7: 0x0B, usagepages.KeyF8: 0x0C,
	usagepages.KeyDelete: 0x11, usagepages.KeyHome: 0x12,
}
