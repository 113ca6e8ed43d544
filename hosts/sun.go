package hosts

import (
	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hidapi/usagepages"
	"github.com/toshok/babelfish/hostapi"
	"go.uber.org/zap"
)

// Sun workstation keyboard/mouse. Keyboard is UART 1200 8N1 on channel A,
// mouse is Mouse Systems style five-byte frames on channel B TX.
//
// Keyboard wire format: make code on press, make|0x80 on release, 0x7F
// once all keys are up. The host sends single-byte commands (reset, bell,
// click, layout) plus a two-byte LED command.

const (
	sunKbdIdle      = 0x7F
	sunBreakBit     = 0x80
	sunResetByte    = 0xFF
	sunResetOK      = 0x04
	sunLayoutHeader = 0xFE

	sunCmdReset     = 0x01
	sunCmdBellOn    = 0x02
	sunCmdBellOff   = 0x03
	sunCmdClickOn   = 0x0A
	sunCmdClickOff  = 0x0B
	sunCmdLED       = 0x0E
	sunCmdLayout    = 0x0F

	sunLayoutUS = 0x00

	sunMuxPosition = 0
)

var sunDescriptor = hostapi.Descriptor{
	Name:  "sun",
	Notes: "Ch A RX/TX for keyboard, Ch B TX for mouse. Shifter setting 5V.",
}

type Sun struct {
	log   *zap.Logger
	kbd   hostapi.Channel
	mouse hostapi.Channel

	held        map[byte]struct{}
	awaitingLED bool
	leds        uint8
	bell        bool
	click       bool
}

func NewSun(p hostapi.Provider) hostapi.Host {
	return &Sun{
		log:   p.Log().Named("sun"),
		kbd:   p.Channel(0),
		mouse: p.Channel(1),
		held:  make(map[byte]struct{}),
	}
}

func (s *Sun) Descriptor() hostapi.Descriptor {
	return sunDescriptor
}

func (s *Sun) Init() error {
	mode := hostapi.ChannelMode{Baud: 1200, Parity: hostapi.ParityNone, Mux: sunMuxPosition}
	if err := s.kbd.Configure(mode); err != nil {
		return err
	}
	if err := s.mouse.Configure(mode); err != nil {
		return err
	}
	// power-on self test passed
	s.kbd.Write([]byte{sunResetByte, sunResetOK, sunKbdIdle})
	return nil
}

func (s *Sun) KeyboardEvent(e hidapi.KeyboardEvent) {
	code, ok := sunKeymap[e.Keycode]
	if !ok {
		s.log.Debug("no sun scancode", zap.String("key", usagepages.KeyName(e.Keycode)))
		return
	}
	if e.Down {
		s.held[code] = struct{}{}
		s.kbd.Write([]byte{code})
		return
	}
	delete(s.held, code)
	out := []byte{code | sunBreakBit}
	if len(s.held) == 0 {
		out = append(out, sunKbdIdle)
	}
	s.kbd.Write(out)
}

// MouseEvent emits one Mouse Systems frame: an 0x80-flagged header with
// active-low buttons, then dx/dy plus a second (zero) delta pair.
func (s *Sun) MouseEvent(e hidapi.MouseEvent) {
	var btn byte
	if e.Buttons&hidapi.MouseButtonLeft == 0 {
		btn |= 0x04
	}
	if e.Buttons&hidapi.MouseButtonMiddle == 0 {
		btn |= 0x02
	}
	if e.Buttons&hidapi.MouseButtonRight == 0 {
		btn |= 0x01
	}
	s.mouse.Write([]byte{0x80 | btn, byte(e.DX), byte(-e.DY), 0, 0})
}

func (s *Sun) Update() {
	for {
		b, ok := s.kbd.TryRead()
		if !ok {
			return
		}
		if s.awaitingLED {
			s.leds = b
			s.awaitingLED = false
			s.log.Debug("led state", zap.Uint8("mask", b))
			continue
		}
		switch b {
		case sunCmdReset:
			s.held = make(map[byte]struct{})
			s.kbd.Write([]byte{sunResetByte, sunResetOK, sunKbdIdle})
		case sunCmdBellOn:
			s.bell = true
		case sunCmdBellOff:
			s.bell = false
		case sunCmdClickOn:
			s.click = true
		case sunCmdClickOff:
			s.click = false
		case sunCmdLED:
			s.awaitingLED = true
		case sunCmdLayout:
			s.kbd.Write([]byte{sunLayoutHeader, sunLayoutUS})
		default:
			s.log.Debug("unknown host command", zap.Uint8("byte", b))
		}
	}
}

// LEDState reports the LED mask last written by the host.
func (s *Sun) LEDState() uint8 {
	return s.leds
}

// HID keyboard page to Sun Type 5 US make codes.
var sunKeymap = map[uint16]byte{
	usagepages.KeyEscape: 0x1D,

	usagepages.Key1: 0x1E, usagepages.Key2: 0x1F, usagepages.Key3: 0x20,
	usagepages.Key4: 0x21, usagepages.Key5: 0x22, usagepages.Key6: 0x23,
	usagepages.Key7: 0x24, usagepages.Key8: 0x25, usagepages.Key9: 0x26,
	usagepages.Key0: 0x27,
	usagepages.KeyMinus: 0x28, usagepages.KeyEqual: 0x29,
	usagepages.KeyGrave: 0x2A, usagepages.KeyBackspace: 0x2B,

	usagepages.KeyTab: 0x35,
	usagepages.KeyQ:   0x36, usagepages.KeyW: 0x37, usagepages.KeyE: 0x38,
	usagepages.KeyR: 0x39, usagepages.KeyT: 0x3A, usagepages.KeyY: 0x3B,
	usagepages.KeyU: 0x3C, usagepages.KeyI: 0x3D, usagepages.KeyO: 0x3E,
	usagepages.KeyP: 0x3F,
	usagepages.KeyLeftBracket: 0x40, usagepages.KeyRightBracket: 0x41,
	usagepages.KeyDelete: 0x42,

	usagepages.KeyLeftControl: 0x4C,
	usagepages.KeyA:           0x4D, usagepages.KeyS: 0x4E, usagepages.KeyD: 0x4F,
	usagepages.KeyF: 0x50, usagepages.KeyG: 0x51, usagepages.KeyH: 0x52,
	usagepages.KeyJ: 0x53, usagepages.KeyK: 0x54, usagepages.KeyL: 0x55,
	usagepages.KeySemicolon: 0x56, usagepages.KeyApostrophe: 0x57,
	usagepages.KeyBackslash: 0x58, usagepages.KeyEnter: 0x59,

	usagepages.KeyLeftShift: 0x63,
	usagepages.KeyZ:         0x64, usagepages.KeyX: 0x65, usagepages.KeyC: 0x66,
	usagepages.KeyV: 0x67, usagepages.KeyB: 0x68, usagepages.KeyN: 0x69,
	usagepages.KeyM: 0x6A, usagepages.KeyComma: 0x6B, usagepages.KeyPeriod: 0x6C,
	usagepages.KeySlash: 0x6D, usagepages.KeyRightShift: 0x6E,

	usagepages.KeyCapsLock: 0x77, usagepages.KeyLeftGUI: 0x78,
	usagepages.KeySpace: 0x79, usagepages.KeyRightGUI: 0x7A,

	usagepages.KeyLeftAlt: 0x13, usagepages.KeyRightAlt: 0x0D,
	usagepages.KeyRightControl: 0x4C,

	usagepages.KeyF1: 0x05, usagepages.KeyF2: 0x06, usagepages.KeyF3: 0x08,
	usagepages.KeyF4: 0x0A, usagepages.KeyF5: 0x0C, usagepages.KeyF6: 0x0E,
	usagepages.KeyF7: 0x10, usagepages.KeyF8: 0x11, usagepages.KeyF9: 0x12,
	usagepages.KeyF10: 0x07, usagepages.KeyF11: 0x09, usagepages.KeyF12: 0x0B,

	usagepages.KeyUp: 0x14, usagepages.KeyLeft: 0x18,
	usagepages.KeyDown: 0x1B, usagepages.KeyRight: 0x1C,
	usagepages.KeyHome: 0x34, usagepages.KeyEnd: 0x4A,
	usagepages.KeyPageUp: 0x60, usagepages.KeyPageDown: 0x7B,
	usagepages.KeyInsert: 0x2C,
}
