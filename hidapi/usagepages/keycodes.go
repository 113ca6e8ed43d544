package usagepages

import "fmt"

// Usage page numbers relevant to boot-protocol input devices.
const (
	PageKeyboard = 0x07
	PageButton   = 0x09
	PageDesktop  = 0x01
)

// Keyboard page (0x07) usage IDs. Only the range used by boot-protocol
// keyboards is listed.
const (
	KeyA uint16 = 0x04 + iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeySpace
	KeyMinus
	KeyEqual
	KeyLeftBracket
	KeyRightBracket
	KeyBackslash
	KeyHash
	KeySemicolon
	KeyApostrophe
	KeyGrave
	KeyComma
	KeyPeriod
	KeySlash
	KeyCapsLock
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyPrintScreen
	KeyScrollLock
	KeyPause
	KeyInsert
	KeyHome
	KeyPageUp
	KeyDelete
	KeyEnd
	KeyPageDown
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyNumLock
)

// Modifier usages. Boot reports carry these as a bitmask in byte 0; the
// normalizer re-emits them as ordinary keycodes.
const (
	KeyLeftControl uint16 = 0xE0 + iota
	KeyLeftShift
	KeyLeftAlt
	KeyLeftGUI
	KeyRightControl
	KeyRightShift
	KeyRightAlt
	KeyRightGUI
)

var keyNameMap = map[uint16]string{
	KeyA: "A", KeyB: "B", KeyC: "C", KeyD: "D", KeyE: "E", KeyF: "F",
	KeyG: "G", KeyH: "H", KeyI: "I", KeyJ: "J", KeyK: "K", KeyL: "L",
	KeyM: "M", KeyN: "N", KeyO: "O", KeyP: "P", KeyQ: "Q", KeyR: "R",
	KeyS: "S", KeyT: "T", KeyU: "U", KeyV: "V", KeyW: "W", KeyX: "X",
	KeyY: "Y", KeyZ: "Z",
	Key1: "1", Key2: "2", Key3: "3", Key4: "4", Key5: "5",
	Key6: "6", Key7: "7", Key8: "8", Key9: "9", Key0: "0",
	KeyEnter:        "Enter",
	KeyEscape:       "Escape",
	KeyBackspace:    "Backspace",
	KeyTab:          "Tab",
	KeySpace:        "Space",
	KeyMinus:        "Minus",
	KeyEqual:        "Equal",
	KeyLeftBracket:  "LeftBracket",
	KeyRightBracket: "RightBracket",
	KeyBackslash:    "Backslash",
	KeySemicolon:    "Semicolon",
	KeyApostrophe:   "Apostrophe",
	KeyGrave:        "Grave",
	KeyComma:        "Comma",
	KeyPeriod:       "Period",
	KeySlash:        "Slash",
	KeyCapsLock:     "CapsLock",
	KeyF1:           "F1",
	KeyF2:           "F2",
	KeyF3:           "F3",
	KeyF4:           "F4",
	KeyF5:           "F5",
	KeyF6:           "F6",
	KeyF7:           "F7",
	KeyF8:           "F8",
	KeyF9:           "F9",
	KeyF10:          "F10",
	KeyF11:          "F11",
	KeyF12:          "F12",
	KeyPrintScreen:  "PrintScreen",
	KeyScrollLock:   "ScrollLock",
	KeyPause:        "Pause",
	KeyInsert:       "Insert",
	KeyHome:         "Home",
	KeyPageUp:       "PageUp",
	KeyDelete:       "Delete",
	KeyEnd:          "End",
	KeyPageDown:     "PageDown",
	KeyRight:        "Right",
	KeyLeft:         "Left",
	KeyDown:         "Down",
	KeyUp:           "Up",
	KeyNumLock:      "NumLock",
	KeyLeftControl:  "LeftControl",
	KeyLeftShift:    "LeftShift",
	KeyLeftAlt:      "LeftAlt",
	KeyLeftGUI:      "LeftGUI",
	KeyRightControl: "RightControl",
	KeyRightShift:   "RightShift",
	KeyRightAlt:     "RightAlt",
	KeyRightGUI:     "RightGUI",
}

func KeyName(code uint16) string {
	name, ok := keyNameMap[code]
	if !ok {
		return fmt.Sprintf("0x%02x", code)
	}
	return name
}
