package usagepages

// ToASCII maps a keyboard-page usage to the ASCII byte the command-mode
// menu dispatches on. Only digits, letters, space and enter are mapped;
// everything else yields 0.
func ToASCII(code uint16) byte {
	switch {
	case code >= KeyA && code <= KeyZ:
		return byte('a' + (code - KeyA))
	case code >= Key1 && code <= Key9:
		return byte('1' + (code - Key1))
	case code == Key0:
		return '0'
	case code == KeySpace:
		return ' '
	case code == KeyEnter:
		return '\n'
	}
	return 0
}

// FromASCII is the inverse of ToASCII. Unmapped bytes yield 0.
func FromASCII(b byte) uint16 {
	switch {
	case b >= 'a' && b <= 'z':
		return KeyA + uint16(b-'a')
	case b >= 'A' && b <= 'Z':
		return KeyA + uint16(b-'A')
	case b >= '1' && b <= '9':
		return Key1 + uint16(b-'1')
	case b == '0':
		return Key0
	case b == ' ':
		return KeySpace
	case b == '\n':
		return KeyEnter
	}
	return 0
}
