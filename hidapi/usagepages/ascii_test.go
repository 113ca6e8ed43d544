package usagepages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestASCIIRoundTrip(t *testing.T) {
	var mapped []uint16
	for code := KeyA; code <= KeyZ; code++ {
		mapped = append(mapped, code)
	}
	for code := Key1; code <= Key9; code++ {
		mapped = append(mapped, code)
	}
	mapped = append(mapped, Key0, KeySpace, KeyEnter)

	for _, code := range mapped {
		b := ToASCII(code)
		assert.NotZero(t, b, "key %s should map", KeyName(code))
		assert.Equal(t, code, FromASCII(b), "round trip for %s", KeyName(code))
	}
}

func TestUnmappedKeysYieldZero(t *testing.T) {
	unmapped := []uint16{
		KeyEscape, KeyBackspace, KeyTab, KeyMinus, KeyEqual,
		KeyF1, KeyLeftShift, KeyRightGUI, 0x0000, 0x00A5,
	}
	for _, code := range unmapped {
		assert.Zero(t, ToASCII(code), "key %s should not map", KeyName(code))
	}
}

func TestFromASCIIUppercaseFolds(t *testing.T) {
	assert.Equal(t, KeyQ, FromASCII('Q'))
	assert.Zero(t, FromASCII('*'))
}
