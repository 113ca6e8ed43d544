// Package hostapi defines the contract between the dispatch pipeline and
// the legacy host emulators.
package hostapi

import (
	"github.com/toshok/babelfish/hidapi"
	"go.uber.org/zap"
)

// Host is one legacy protocol emulator. Exactly one host is active for the
// lifetime of a boot.
//
// Init is called once, before dispatch begins, and configures the
// emulator's electrical channels. KeyboardEvent and MouseEvent translate a
// single normalized event to the on-wire encoding; they must return
// quickly, leaving long protocol transactions to Update. Update is called
// once per dispatch iteration to service protocol timers and inbound bytes
// from the legacy host.
//
// No operation other than Init may fail upward. Protocol-level errors are
// handled or logged inside the emulator; an emulator that finds its channel
// unresponsive may re-initialize it from Update, but never aborts.
type Host interface {
	Descriptor() Descriptor
	Init() error
	KeyboardEvent(e hidapi.KeyboardEvent)
	MouseEvent(e hidapi.MouseEvent)
	Update()
}

// Descriptor identifies a host emulator. Notes is the wiring description
// shown to the user by the command-mode menu and the CLI.
type Descriptor struct {
	Name  string
	Notes string
}

// Parity for a channel's UART framing.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// ChannelMode is the electrical configuration an emulator applies to a
// channel at Init time.
type ChannelMode struct {
	Baud   uint32
	Parity Parity
	Mux    uint8
}

// Channel is one of the board's legacy-side channels: a UART plus the mux
// select lines routing it to a connector.
type Channel interface {
	Configure(mode ChannelMode) error
	Write(p []byte) (int, error)
	// TryRead returns one inbound byte without blocking.
	TryRead() (byte, bool)
}

// Provider gives emulator constructors access to board resources.
type Provider interface {
	Channel(num int) Channel
	Log() *zap.Logger
}
