// Package board models the board-support collaborators the core consumes:
// the two legacy-side channels (UART plus 4:1 mux select lines), the status
// LEDs, and the CDC reset hook. Real byte I/O lives behind the Port and
// MuxDriver interfaces so the pipeline can run against hardware or against
// the in-memory loopback used by tests.
package board

import (
	"fmt"

	"github.com/toshok/babelfish/hostapi"
	"go.uber.org/zap"
)

const NumChannels = 2

// GPIO assignments of the babelfish board.
const (
	USBAuxDPPin = 16

	TXAPin   = 0
	RXAPin   = 1
	CHAS0Pin = 10
	CHAS1Pin = 11

	TXBPin   = 4
	RXBPin   = 5
	CHBS0Pin = 12
	CHBS1Pin = 13

	LEDPwrPin = 18
	LEDPOkPin = 19
	LEDAuxPin = 20
)

// ChannelConfig is the wiring of one channel.
type ChannelConfig struct {
	Num   int
	UART  int
	TXPin int
	RXPin int
	S0Pin int
	S1Pin int
}

// DefaultChannels mirrors the board schematic: channel A on UART0,
// channel B on UART1.
func DefaultChannels() [NumChannels]ChannelConfig {
	return [NumChannels]ChannelConfig{
		{Num: 0, UART: 0, TXPin: TXAPin, RXPin: RXAPin, S0Pin: CHAS0Pin, S1Pin: CHAS1Pin},
		{Num: 1, UART: 1, TXPin: TXBPin, RXPin: RXBPin, S0Pin: CHBS0Pin, S1Pin: CHBS1Pin},
	}
}

// Port is the UART half of a channel.
type Port interface {
	Configure(baud uint32, parity hostapi.Parity) error
	Write(p []byte) (int, error)
	TryRead() (byte, bool)
}

// MuxDriver drives a channel's S0/S1 select lines.
type MuxDriver interface {
	Select(position uint8) error
}

// Channel pairs a Port with its MuxDriver and implements hostapi.Channel.
type Channel struct {
	log  *zap.Logger
	cfg  ChannelConfig
	port Port
	mux  MuxDriver

	mode       hostapi.ChannelMode
	configured bool
}

func (c *Channel) Configure(mode hostapi.ChannelMode) error {
	if err := c.port.Configure(mode.Baud, mode.Parity); err != nil {
		return fmt.Errorf("channel %d uart: %w", c.cfg.Num, err)
	}
	if err := c.mux.Select(mode.Mux); err != nil {
		return fmt.Errorf("channel %d mux: %w", c.cfg.Num, err)
	}
	c.mode = mode
	c.configured = true
	c.log.Debug("channel configured",
		zap.Int("channel", c.cfg.Num),
		zap.Uint32("baud", mode.Baud),
		zap.Uint8("mux", mode.Mux))
	return nil
}

func (c *Channel) Write(p []byte) (int, error) {
	return c.port.Write(p)
}

func (c *Channel) TryRead() (byte, bool) {
	return c.port.TryRead()
}

// Mode reports the last configuration applied to the channel.
func (c *Channel) Mode() (hostapi.ChannelMode, bool) {
	return c.mode, c.configured
}

// Board bundles the channels and LEDs. It implements hostapi.Provider for
// the emulator constructors.
type Board struct {
	log      *zap.Logger
	channels [NumChannels]*Channel
	leds     *LEDs
}

func New(log *zap.Logger, ports [NumChannels]Port, muxes [NumChannels]MuxDriver, leds LEDDriver) *Board {
	b := &Board{
		log:  log,
		leds: NewLEDs(leds),
	}
	cfgs := DefaultChannels()
	for i := range b.channels {
		b.channels[i] = &Channel{
			log:  log,
			cfg:  cfgs[i],
			port: ports[i],
			mux:  muxes[i],
		}
	}
	return b
}

func (b *Board) Channel(num int) hostapi.Channel {
	return b.channels[num]
}

func (b *Board) Log() *zap.Logger {
	return b.log
}

func (b *Board) LEDs() *LEDs {
	return b.leds
}
