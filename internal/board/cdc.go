package board

import "go.uber.org/zap"

// MagicBaudRate is the CDC line-coding rate that requests a jump into the
// ROM bootloader for reflashing.
const MagicBaudRate = 1200

// CDC handles line-coding changes on the debug serial interface.
type CDC struct {
	log   *zap.Logger
	reset func()
}

// NewCDC wires the bootloader-reset hook. reset is supplied by the
// board-support layer and reenumerates the device as a mass-storage
// bootloader.
func NewCDC(log *zap.Logger, reset func()) *CDC {
	return &CDC{log: log, reset: reset}
}

// LineCoding is invoked whenever the host changes the debug interface's
// line coding.
func (c *CDC) LineCoding(baud uint32) {
	if baud != MagicBaudRate {
		return
	}
	c.log.Info("magic baud rate set, resetting to bootloader", zap.Uint32("baud", baud))
	c.reset()
}
