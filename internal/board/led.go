package board

// LED identifies one of the three status LEDs.
type LED uint8

const (
	LEDPower LED = iota
	LEDPortOK
	LEDAux
)

// LEDDriver is implemented by the board-support layer.
type LEDDriver interface {
	Set(led LED, on bool)
}

// LEDs applies the power-on sequence and exposes simple toggles.
type LEDs struct {
	driver LEDDriver
}

func NewLEDs(driver LEDDriver) *LEDs {
	return &LEDs{driver: driver}
}

// Startup lights all LEDs, then leaves only the power LED on.
func (l *LEDs) Startup() {
	l.driver.Set(LEDPower, true)
	l.driver.Set(LEDPortOK, true)
	l.driver.Set(LEDAux, true)
	l.driver.Set(LEDPortOK, false)
	l.driver.Set(LEDAux, false)
}

func (l *LEDs) SetPortOK(on bool) {
	l.driver.Set(LEDPortOK, on)
}

func (l *LEDs) SetAux(on bool) {
	l.driver.Set(LEDAux, on)
}

// NoopLEDDriver discards LED changes. Used when no physical board is
// attached.
type NoopLEDDriver struct{}

func (NoopLEDDriver) Set(LED, bool) {}
