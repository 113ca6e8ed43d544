// Package cmdmode implements the chorded-hold command mode: holding the
// command key long enough turns subsequent keystrokes into menu input
// instead of host input, and the menu answers by typing at the host.
package cmdmode

import (
	"time"

	"github.com/toshok/babelfish/hidapi"
	"github.com/toshok/babelfish/hidapi/usagepages"
	"github.com/toshok/babelfish/hostapi"
	"go.uber.org/zap"
)

// CommandKey is the chord key. Holding = for HoldThreshold arms the menu.
const CommandKey = usagepages.KeyEqual

const (
	// HoldThreshold separates a short tap (replayed to the host) from a
	// command-mode hold.
	HoldThreshold = 500 * time.Millisecond

	// TypeDelay paces synthesized keystrokes. Legacy hosts drop
	// transitions that arrive faster than their scan rate; do not lower
	// this.
	TypeDelay = 100 * time.Millisecond
)

type state uint8

const (
	stateIdle state = iota
	stateArmed
	stateActive
)

// Command is one menu entry, dispatched by the ASCII value of the key
// pressed while command mode is active.
type Command struct {
	Key  byte
	Help string
	Run  func(f *Filter)
}

// Filter sits between the event store and the active host on the keyboard
// path. ProcessEvent reports whether it consumed the event.
type Filter struct {
	log   *zap.Logger
	host  hostapi.Host
	now   func() time.Time
	sleep func(time.Duration)

	state   state
	saved   hidapi.KeyboardEvent
	armedAt time.Time

	commands map[byte]Command
}

type Option func(*Filter)

// WithClock injects the time source and sleep used for hold detection and
// typing pace. Tests use fakes; production uses time.Now and time.Sleep.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(f *Filter) {
		f.now = now
		f.sleep = sleep
	}
}

func New(log *zap.Logger, host hostapi.Host, opts ...Option) *Filter {
	f := &Filter{
		log:      log,
		host:     host,
		now:      time.Now,
		sleep:    time.Sleep,
		commands: make(map[byte]Command),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RegisterCommand adds a menu entry. Later registrations win; the menu is
// deliberately open for extension.
func (f *Filter) RegisterCommand(cmd Command) {
	f.commands[cmd.Key] = cmd
}

// ProcessEvent runs one keyboard event through the state machine.
//
// The command-key DOWN that arms the filter is held in limbo: it reaches
// the host only once a later event proves the hold was short. Transitions
// are event-driven; a hold with no following event leaves the filter in
// the armed state, which is fine because the command key must stay held
// while operating the menu anyway.
func (f *Filter) ProcessEvent(e hidapi.KeyboardEvent) bool {
	switch f.state {
	case stateArmed:
		if f.now().Sub(f.armedAt) < HoldThreshold {
			// too brief for command mode: let the host see the saved
			// DOWN, then handle the current event as if nothing happened
			f.state = stateIdle
			f.host.KeyboardEvent(f.saved)
			return f.ProcessEvent(e)
		}
		f.state = stateActive
		f.log.Debug("command mode active")
		return f.processActive(e)

	case stateActive:
		return f.processActive(e)

	default:
		if e.Down && e.Keycode == CommandKey {
			f.saved = e
			f.armedAt = f.now()
			f.state = stateArmed
			return true
		}
		return false
	}
}

func (f *Filter) processActive(e hidapi.KeyboardEvent) bool {
	if !e.Down {
		if e.Keycode == CommandKey {
			f.state = stateIdle
			f.log.Debug("command mode exit")
		}
		return true
	}
	ascii := usagepages.ToASCII(e.Keycode)
	if ascii == 0 {
		return true
	}
	cmd, ok := f.commands[ascii]
	if !ok {
		return true
	}
	f.log.Debug("command", zap.String("key", string(cmd.Key)))
	cmd.Run(f)
	return true
}

// Type synthesizes keystrokes at the host, one DOWN/UP pair per mappable
// character, with TypeDelay between every transition.
func (f *Filter) Type(s string) {
	for i := 0; i < len(s); i++ {
		code := usagepages.FromASCII(s[i])
		if code == 0 {
			continue
		}
		f.host.KeyboardEvent(hidapi.KeyDown(code))
		f.sleep(TypeDelay)
		f.host.KeyboardEvent(hidapi.KeyUp(code))
		f.sleep(TypeDelay)
	}
}
