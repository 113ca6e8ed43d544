package usbsvc

import (
	"sync"

	"github.com/toshok/babelfish/hidapi"
)

// Normalizer diffs successive boot keyboard reports into key state
// changes. One instance per bound keyboard; reports may arrive from a
// backend goroutine while the device map is being walked, hence the lock.
type Normalizer struct {
	mu   sync.Mutex
	prev hidapi.BootKeyboardReport
}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) OnKeyboardReport(report []byte) []hidapi.KeyboardEvent {
	next := hidapi.DecodeBootKeyboardReport(report)
	n.mu.Lock()
	events := next.Diff(n.prev)
	n.prev = next
	n.mu.Unlock()
	return events
}
