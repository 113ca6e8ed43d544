package board

import (
	"sync"

	"github.com/toshok/babelfish/hostapi"
	"go.uber.org/zap"
)

// LoopbackPort is an in-memory Port. The device side uses Write/TryRead;
// tests play the legacy host through HostWrite/HostBytes.
type LoopbackPort struct {
	mu     sync.Mutex
	in     []byte
	out    []byte
	baud   uint32
	parity hostapi.Parity
}

func (p *LoopbackPort) Configure(baud uint32, parity hostapi.Parity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baud = baud
	p.parity = parity
	return nil
}

func (p *LoopbackPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, buf...)
	return len(buf), nil
}

func (p *LoopbackPort) TryRead() (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.in) == 0 {
		return 0, false
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b, true
}

// HostWrite queues bytes as if the legacy host sent them.
func (p *LoopbackPort) HostWrite(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in = append(p.in, buf...)
}

// HostBytes takes everything the emulator has transmitted so far.
func (p *LoopbackPort) HostBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.out
	p.out = nil
	return b
}

// Framing reports the last UART configuration applied.
func (p *LoopbackPort) Framing() (uint32, hostapi.Parity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baud, p.parity
}

// LoopbackMux records the selected mux position.
type LoopbackMux struct {
	mu       sync.Mutex
	position uint8
	selected bool
}

func (m *LoopbackMux) Select(position uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = position
	m.selected = true
	return nil
}

func (m *LoopbackMux) Position() (uint8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position, m.selected
}

// Loopback bundles the fakes behind a Board.
type Loopback struct {
	Ports [NumChannels]*LoopbackPort
	Muxes [NumChannels]*LoopbackMux
}

// NewLoopback builds a Board wired entirely to in-memory fakes.
func NewLoopback(log *zap.Logger) (*Board, *Loopback) {
	lb := &Loopback{}
	var ports [NumChannels]Port
	var muxes [NumChannels]MuxDriver
	for i := 0; i < NumChannels; i++ {
		lb.Ports[i] = &LoopbackPort{}
		lb.Muxes[i] = &LoopbackMux{}
		ports[i] = lb.Ports[i]
		muxes[i] = lb.Muxes[i]
	}
	return New(log, ports, muxes, NoopLEDDriver{}), lb
}
