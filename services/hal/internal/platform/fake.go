package platform

import (
	"sync"

	"pipower-go/services/hal/core"
)

// FakePin implements core.IRQPin for host-side tests. Every level written is
// appended to Writes so tests can check line traces.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	pull    core.Pull
	irqEdge core.Edge
	irqFunc func()
	writes  []bool
	onGet   func() bool
}

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) ConfigureInput(pull core.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) error {
	p.mu.Lock()
	p.level = level
	p.writes = append(p.writes, level)
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v, src := p.level, p.onGet
	p.mu.RUnlock()
	if src != nil {
		return src()
	}
	return v
}

// Drive sets the input level as seen by Get and fires the IRQ handler when
// the change matches the armed edge.
func (p *FakePin) Drive(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	irq := p.irqFunc
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

// OnGet installs a level source consulted by Get (e.g. a scripted MISO line).
func (p *FakePin) OnGet(f func() bool) {
	p.mu.Lock()
	p.onGet = f
	p.mu.Unlock()
}

func (p *FakePin) Output() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

func (p *FakePin) Pull() core.Pull {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pull
}

func (p *FakePin) Writes() []bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]bool(nil), p.writes...)
}

func (p *FakePin) SetIRQ(edge core.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = core.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Armed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqFunc != nil
}

func edgeFrom(old, new bool) core.Edge {
	switch {
	case !old && new:
		return core.EdgeRising
	case old && !new:
		return core.EdgeFalling
	default:
		return core.EdgeNone
	}
}

func irqWanted(cfg, seen core.Edge) bool {
	switch cfg {
	case core.EdgeBoth:
		return seen == core.EdgeRising || seen == core.EdgeFalling
	default:
		return cfg != core.EdgeNone && cfg == seen
	}
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewHostPinFactory() *HostPinFactory {
	return &HostPinFactory{pins: make(map[int]*FakePin)}
}

func (f *HostPinFactory) ByNumber(n int) (core.GPIOHandle, bool) {
	return f.Pin(n), true
}

// Pin exposes the underlying *FakePin for tests, creating it on first use.
func (f *HostPinFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p
}
