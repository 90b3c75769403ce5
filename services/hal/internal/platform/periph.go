package platform

import (
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"pipower-go/errcode"
	"pipower-go/services/hal/core"
)

// edgePoll bounds how long an edge watcher blocks before re-checking for
// ClearIRQ.
const edgePoll = 250 * time.Millisecond

// PeriphFactory resolves BCM line numbers through periph.io's registry.
type PeriphFactory struct {
	mu   sync.Mutex
	pins map[int]*PeriphPin
}

// OpenPeriph initialises the periph host drivers (sysfs / character device /
// bcm283x register access, whichever the kernel offers).
func OpenPeriph() (*PeriphFactory, error) {
	if _, err := host.Init(); err != nil {
		return nil, errcode.Wrap(errcode.HardwareIO, "periph.init", err)
	}
	return &PeriphFactory{pins: make(map[int]*PeriphPin)}, nil
}

func (f *PeriphFactory) ByNumber(n int) (core.GPIOHandle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pins[n]; ok {
		return p, true
	}
	io := gpioreg.ByName("GPIO" + strconv.Itoa(n))
	if io == nil {
		return nil, false
	}
	p := &PeriphPin{n: n, io: io}
	f.pins[n] = p
	return p, true
}

// PeriphPin adapts gpio.PinIO to core.IRQPin. periph has no callback
// interrupts; SetIRQ runs a watcher goroutine blocked in WaitForEdge that
// invokes the handler for each edge.
type PeriphPin struct {
	n    int
	io   gpio.PinIO
	pull gpio.Pull

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (p *PeriphPin) Number() int { return p.n }

func (p *PeriphPin) ConfigureInput(pull core.Pull) error {
	p.pull = toPeriphPull(pull)
	if err := p.io.In(p.pull, gpio.NoEdge); err != nil {
		return errcode.Wrap(errcode.HardwareIO, p.io.Name(), err)
	}
	return nil
}

func (p *PeriphPin) ConfigureOutput(initial bool) error {
	if err := p.io.Out(gpio.Level(initial)); err != nil {
		return errcode.Wrap(errcode.HardwareIO, p.io.Name(), err)
	}
	return nil
}

func (p *PeriphPin) Set(level bool) error {
	if err := p.io.Out(gpio.Level(level)); err != nil {
		return errcode.Wrap(errcode.HardwareIO, p.io.Name(), err)
	}
	return nil
}

func (p *PeriphPin) Get() bool { return p.io.Read() == gpio.High }

func (p *PeriphPin) SetIRQ(edge core.Edge, handler func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return errcode.Wrap(errcode.PinInUse, p.io.Name(), nil)
	}
	if err := p.io.In(p.pull, toPeriphEdge(edge)); err != nil {
		return errcode.Wrap(errcode.HardwareIO, p.io.Name(), err)
	}
	stop, done := make(chan struct{}), make(chan struct{})
	p.stop, p.done = stop, done
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if p.io.WaitForEdge(edgePoll) {
				handler()
			}
		}
	}()
	return nil
}

func (p *PeriphPin) ClearIRQ() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	_ = p.io.Halt()
	<-done
	if err := p.io.In(p.pull, gpio.NoEdge); err != nil {
		return errcode.Wrap(errcode.HardwareIO, p.io.Name(), err)
	}
	return nil
}

func toPeriphPull(p core.Pull) gpio.Pull {
	switch p {
	case core.PullUp:
		return gpio.PullUp
	case core.PullDown:
		return gpio.PullDown
	default:
		return gpio.Float
	}
}

func toPeriphEdge(e core.Edge) gpio.Edge {
	switch e {
	case core.EdgeRising:
		return gpio.RisingEdge
	case core.EdgeFalling:
		return gpio.FallingEdge
	case core.EdgeBoth:
		return gpio.BothEdges
	default:
		return gpio.NoEdge
	}
}
