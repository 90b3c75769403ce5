package core

import "time"

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

// GPIOHandle is one claimed digital line. Levels are abstract: true = high.
type GPIOHandle interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool) error
	Get() bool
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// IRQPin extends GPIOHandle with interrupts. The handler runs in ISR-like
// context and must not block.
type IRQPin interface {
	GPIOHandle
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory supplies lines by BCM number.
type PinFactory interface {
	ByNumber(n int) (GPIOHandle, bool)
}

// EdgeEvent is delivered from the edge worker to its consumer.
type EdgeEvent struct {
	DevID string
	Level bool // after inversion
	Edge  Edge
	TS    time.Time
}
