package types

// ------------------------
// Power source / battery
// ------------------------

type PowerSource uint8

const (
	SourceUnknown PowerSource = iota // first tick only
	SourceBattery
	SourceUSB
)

func (s PowerSource) String() string {
	switch s {
	case SourceBattery:
		return "battery"
	case SourceUSB:
		return "usb"
	default:
		return "unknown"
	}
}

// PowerState is recomputed every poll tick.
type PowerState struct {
	Source          PowerSource
	BatteryFraction float64 // [0.0, 1.0]
	VBat            float64 // volts
	VUSB            float64 // volts
}

// Transition is a change of power source between consecutive ticks.
type Transition uint8

const (
	TransitionNone Transition = iota
	USBConnected
	USBDisconnected
)

func (t Transition) String() string {
	switch t {
	case USBConnected:
		return "usb_connected"
	case USBDisconnected:
		return "usb_disconnected"
	default:
		return "none"
	}
}

// ------------------------
// Shutdown
// ------------------------

type ShutdownCause uint8

const (
	LowBattery ShutdownCause = iota
	UserRequested
)

func (c ShutdownCause) String() string {
	switch c {
	case LowBattery:
		return "low battery"
	case UserRequested:
		return "user request"
	default:
		return "unknown"
	}
}
