package types

import "time"

// ------------------------
// LED (two-colour, boolean per colour)
// ------------------------

type LEDColor uint8

const (
	Red LEDColor = iota
	Green
)

func (c LEDColor) String() string {
	if c == Green {
		return "green"
	}
	return "red"
}

// LEDPolarity selects which level lights an LED.
type LEDPolarity string

const (
	CommonAnode   LEDPolarity = "common_anode"   // on = low
	CommonCathode LEDPolarity = "common_cathode" // on = high
)

// OnLevel returns the line level that lights an LED.
func (p LEDPolarity) OnLevel() bool { return p == CommonCathode }

// LEDPattern is a blink description. Off == 0 means constant on.
type LEDPattern struct {
	Name string
	LEDs []LEDColor
	On   time.Duration
	Off  time.Duration
}

// Constant reports whether the pattern holds its LEDs on for the whole interval.
func (p LEDPattern) Constant() bool { return p.Off == 0 }
