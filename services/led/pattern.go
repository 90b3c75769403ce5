// Package led maps power state onto the two-colour status LED.
package led

import (
	"time"

	"pipower-go/types"
)

var (
	both      = []types.LEDColor{types.Red, types.Green}
	redOnly   = []types.LEDColor{types.Red}
	greenOnly = []types.LEDColor{types.Green}
)

// Named patterns.
var (
	Off            = types.LEDPattern{Name: "off"}
	GreenConstant  = types.LEDPattern{Name: "green-constant", LEDs: greenOnly}
	YellowConstant = types.LEDPattern{Name: "yellow-constant", LEDs: both}
	RedConstant    = types.LEDPattern{Name: "red-constant", LEDs: redOnly}
	RedBlink       = types.LEDPattern{Name: "red-blink", LEDs: redOnly, On: time.Second, Off: time.Second}
	RedBlinkFast   = types.LEDPattern{Name: "red-blink-fast", LEDs: redOnly, On: 500 * time.Millisecond, Off: 500 * time.Millisecond}
	GreenBlink     = types.LEDPattern{Name: "green-blink", LEDs: greenOnly, On: 2 * time.Second, Off: 500 * time.Millisecond}
)

// Battery fraction thresholds, lowest bound of each band.
const (
	greenAbove  = 0.50
	yellowAbove = 0.25
	redAbove    = 0.15
	blinkAbove  = 0.10
)

// Select picks the pattern for a power state. On USB the battery fraction
// is ignored.
func Select(st types.PowerState) types.LEDPattern {
	switch st.Source {
	case types.SourceUSB:
		return GreenBlink
	case types.SourceBattery:
		f := st.BatteryFraction
		switch {
		case f >= greenAbove:
			return GreenConstant
		case f >= yellowAbove:
			return YellowConstant
		case f >= redAbove:
			return RedConstant
		case f >= blinkAbove:
			return RedBlink
		default:
			return RedBlinkFast
		}
	default:
		return Off
	}
}
