// Package power turns raw ADC samples into voltages, a battery charge
// fraction and a power-source classification.
package power

import (
	"pipower-go/types"
	"pipower-go/x/mathx"
)

// FullScale is the largest raw sample of the 10-bit converter.
const FullScale = 1023

// DividerOutput is the voltage a resistor divider produces from vin.
func DividerOutput(r1, r2, vin float64) float64 {
	return vin * r2 / (r1 + r2)
}

// Model converts raw samples to volts. The conversion factor is fixed when
// the model is built.
type Model struct {
	factor  float64
	battMin float64
	battMax float64
}

// NewModel expects a validated configuration (positive divider, battery
// min < max, positive GPIO and USB maxima).
func NewModel(div types.DividerConfig, ranges types.RangeConfig) Model {
	usbMax := ranges.USB.Max
	return Model{
		factor:  ranges.GPIO.Max / DividerOutput(div.R1, div.R2, usbMax) * usbMax,
		battMin: ranges.Battery.Min,
		battMax: ranges.Battery.Max,
	}
}

// ConversionFactor is the voltage a full-scale sample represents.
func (m Model) ConversionFactor() float64 { return m.factor }

// Voltage maps a raw sample (0..1023) to volts.
func (m Model) Voltage(raw uint16) float64 {
	return float64(raw) / FullScale * m.factor
}

// BatteryFraction maps a battery voltage onto [0, 1] across the configured range.
func (m Model) BatteryFraction(v float64) float64 {
	return mathx.Clamp((v-m.battMin)/(m.battMax-m.battMin), 0, 1)
}
