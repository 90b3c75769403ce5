package power

import "pipower-go/types"

// DefaultUSBThreshold is the USB voltage above which the device counts as
// externally powered.
const DefaultUSBThreshold = 1.0

// Classifier derives the power state for one tick.
type Classifier struct {
	Model        Model
	USBThreshold float64
}

// Classify builds the state for the measured voltages and reports the
// source change relative to previous. An unknown previous source never
// yields a transition.
func (c Classifier) Classify(vbat, vusb float64, previous types.PowerSource) (types.PowerState, types.Transition) {
	st := types.PowerState{
		Source:          types.SourceBattery,
		BatteryFraction: c.Model.BatteryFraction(vbat),
		VBat:            vbat,
		VUSB:            vusb,
	}
	if vusb > c.USBThreshold {
		st.Source = types.SourceUSB
	}

	switch {
	case previous == types.SourceBattery && st.Source == types.SourceUSB:
		return st, types.USBConnected
	case previous == types.SourceUSB && st.Source == types.SourceBattery:
		return st, types.USBDisconnected
	default:
		return st, types.TransitionNone
	}
}
