package power

import "pipower-go/types"

// ADC reads one raw sample from a converter channel.
type ADC interface {
	ReadADC(ch int) (uint16, error)
}

// Sampler reads the battery and USB channels and converts both to volts.
type Sampler struct {
	adc       ADC
	model     Model
	batteryCh int
	usbCh     int
}

func NewSampler(adc ADC, model Model, cfg types.ADCConfig) *Sampler {
	return &Sampler{adc: adc, model: model, batteryCh: cfg.BatteryChannel, usbCh: cfg.USBChannel}
}

// Sample returns (vbat, vusb). The two reads are separate transactions.
func (s *Sampler) Sample() (vbat, vusb float64, err error) {
	rb, err := s.adc.ReadADC(s.batteryCh)
	if err != nil {
		return 0, 0, err
	}
	ru, err := s.adc.ReadADC(s.usbCh)
	if err != nil {
		return 0, 0, err
	}
	return s.model.Voltage(rb), s.model.Voltage(ru), nil
}
