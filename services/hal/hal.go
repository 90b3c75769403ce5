// Package hal owns the device's digital lines: the four ADC bus lines, the
// two LED lines and the shutdown button. Every line access made on behalf
// of the ADC or the LEDs runs as one registry transaction.
package hal

import (
	"context"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/physic"

	"pipower-go/drivers/bitbang"
	"pipower-go/drivers/mcp3008"
	"pipower-go/errcode"
	"pipower-go/services/hal/core"
	"pipower-go/services/hal/internal/gpioirq"
	"pipower-go/types"
)

// Device IDs used for line ownership.
const (
	devADCClock  = "adc.clk"
	devADCOut    = "adc.mosi"
	devADCIn     = "adc.miso"
	devADCSelect = "adc.cs"
	devLEDRed    = "led.red"
	devLEDGreen  = "led.green"
	devButton    = "button"
)

const (
	isrQueueLen  = 16
	edgeQueueLen = 1
)

type HAL struct {
	reg *core.Registry
	irq *gpioirq.Worker
	log *slog.Logger

	adc      mcp3008.Device
	leds     map[types.LEDColor]core.GPIOHandle
	ledOn    bool // line level that lights an LED
	button   core.GPIOHandle
	disarmed func()
}

// Open claims and configures every line named in cfg. Any failure is a
// hardware_io error and leaves no line claimed.
func Open(ctx context.Context, cfg types.Config, pins core.PinFactory, log *slog.Logger) (*HAL, error) {
	h := &HAL{
		reg:   core.NewRegistry(pins),
		irq:   gpioirq.New(isrQueueLen, edgeQueueLen),
		log:   log,
		leds:  make(map[types.LEDColor]core.GPIOHandle, 2),
		ledOn: cfg.LED.Polarity.OnLevel(),
	}
	if err := h.open(ctx, cfg); err != nil {
		_ = h.reg.ReleaseAll()
		return nil, err
	}
	return h, nil
}

func (h *HAL) open(ctx context.Context, cfg types.Config) error {
	a := cfg.ADC
	clk, err := h.output(devADCClock, a.Clock, false)
	if err != nil {
		return err
	}
	mosi, err := h.output(devADCOut, a.DataOut, false)
	if err != nil {
		return err
	}
	miso, err := h.input(devADCIn, a.DataIn, core.PullNone)
	if err != nil {
		return err
	}
	cs, err := h.output(devADCSelect, a.ChipSelect, true)
	if err != nil {
		return err
	}
	bus := bitbang.New(clk, mosi, miso, cs, bitbang.Config{
		Frequency: physic.Frequency(a.ClockHz) * physic.Hertz,
	})
	h.adc = mcp3008.New(bus)
	h.adc.Configure(mcp3008.Config{Framed: a.Framed})

	for color, line := range map[types.LEDColor]struct {
		id  string
		pin int
	}{
		types.Red:   {devLEDRed, cfg.LED.Red},
		types.Green: {devLEDGreen, cfg.LED.Green},
	} {
		led, err := h.output(line.id, line.pin, !h.ledOn)
		if err != nil {
			return err
		}
		h.leds[color] = led
	}

	h.button, err = h.input(devButton, cfg.Button.Pin, core.PullDown)
	if err != nil {
		return err
	}
	irqPin, ok := h.button.(core.IRQPin)
	if !ok {
		return &errcode.E{C: errcode.HardwareIO, Op: devButton, Msg: "line has no edge interrupt support"}
	}
	h.irq.Start(ctx)
	debounce := time.Duration(cfg.Button.DebounceMs) * time.Millisecond
	h.disarmed, err = h.irq.RegisterInput(devButton, irqPin, core.EdgeRising, debounce, false)
	if err != nil {
		return errcode.Wrap(errcode.HardwareIO, devButton, err)
	}

	h.log.Debug("lines configured",
		"adc", []int{a.Clock, a.DataOut, a.DataIn, a.ChipSelect},
		"led_red", cfg.LED.Red, "led_green", cfg.LED.Green,
		"button", cfg.Button.Pin, "polarity", string(cfg.LED.Polarity),
		"adc_half_period", bus.HalfPeriod())
	return nil
}

func (h *HAL) output(devID string, n int, initial bool) (core.GPIOHandle, error) {
	g, err := h.reg.Claim(devID, n)
	if err != nil {
		return nil, errcode.Wrap(errcode.HardwareIO, devID, err)
	}
	if err := g.ConfigureOutput(initial); err != nil {
		return nil, errcode.Wrap(errcode.HardwareIO, devID, err)
	}
	return g, nil
}

func (h *HAL) input(devID string, n int, pull core.Pull) (core.GPIOHandle, error) {
	g, err := h.reg.Claim(devID, n)
	if err != nil {
		return nil, errcode.Wrap(errcode.HardwareIO, devID, err)
	}
	if err := g.ConfigureInput(pull); err != nil {
		return nil, errcode.Wrap(errcode.HardwareIO, devID, err)
	}
	return g, nil
}

// ReadADC samples one channel as a single transaction.
func (h *HAL) ReadADC(ch int) (uint16, error) {
	var v uint16
	err := h.reg.Transact(func() error {
		var err error
		v, err = h.adc.Read(ch)
		return err
	})
	return v, err
}

// SetLEDs switches the given LEDs on or off as a single transaction.
func (h *HAL) SetLEDs(colors []types.LEDColor, on bool) error {
	level := on == h.ledOn
	return h.reg.Transact(func() error {
		for _, c := range colors {
			led, ok := h.leds[c]
			if !ok {
				continue
			}
			if err := led.Set(level); err != nil {
				return errcode.Wrap(errcode.HardwareIO, "led."+c.String(), err)
			}
		}
		return nil
	})
}

// ButtonPressed reads the button line (pull-down; high = pressed).
func (h *HAL) ButtonPressed() bool { return h.button.Get() }

// ButtonEdges delivers debounced rising edges of the button line.
func (h *HAL) ButtonEdges() <-chan core.EdgeEvent { return h.irq.Events() }

// ISRDrops counts edges lost because the ISR queue was full.
func (h *HAL) ISRDrops() uint32 { return h.irq.ISRDrops() }

// ReleaseAll disarms the button interrupt, waits for any line transaction in
// flight, then returns every line to an unconfigured input.
func (h *HAL) ReleaseAll() error {
	if h.disarmed != nil {
		h.disarmed()
	}
	return h.reg.ReleaseAll()
}
