package led

import (
	"context"
	"log/slog"
	"time"

	"pipower-go/types"
	"pipower-go/x/timex"
)

// LEDs switches LED lines. Each call is one hardware transaction.
type LEDs interface {
	SetLEDs(colors []types.LEDColor, on bool) error
}

// Signaler plays patterns on the status LED.
type Signaler struct {
	leds  LEDs
	clock timex.Clock
	log   *slog.Logger
}

func NewSignaler(leds LEDs, clock timex.Clock, log *slog.Logger) *Signaler {
	return &Signaler{leds: leds, clock: clock, log: log}
}

// Cycles is the number of complete on/off cycles that fit in interval.
// A trailing partial cycle is not counted.
func Cycles(interval, on, off time.Duration) int {
	period := on + off
	if period <= 0 || interval <= 0 {
		return 0
	}
	return int(interval / period)
}

// Drive switches both LEDs off and then plays p for interval. A constant
// pattern holds its LEDs on for the whole interval; a blinking one plays
// Cycles(interval, p.On, p.Off) complete cycles. The off pattern only waits.
// Drive returns ctx.Err() as soon as the context is cancelled.
func (s *Signaler) Drive(ctx context.Context, p types.LEDPattern, interval time.Duration) error {
	if err := s.leds.SetLEDs(both, false); err != nil {
		return err
	}

	if len(p.LEDs) == 0 {
		return s.wait(ctx, interval)
	}
	if p.Constant() {
		if err := s.leds.SetLEDs(p.LEDs, true); err != nil {
			return err
		}
		return s.wait(ctx, interval)
	}

	n := Cycles(interval, p.On, p.Off)
	s.log.Debug("led blink", "pattern", p.Name, "cycles", n)
	for i := 0; i < n; i++ {
		if err := s.leds.SetLEDs(p.LEDs, true); err != nil {
			return err
		}
		if err := s.wait(ctx, p.On); err != nil {
			return err
		}
		if err := s.leds.SetLEDs(p.LEDs, false); err != nil {
			return err
		}
		if err := s.wait(ctx, p.Off); err != nil {
			return err
		}
	}
	return nil
}

func (s *Signaler) wait(ctx context.Context, d time.Duration) error {
	if !s.clock.Sleep(ctx, d) {
		return ctx.Err()
	}
	return nil
}
