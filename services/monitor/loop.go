// Package monitor runs the periodic poll: sample, classify, decide on a
// low-battery shutdown and show the state on the LED.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pipower-go/services/led"
	"pipower-go/services/power"
	"pipower-go/types"
)

type Sampler interface {
	Sample() (vbat, vusb float64, err error)
}

type Signaler interface {
	Drive(ctx context.Context, p types.LEDPattern, interval time.Duration) error
}

type Shutdowner interface {
	Shutdown(ctx context.Context, cause types.ShutdownCause) bool
	Done() <-chan struct{}
}

// Waiter sleeps out an interval; used when the LED could not be driven.
type Waiter interface {
	Sleep(ctx context.Context, d time.Duration) bool
}

// Deps wires the loop. All fields are required.
type Deps struct {
	Sampler     Sampler
	Classifier  power.Classifier
	LED         Signaler
	Shutdown    Shutdowner
	Clock       Waiter
	Log         *slog.Logger
	Interval    time.Duration
	MinFraction float64
}

type Loop struct {
	d       Deps
	prev    types.PowerSource
	elapsed time.Duration
}

func New(d Deps) *Loop { return &Loop{d: d} }

// Elapsed is the sum of the intervals of all completed ticks.
func (l *Loop) Elapsed() time.Duration { return l.elapsed }

// Run ticks until ctx is cancelled or the shutdown sequence has finished.
// Cancellation never starts a shutdown.
func (l *Loop) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.d.Shutdown.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.d.Shutdown.Done():
			return
		default:
		}
		l.Tick(ctx)
	}
}

// Tick runs one poll cycle; it takes about one interval.
func (l *Loop) Tick(ctx context.Context) {
	log := l.d.Log
	st := types.PowerState{Source: types.SourceUnknown}

	vbat, vusb, err := l.d.Sampler.Sample()
	if err != nil {
		log.Error("adc read failed", "err", err)
	} else {
		var tr types.Transition
		st, tr = l.d.Classifier.Classify(vbat, vusb, l.prev)
		switch tr {
		case types.USBConnected:
			log.Info("** USB cable connected")
		case types.USBDisconnected:
			log.Info("** USB cable disconnected")
		}
		l.prev = st.Source

		log.Info("status",
			"elapsed", l.elapsed,
			"v_bat", vbat,
			"v_usb", vusb,
			"fraction_battery", st.BatteryFraction,
			"power_source", st.Source.String())

		if st.BatteryFraction < l.d.MinFraction {
			log.Warn("** LOW BATTERY - shutting down")
			if l.d.Shutdown.Shutdown(ctx, types.LowBattery) {
				return
			}
		}
	}
	if ctx.Err() != nil {
		return
	}

	p := led.Select(st)
	if err := l.d.LED.Drive(ctx, p, l.d.Interval); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		log.Warn("led update failed", "pattern", p.Name, "err", err)
		if !l.d.Clock.Sleep(ctx, l.d.Interval) {
			return
		}
	}
	l.elapsed += l.d.Interval
}
