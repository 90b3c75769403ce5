// Package button turns a debounced rising edge on the shutdown button into a
// confirmed shutdown request once the button has been held long enough.
package button

import (
	"context"
	"log/slog"
	"time"

	"pipower-go/services/hal/core"
	"pipower-go/types"
	"pipower-go/x/timex"
)

// Outcome of one hold.
type Outcome uint8

const (
	Cancelled Outcome = iota // released before the hold time
	Confirmed                // held for the whole hold time
	Aborted                  // context cancelled while sampling
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Aborted:
		return "aborted"
	default:
		return "cancelled"
	}
}

// Line reports the button level (true = pressed).
type Line interface {
	ButtonPressed() bool
}

// Shutdowner starts the shutdown sequence.
type Shutdowner interface {
	Shutdown(ctx context.Context, cause types.ShutdownCause) bool
}

// Monitor is the hold state machine: Idle until an edge arrives, then
// Sampling until the button is released or the hold time is reached.
type Monitor struct {
	line   Line
	sd     Shutdowner
	clock  timex.Clock
	log    *slog.Logger
	hold   time.Duration
	sample time.Duration
}

func New(line Line, sd Shutdowner, clock timex.Clock, cfg types.ButtonConfig, log *slog.Logger) *Monitor {
	return &Monitor{
		line:   line,
		sd:     sd,
		clock:  clock,
		log:    log,
		hold:   time.Duration(cfg.HoldMs) * time.Millisecond,
		sample: time.Duration(cfg.SampleMs) * time.Millisecond,
	}
}

// Run consumes edges until ctx is cancelled. Edges that arrived while a hold
// was being sampled are discarded.
func (m *Monitor) Run(ctx context.Context, edges <-chan core.EdgeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-edges:
			if !ok {
				return
			}
			m.log.Info("button pressed", "at", ev.TS)
			out := m.Hold(ctx)
			m.log.Info("button hold", "outcome", out.String())
			if out == Confirmed {
				m.sd.Shutdown(ctx, types.UserRequested)
			}
			drain(edges)
		}
	}
}

// Hold samples the line every sample period until it reads low (Cancelled)
// or it has read high for the whole hold time (Confirmed).
func (m *Monitor) Hold(ctx context.Context) Outcome {
	var elapsed time.Duration
	for elapsed < m.hold {
		if !m.clock.Sleep(ctx, m.sample) {
			return Aborted
		}
		if !m.line.ButtonPressed() {
			m.log.Debug("button released", "held", elapsed)
			return Cancelled
		}
		elapsed += m.sample
		m.log.Debug("button held", "held", elapsed)
	}
	return Confirmed
}

func drain(edges <-chan core.EdgeEvent) {
	for {
		select {
		case _, ok := <-edges:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
