// Package gpioirq turns pin interrupts into debounced edge events.
package gpioirq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pipower-go/services/hal/core"
)

type Worker struct {
	// Written by the ISR; MUST NOT block the ISR.
	isrQ chan isrEvent
	// Consumed by the owner of the input (e.g. the button monitor).
	outQ    chan core.EdgeEvent
	stopped chan struct{}

	mu     sync.RWMutex
	inputs map[string]*watch // devID -> watch

	drops uint32 // ISR drop counter
	now   func() time.Time
}

type isrEvent struct {
	devID string
	level bool // captured in ISR
}

type watch struct {
	devID     string
	pin       core.IRQPin
	edge      core.Edge
	debounce  time.Duration
	invert    bool
	lastLevel bool
	lastEvent time.Time
}

func New(isrBuf, outBuf int) *Worker {
	if isrBuf <= 0 {
		isrBuf = 16
	}
	if outBuf <= 0 {
		outBuf = 4
	}
	return &Worker{
		isrQ:    make(chan isrEvent, isrBuf),
		outQ:    make(chan core.EdgeEvent, outBuf),
		stopped: make(chan struct{}),
		inputs:  map[string]*watch{},
		now:     time.Now,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-w.isrQ:
				w.handleISR(ev)
			}
		}
	}()
}

// Stopped is closed once the worker goroutine has exited.
func (w *Worker) Stopped() <-chan struct{} { return w.stopped }

func (w *Worker) Events() <-chan core.EdgeEvent { return w.outQ }

// RegisterInput arms the pin's interrupt. Accepted edges closer together than
// debounce are suppressed. The returned func disarms it.
func (w *Worker) RegisterInput(devID string, pin core.IRQPin, edge core.Edge, debounce time.Duration, invert bool) (func(), error) {
	if edge == core.EdgeNone {
		return func() {}, nil
	}

	// Initial logical snapshot so later edges compare like-for-like.
	init := pin.Get()
	if invert {
		init = !init
	}
	wh := &watch{
		devID:     devID,
		pin:       pin,
		edge:      edge,
		debounce:  debounce,
		invert:    invert,
		lastLevel: init,
	}

	handler := func() {
		select {
		case w.isrQ <- isrEvent{devID: devID, level: pin.Get()}:
		default:
			atomic.AddUint32(&w.drops, 1)
		}
	}
	if err := pin.SetIRQ(edge, handler); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.inputs[devID] = wh
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		if cur, ok := w.inputs[devID]; ok {
			_ = cur.pin.ClearIRQ()
			delete(w.inputs, devID)
		}
		w.mu.Unlock()
	}, nil
}

func (w *Worker) handleISR(ev isrEvent) {
	w.mu.RLock()
	wh := w.inputs[ev.devID]
	w.mu.RUnlock()
	if wh == nil {
		return
	}
	level := ev.level
	if wh.invert {
		level = !level
	}
	now := w.now()

	if !wh.lastEvent.IsZero() && now.Sub(wh.lastEvent) < wh.debounce {
		return
	}

	var e core.Edge
	switch wh.edge {
	case core.EdgeBoth:
		switch {
		case !wh.lastLevel && level:
			e = core.EdgeRising
		case wh.lastLevel && !level:
			e = core.EdgeFalling
		}
	default:
		// Only the configured edge fires the IRQ; trust it.
		e = wh.edge
	}

	if e != core.EdgeNone {
		select {
		case w.outQ <- core.EdgeEvent{DevID: ev.devID, Level: level, Edge: e, TS: now}:
		default:
			// consumer busy (e.g. already sampling a hold); drop
		}
	}

	wh.lastLevel = level
	wh.lastEvent = now
}

func (w *Worker) ISRDrops() uint32 { return atomic.LoadUint32(&w.drops) }
