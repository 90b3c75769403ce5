package monitor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipower-go/errcode"
	"pipower-go/services/config"
	"pipower-go/services/power"
	"pipower-go/types"
	"pipower-go/x/timex"
)

type reading struct {
	vbat, vusb float64
	err        error
}

// scriptSampler replays readings and cancels the run when they are used up.
type scriptSampler struct {
	readings []reading
	cancel   context.CancelFunc
	n        int
}

func (s *scriptSampler) Sample() (float64, float64, error) {
	if s.n >= len(s.readings) {
		s.cancel()
		return 0, 0, errors.New("script exhausted")
	}
	r := s.readings[s.n]
	s.n++
	return r.vbat, r.vusb, r.err
}

type recSignaler struct {
	clock    *timex.Fake
	patterns []string
	err      error
}

func (r *recSignaler) Drive(ctx context.Context, p types.LEDPattern, interval time.Duration) error {
	r.patterns = append(r.patterns, p.Name)
	if r.err != nil {
		return r.err
	}
	if !r.clock.Sleep(ctx, interval) {
		return ctx.Err()
	}
	return nil
}

type fakeShutdown struct {
	mu     sync.Mutex
	causes []types.ShutdownCause
	once   sync.Once
	done   chan struct{}
}

func newFakeShutdown() *fakeShutdown { return &fakeShutdown{done: make(chan struct{})} }

func (f *fakeShutdown) Shutdown(_ context.Context, cause types.ShutdownCause) bool {
	f.mu.Lock()
	f.causes = append(f.causes, cause)
	f.mu.Unlock()
	won := false
	f.once.Do(func() {
		won = true
		close(f.done)
	})
	return won
}

func (f *fakeShutdown) Done() <-chan struct{} { return f.done }

type harness struct {
	loop    *Loop
	sampler *scriptSampler
	led     *recSignaler
	sd      *fakeShutdown
	clock   *timex.Fake
	logs    *bytes.Buffer
}

func newHarness(t *testing.T, cancel context.CancelFunc, readings ...reading) *harness {
	t.Helper()
	cfg, err := config.Defaults(config.DefaultBoard)
	require.NoError(t, err)

	h := &harness{
		sampler: &scriptSampler{readings: readings, cancel: cancel},
		sd:      newFakeShutdown(),
		clock:   timex.NewFake(time.Unix(0, 0)),
		logs:    &bytes.Buffer{},
	}
	h.led = &recSignaler{clock: h.clock}
	h.loop = New(Deps{
		Sampler: h.sampler,
		Classifier: power.Classifier{
			Model:        power.NewModel(cfg.Divider, cfg.Ranges),
			USBThreshold: cfg.Poll.USBThresholdV,
		},
		LED:         h.led,
		Shutdown:    h.sd,
		Clock:       h.clock,
		Log:         slog.New(slog.NewTextHandler(h.logs, nil)),
		Interval:    10 * time.Second,
		MinFraction: cfg.Poll.MinBatteryFraction,
	})
	return h
}

func TestRunTransitionsAndPatterns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, cancel,
		reading{vbat: 4.0, vusb: 0},
		reading{vbat: 3.85, vusb: 0},
		reading{vbat: 3.85, vusb: 5.1},
		reading{vbat: 4.0, vusb: 5.1},
		reading{vbat: 3.81, vusb: 0},
	)

	h.loop.Run(ctx)

	assert.Equal(t, []string{"green-constant", "yellow-constant", "green-blink", "green-blink", "red-constant"}, h.led.patterns)
	assert.Equal(t, 50*time.Second, h.loop.Elapsed())
	assert.Contains(t, h.logs.String(), "** USB cable connected")
	assert.Contains(t, h.logs.String(), "** USB cable disconnected")
	assert.Contains(t, h.logs.String(), "power_source=usb")
	assert.Empty(t, h.sd.causes)
}

func TestRunLowBatteryShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, cancel,
		reading{vbat: 3.85, vusb: 0},
		reading{vbat: 3.76, vusb: 0},
		reading{vbat: 3.76, vusb: 0},
	)

	h.loop.Run(ctx)

	assert.Equal(t, []types.ShutdownCause{types.LowBattery}, h.sd.causes)
	assert.Contains(t, h.logs.String(), "** LOW BATTERY - shutting down")
	// the loop stops once the sequence is done; the third reading is never taken
	assert.Equal(t, 2, h.sampler.n)
	assert.Equal(t, []string{"yellow-constant"}, h.led.patterns)
}

func TestRunLowBatteryOnUSB(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, cancel, reading{vbat: 3.0, vusb: 5.0})

	h.loop.Run(ctx)

	assert.Equal(t, []types.ShutdownCause{types.LowBattery}, h.sd.causes)
}

func TestRunADCFailureIsUnknown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, cancel,
		reading{vbat: 4.0, vusb: 5.0},
		reading{err: errcode.Wrap(errcode.HardwareIO, "mcp3008.begin", errors.New("io"))},
		reading{vbat: 4.0, vusb: 0},
	)

	h.loop.Run(ctx)

	assert.Equal(t, []string{"green-blink", "off", "green-constant"}, h.led.patterns)
	assert.Contains(t, h.logs.String(), "adc read failed")
	assert.Contains(t, h.logs.String(), "** USB cable disconnected")
	assert.Empty(t, h.sd.causes)
}

func TestRunStopsWhenShutdownDoneElsewhere(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, cancel, reading{vbat: 4.0, vusb: 0})
	h.sd.Shutdown(ctx, types.UserRequested)

	done := make(chan struct{})
	go func() {
		h.loop.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestTickLEDFailureWaitsInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, cancel, reading{vbat: 4.0, vusb: 0})
	h.led.err = errcode.Released

	h.loop.Tick(ctx)

	assert.Equal(t, 10*time.Second, h.clock.Elapsed())
	assert.Equal(t, 10*time.Second, h.loop.Elapsed())
	assert.Contains(t, h.logs.String(), "led update failed")
}
