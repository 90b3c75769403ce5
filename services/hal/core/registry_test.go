package core

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipower-go/errcode"
)

type fakePin struct {
	mu     sync.Mutex
	n      int
	out    bool
	level  bool
	pull   Pull
	inputs int
}

func (p *fakePin) Number() int { return p.n }
func (p *fakePin) ConfigureInput(pull Pull) error {
	p.mu.Lock()
	p.out, p.pull = false, pull
	p.inputs++
	p.mu.Unlock()
	return nil
}
func (p *fakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.out, p.level = true, initial
	p.mu.Unlock()
	return nil
}
func (p *fakePin) Set(b bool) error { p.mu.Lock(); p.level = b; p.mu.Unlock(); return nil }
func (p *fakePin) Get() bool        { p.mu.Lock(); defer p.mu.Unlock(); return p.level }

type fakeFactory map[int]*fakePin

func (f fakeFactory) ByNumber(n int) (GPIOHandle, bool) {
	p, ok := f[n]
	return p, ok
}

func newFactory(ns ...int) fakeFactory {
	f := fakeFactory{}
	for _, n := range ns {
		f[n] = &fakePin{n: n}
	}
	return f
}

func TestClaim(t *testing.T) {
	r := NewRegistry(newFactory(17, 21))

	h, err := r.Claim("adc.clk", 17)
	require.NoError(t, err)
	assert.Equal(t, 17, h.Number())

	again, err := r.Claim("adc.clk", 17)
	require.NoError(t, err, "re-claim by the same owner is idempotent")
	assert.Same(t, h, again)

	_, err = r.Claim("led.red", 17)
	assert.ErrorIs(t, err, errcode.PinInUse)

	_, err = r.Claim("led.red", 99)
	assert.ErrorIs(t, err, errcode.UnknownPin)

	owner, ok := r.Owner(17)
	assert.True(t, ok)
	assert.Equal(t, "adc.clk", owner)
}

func TestRelease(t *testing.T) {
	f := newFactory(21)
	r := NewRegistry(f)
	h, err := r.Claim("led.red", 21)
	require.NoError(t, err)
	require.NoError(t, h.ConfigureOutput(true))

	require.NoError(t, r.Release("someone.else", 21))
	_, held := r.Owner(21)
	assert.True(t, held, "release by non-owner is ignored")

	require.NoError(t, r.Release("led.red", 21))
	_, held = r.Owner(21)
	assert.False(t, held)
	assert.False(t, f[21].out)
}

func TestReleaseAllStopsTransactions(t *testing.T) {
	f := newFactory(17, 21, 8)
	r := NewRegistry(f)
	for n, id := range map[int]string{17: "adc.clk", 21: "led.red", 8: "led.green"} {
		h, err := r.Claim(id, n)
		require.NoError(t, err)
		require.NoError(t, h.ConfigureOutput(false))
	}

	ran := false
	require.NoError(t, r.Transact(func() error { ran = true; return nil }))
	assert.True(t, ran)

	require.NoError(t, r.ReleaseAll())
	for n, p := range f {
		assert.False(t, p.out, "line %d left as output", n)
		assert.Equal(t, PullNone, p.pull)
	}

	err := r.Transact(func() error { t.Fatal("transaction ran after release"); return nil })
	assert.ErrorIs(t, err, errcode.Released)

	_, err = r.Claim("late", 17)
	assert.ErrorIs(t, err, errcode.Released)
}

func TestTransactIsExclusive(t *testing.T) {
	r := NewRegistry(newFactory())
	var inside, overlaps int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.Transact(func() error {
					if atomic.AddInt32(&inside, 1) > 1 {
						atomic.AddInt32(&overlaps, 1)
					}
					atomic.AddInt32(&inside, -1)
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&overlaps))
}
