// Package bitbang drives a 4-wire serial bus (clock, data-out, data-in,
// chip-select) from plain digital lines.
//
// Besides the byte-framed tinygo drivers.SPI contract (Tx/Transfer), the bus
// exposes bit-granular WriteBits/ReadBits for devices whose transactions are
// not byte aligned.
//
// Chip-select is only touched by Begin/End. Callers that share the lines with
// other users must serialise whole transactions themselves.
package bitbang

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// Line is one digital line. Levels are abstract: true = high.
type Line interface {
	Set(level bool) error
	Get() bool
}

// Config controls timing. All fields are optional.
type Config struct {
	// Frequency bounds the clock rate. Each clock phase lasts at least half
	// a period. Zero leaves timing to call overhead.
	Frequency physic.Frequency
}

// ErrLength is returned by Tx when both buffers are given with different lengths.
var ErrLength = errors.New("bitbang: tx/rx length mismatch")

// Bus is a bit-banged, MSB-first, mode-0 style serial bus.
type Bus struct {
	clk, mosi, miso, cs Line
	half                time.Duration
}

var _ drivers.SPI = (*Bus)(nil)

// New wires a bus. The lines must already be configured (three outputs, one input).
func New(clk, mosi, miso, cs Line, cfg Config) *Bus {
	b := &Bus{clk: clk, mosi: mosi, miso: miso, cs: cs}
	if cfg.Frequency > 0 {
		b.half = cfg.Frequency.Period() / 2
	}
	return b
}

// HalfPeriod is the enforced minimum duration of each clock phase.
func (b *Bus) HalfPeriod() time.Duration { return b.half }

// Begin starts a transaction: chip-select high, clock low, chip-select low.
func (b *Bus) Begin() error {
	if err := b.cs.Set(true); err != nil {
		return err
	}
	if err := b.clk.Set(false); err != nil {
		return err
	}
	return b.cs.Set(false)
}

// End raises chip-select.
func (b *Bus) End() error { return b.cs.Set(true) }

// WriteBits clocks out the low n bits of v, most significant first: set
// data-out, clock high, clock low.
func (b *Bus) WriteBits(v uint32, n int) error {
	for i := n - 1; i >= 0; i-- {
		if err := b.mosi.Set(v&(1<<uint(i)) != 0); err != nil {
			return err
		}
		if err := b.pulse(nil); err != nil {
			return err
		}
	}
	return nil
}

// ReadBits clocks in n bits, most significant first, sampling data-in while
// the clock is high.
func (b *Bus) ReadBits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		var bit bool
		if err := b.pulse(&bit); err != nil {
			return 0, err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

// Transfer writes and reads one byte full duplex.
func (b *Bus) Transfer(w byte) (byte, error) {
	var r byte
	for i := 7; i >= 0; i-- {
		if err := b.mosi.Set(w&(1<<uint(i)) != 0); err != nil {
			return 0, err
		}
		var bit bool
		if err := b.pulse(&bit); err != nil {
			return 0, err
		}
		r <<= 1
		if bit {
			r |= 1
		}
	}
	return r, nil
}

// Tx follows the drivers.SPI contract: w nil sends zeros, r nil discards,
// otherwise both must have the same length.
func (b *Bus) Tx(w, r []byte) error {
	n := len(w)
	switch {
	case w == nil:
		n = len(r)
	case r != nil && len(r) != len(w):
		return ErrLength
	}
	for i := 0; i < n; i++ {
		var out byte
		if w != nil {
			out = w[i]
		}
		in, err := b.Transfer(out)
		if err != nil {
			return err
		}
		if r != nil {
			r[i] = in
		}
	}
	return nil
}

// pulse raises the clock, optionally samples data-in, and lowers it.
func (b *Bus) pulse(sample *bool) error {
	b.wait()
	if err := b.clk.Set(true); err != nil {
		return err
	}
	b.wait()
	if sample != nil {
		*sample = b.miso.Get()
	}
	return b.clk.Set(false)
}

// wait spins for the half period; sleeps are far too coarse at bus rates.
func (b *Bus) wait() {
	if b.half <= 0 {
		return
	}
	for start := time.Now(); time.Since(start) < b.half; {
	}
}
