package bitbang

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

// trace records every line write in order, e.g. "cs=1 clk=0 cs=0".
type trace struct{ ev []string }

func (t *trace) String() string { return strings.Join(t.ev, " ") }

type line struct {
	name  string
	tr    *trace
	level bool
	src   func() bool
	err   error
}

func (l *line) Set(v bool) error {
	if l.err != nil {
		return l.err
	}
	l.level = v
	s := "0"
	if v {
		s = "1"
	}
	l.tr.ev = append(l.tr.ev, l.name+"="+s)
	return nil
}

func (l *line) Get() bool {
	l.tr.ev = append(l.tr.ev, l.name+"?")
	if l.src != nil {
		return l.src()
	}
	return l.level
}

func newBus(t *testing.T, cfg Config) (*Bus, *trace, map[string]*line) {
	t.Helper()
	tr := &trace{}
	ls := map[string]*line{}
	for _, n := range []string{"clk", "mosi", "miso", "cs"} {
		ls[n] = &line{name: n, tr: tr}
	}
	return New(ls["clk"], ls["mosi"], ls["miso"], ls["cs"], cfg), tr, ls
}

func TestBeginEnd(t *testing.T) {
	b, tr, _ := newBus(t, Config{})
	require.NoError(t, b.Begin())
	require.NoError(t, b.End())
	assert.Equal(t, "cs=1 clk=0 cs=0 cs=1", tr.String())
}

func TestWriteBitsMSBFirst(t *testing.T) {
	b, tr, _ := newBus(t, Config{})
	require.NoError(t, b.WriteBits(0b10110, 5))
	assert.Equal(t,
		"mosi=1 clk=1 clk=0 mosi=0 clk=1 clk=0 mosi=1 clk=1 clk=0 mosi=1 clk=1 clk=0 mosi=0 clk=1 clk=0",
		tr.String())
}

func TestReadBitsSamplesOnHighPhase(t *testing.T) {
	b, tr, ls := newBus(t, Config{})
	bits := []bool{true, false, true}
	i := 0
	ls["miso"].src = func() bool {
		require.True(t, ls["clk"].level, "data-in sampled while clock low")
		v := bits[i]
		i++
		return v
	}
	v, err := b.ReadBits(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b101), v)
	assert.Equal(t, "clk=1 miso? clk=0 clk=1 miso? clk=0 clk=1 miso? clk=0", tr.String())
}

func TestTransferLoopback(t *testing.T) {
	b, _, ls := newBus(t, Config{})
	ls["miso"].src = func() bool { return ls["mosi"].level }
	got, err := b.Transfer(0xA5)
	require.NoError(t, err)
	assert.Equal(t, byte(0xA5), got)
}

func TestTx(t *testing.T) {
	b, _, ls := newBus(t, Config{})
	ls["miso"].src = func() bool { return ls["mosi"].level }

	r := make([]byte, 2)
	require.NoError(t, b.Tx([]byte{0x01, 0xF0}, r))
	assert.Equal(t, []byte{0x01, 0xF0}, r)

	r = []byte{0xFF}
	require.NoError(t, b.Tx(nil, r))
	assert.Equal(t, []byte{0x00}, r, "nil w sends zeros")

	require.NoError(t, b.Tx([]byte{0x42}, nil))
	assert.ErrorIs(t, b.Tx([]byte{1, 2}, make([]byte, 1)), ErrLength)
}

func TestLineErrorPropagates(t *testing.T) {
	b, _, ls := newBus(t, Config{})
	boom := errors.New("boom")
	ls["clk"].err = boom
	assert.ErrorIs(t, b.WriteBits(1, 1), boom)
	_, err := b.ReadBits(1)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, b.Begin(), boom)
}

func TestHalfPeriod(t *testing.T) {
	b, _, _ := newBus(t, Config{Frequency: 500 * physic.KiloHertz})
	assert.Equal(t, time.Microsecond, b.HalfPeriod())

	b, _, _ = newBus(t, Config{})
	assert.Zero(t, b.HalfPeriod())
}
