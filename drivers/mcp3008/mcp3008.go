// Package mcp3008 reads the MCP3008 8-channel 10-bit ADC.
//
// The default transaction is the classic bit-banged one:
//
//	CS high, CLK low, CS low
//	5 command bits out:  1 1 d2 d1 d0   (start, single-ended, channel)
//	12 bits in, MSB first, sampled while CLK is high:
//	  undriven, null, B9..B0   -> keep bits [9:0]
//	CS high
//
// With Config.Framed the device instead uses a byte-aligned 3-byte exchange
// over the drivers.SPI part of the bus.
package mcp3008

import (
	"strconv"

	"tinygo.org/x/drivers"

	"pipower-go/errcode"
)

const (
	Channels = 8
	MaxValue = 1023

	cmdStart    = 0x18 // start bit + single-ended bit, channel in the low 3 bits
	cmdBits     = 5
	replyBits   = 12 // undriven clock, null bit, 10 data bits
	replyMask   = 0x3FF
	framedStart = 0x01
	framedSGL   = 0x80
)

// Bus is what the device needs: the tinygo byte-framed SPI contract plus
// chip-select and bit-granular transfers.
type Bus interface {
	drivers.SPI
	Begin() error
	End() error
	WriteBits(v uint32, n int) error
	ReadBits(n int) (uint32, error)
}

// Config selects the transaction shape.
type Config struct {
	// Framed selects the byte-aligned 24-clock exchange.
	Framed bool
}

// Device wraps a bus connection to an MCP3008.
type Device struct {
	bus Bus
	cfg Config
	buf [3]byte
}

// New creates a Device. It does not touch the bus.
func New(bus Bus) Device {
	return Device{bus: bus}
}

// Configure applies cfg. The zero Config is the 17-clock bit-level read.
func (d *Device) Configure(cfg Config) { d.cfg = cfg }

// Read returns one raw sample (0..1023) from channel ch.
// Channels outside 0..7 are rejected with errcode.InvalidChannel.
func (d *Device) Read(ch int) (uint16, error) {
	if ch < 0 || ch >= Channels {
		return 0, &errcode.E{C: errcode.InvalidChannel, Op: "mcp3008.read", Msg: "channel " + strconv.Itoa(ch)}
	}
	if err := d.bus.Begin(); err != nil {
		return 0, errcode.Wrap(errcode.HardwareIO, "mcp3008.begin", err)
	}
	var (
		v   uint16
		err error
	)
	if d.cfg.Framed {
		v, err = d.readFramed(ch)
	} else {
		v, err = d.readBits(ch)
	}
	// Always try to release chip-select, even after a failed exchange.
	if endErr := d.bus.End(); err == nil && endErr != nil {
		err = errcode.Wrap(errcode.HardwareIO, "mcp3008.end", endErr)
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (d *Device) readBits(ch int) (uint16, error) {
	if err := d.bus.WriteBits(uint32(cmdStart|ch), cmdBits); err != nil {
		return 0, errcode.Wrap(errcode.HardwareIO, "mcp3008.command", err)
	}
	raw, err := d.bus.ReadBits(replyBits)
	if err != nil {
		return 0, errcode.Wrap(errcode.HardwareIO, "mcp3008.reply", err)
	}
	// D_OUT changes on falling edges, so the first high-phase sample sees an
	// undriven line and the second the null bit. B9..B0 are the low 10 bits.
	return uint16(raw) & replyMask, nil
}

func (d *Device) readFramed(ch int) (uint16, error) {
	tx := [3]byte{framedStart, byte(framedSGL | ch<<4), 0x00}
	if err := d.bus.Tx(tx[:], d.buf[:]); err != nil {
		return 0, errcode.Wrap(errcode.HardwareIO, "mcp3008.tx", err)
	}
	return uint16(d.buf[1]&0x03)<<8 | uint16(d.buf[2]), nil
}
