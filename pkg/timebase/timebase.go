// Package timebase is the free-running counter all receive and transmit timing is measured against.
//
// The interval unit is one tick of a 500 kHz clock. At 38400 baud one bit
// period is almost exactly 13 units, which keeps every threshold of the
// receiver inside 8 bits.
package timebase

import "time"

const (
	// BaudRate is the line rate of the radio data pins.
	BaudRate = 38400
	// ClockRate is the frequency of one interval unit (Hz).
	ClockRate = 500000
	// RawRate is the frequency of the raw counter derived from edge timestamps (Hz).
	RawRate = 1000000
	// DefaultShift scales the raw counter down to ClockRate.
	DefaultShift = 1

	// BitPeriod is the duration of one bit at BaudRate.
	BitPeriod = time.Second / BaudRate
)

// Bit timing in interval units.
const (
	OneBit  BitInterval = 13
	HalfBit BitInterval = 7
	BitTol  BitInterval = 4

	MinBit = OneBit - BitTol
	MaxBit = OneBit + BitTol

	NineBits    = 9 * OneBit
	NineBitsMin = NineBits - HalfBit
	NineBitsMax = NineBits + HalfBit

	TenBits    = 10 * OneBit
	TenBitsMin = TenBits - HalfBit
	TenBitsMax = TenBits + HalfBit

	// StopBitsMax is the longest interval still accepted as the end of a stop bit.
	StopBitsMax = 14*OneBit + HalfBit

	// Saturated is the value of every interval too long to be measured.
	Saturated BitInterval = 255
)

// Ticks is a raw counter value. The counter wraps, differences are taken modulo 2^32.
type Ticks uint32

// BitInterval is the elapsed time between two edges in interval units, saturated at 255.
type BitInterval uint8

// Timebase converts raw counter differences to interval units.
type Timebase struct {
	// Shift is the number of bits the raw counter difference is shifted right.
	Shift uint8
}

// New returns a Timebase for the raw 1 MHz edge timestamp counter.
func New() Timebase {
	return Timebase{Shift: DefaultShift}
}

// Interval returns the time from ref to now.
// Values that don't fit 8 bits saturate at 255, they never wrap.
func (tb Timebase) Interval(now, ref Ticks) BitInterval {
	d := uint32(now-ref) >> tb.Shift
	if d > uint32(Saturated) {
		return Saturated
	}
	return BitInterval(d)
}

// FromDuration converts a monotonic timestamp to raw counter ticks.
func FromDuration(d time.Duration) Ticks {
	return Ticks(uint64(d) / uint64(time.Second/RawRate))
}

// Units returns n bit periods expressed as raw ticks for the given shift.
func Units(n BitInterval, shift uint8) Ticks {
	return Ticks(n) << shift
}
