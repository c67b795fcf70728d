package rx

import "swmodem/pkg/timebase"

// Slots is the number of bit slots of a byte: start bit, 8 data bits, stop bit.
const Slots = 10

// Tally holds the high time counted in every bit slot of a byte.
type Tally [Slots]timebase.BitInterval

// Decode reconstructs a byte from the edges of one byte slot.
//
// Every interval is the time from the start bit's falling edge to an edge,
// the level alternates starting low. The last interval is the falling edge
// that ended the stop bit. Time is sliced into bit slots of one bit period,
// a data bit is high if the signal was high for more than half of its slot.
// Data bits are LSB first.
func Decode(edges []timebase.BitInterval) (byte, Tally) {
	var (
		b     byte
		tally Tally
		t     timebase.BitInterval
		slot  int
		isHi  bool
	)

	for _, iv := range edges {
		for t < iv && slot < Slots {
			end := timebase.BitInterval(slot+1) * timebase.OneBit

			step := end - t
			if iv < end {
				step = iv - t
			}

			if isHi {
				tally[slot] += step
			}
			t += step

			if t == end {
				// slot 0 is the start bit, slot 9 the stop bit
				if slot >= 1 && slot <= 8 {
					b >>= 1
					if tally[slot] > timebase.HalfBit {
						b |= 0x80
					}
				}
				slot++
			}
		}

		// edges toggle the level
		isHi = !isHi
	}

	return b, tally
}
