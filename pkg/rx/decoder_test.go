package rx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swmodem/pkg/timebase"
)

// byteEdges returns the intervals of one byte as the edge capture records
// them: cumulative from the falling edge of the start bit, ending with the
// falling edge after the stop bit. shift moves all recorded edges.
func byteEdges(b byte, shift int) []timebase.BitInterval {
	levels := make([]bool, 0, Slots)
	levels = append(levels, false)
	for i := 0; i < 8; i++ {
		levels = append(levels, b&(1<<i) != 0)
	}
	levels = append(levels, true, false)

	var edges []timebase.BitInterval
	cur := false
	for i, level := range levels {
		if level == cur {
			continue
		}
		cur = level
		edges = append(edges, timebase.BitInterval(i*int(timebase.OneBit)+shift))
	}
	return edges
}

func TestDecode(t *testing.T) {
	for _, b := range []byte{0x00, 0xFF, 0x35, 0xAA, 0x55, 0x01, 0x80, 0xAC, 0x7E} {
		got, tally := Decode(byteEdges(b, 0))
		require.Equalf(t, b, got, "byte %#02x", b)

		for slot := 1; slot <= 8; slot++ {
			if b&(1<<(slot-1)) != 0 {
				require.EqualValues(t, timebase.OneBit, tally[slot], "slot %d of %#02x", slot, b)
			} else {
				require.Zero(t, tally[slot], "slot %d of %#02x", slot, b)
			}
		}
		require.Zero(t, tally[0], "start bit of %#02x", b)
	}
}

func TestDecodeShifted(t *testing.T) {
	for shift := -4; shift <= 4; shift++ {
		for v := 0; v < 256; v++ {
			got, _ := Decode(byteEdges(byte(v), shift))
			require.Equalf(t, byte(v), got, "byte %#02x shifted by %d", v, shift)
		}
	}
}

func TestDecodeJitter(t *testing.T) {
	// a single high bit shrunk by 2 units on each side, 4 in total, is still high
	edges := []timebase.BitInterval{13 + 2, 26 - 2, 130}
	got, tally := Decode(edges)
	require.Equal(t, byte(0x01), got)
	require.EqualValues(t, 9, tally[1])

	// a high pulse spilling 4 units into the neighbour slots
	edges = []timebase.BitInterval{13 - 4, 26 + 4, 130}
	got, tally = Decode(edges)
	require.Equal(t, byte(0x01), got)
	require.EqualValues(t, 4, tally[0])
	require.EqualValues(t, 4, tally[2])
}

func TestDecodeIgnoresBackwardsEdge(t *testing.T) {
	edges := []timebase.BitInterval{26, 20, 130}
	got, _ := Decode(edges)
	require.Equal(t, byte(0x00), got)
}
