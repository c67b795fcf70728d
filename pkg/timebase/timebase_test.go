package timebase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInterval(t *testing.T) {
	tb := New()

	testCases := []struct {
		name   string
		now    Ticks
		ref    Ticks
		expect BitInterval
	}{
		{name: "zero", now: 100, ref: 100, expect: 0},
		{name: "one bit", now: 126, ref: 100, expect: 13},
		{name: "rounds down", now: 127, ref: 100, expect: 13},
		{name: "largest", now: 510, ref: 0, expect: 255},
		{name: "saturates", now: 512, ref: 0, expect: Saturated},
		{name: "saturates far", now: 1 << 30, ref: 0, expect: Saturated},
		{name: "counter wrap", now: 10, ref: ^Ticks(0) - 15, expect: 13},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tb.Interval(tc.now, tc.ref))
		})
	}
}

func TestThresholds(t *testing.T) {
	require.EqualValues(t, 110, NineBitsMin)
	require.EqualValues(t, 137, TenBitsMax)
	require.EqualValues(t, 123, TenBitsMin)
	require.EqualValues(t, 189, StopBitsMax)
	require.EqualValues(t, 9, MinBit)
	require.EqualValues(t, 17, MaxBit)
}

func TestFromDuration(t *testing.T) {
	require.Equal(t, Ticks(26), FromDuration(26*time.Microsecond))
	require.Equal(t, BitInterval(13), New().Interval(FromDuration(BitPeriod), 0))
	require.Equal(t, Ticks(26), Units(OneBit, DefaultShift))
}
