package rx

import (
	"errors"
	"sync/atomic"

	"swmodem/pkg/timebase"
)

// EdgeCapacity is the number of intervals one edge buffer holds.
const EdgeCapacity = 24

var (
	// ErrOverflow is returned if a byte has more edges than EdgeCapacity.
	ErrOverflow = errors.New("edge buffer overflow")
	// ErrOverrun is returned if the decoder still owns the buffer capture needs next.
	ErrOverrun = errors.New("edge buffer overrun")
)

// Handoff passes one filled edge buffer from capture to the decoder.
// Index and length travel together as one value.
type Handoff struct {
	Index uint8
	Len   uint8
}

type edgeBuffer struct {
	edges [EdgeCapacity]timebase.BitInterval
	n     uint8
	// decoding is set while the decoder owns the buffer.
	decoding atomic.Bool
}

// EdgeLog is the double buffered edge log shared by capture and decoder.
//
// Capture appends to the active buffer and hands it over with Swap. The
// decoder reads the handed over buffer and gives it back with Release.
// Neither side ever touches a buffer the other one owns.
type EdgeLog struct {
	bufs   [2]edgeBuffer
	active uint8
}

// Reset empties the active buffer. Capture side only.
func (l *EdgeLog) Reset() {
	if l.bufs[l.active].decoding.Load() {
		l.active ^= 1
	}
	l.bufs[l.active].n = 0
}

// Len returns the number of intervals in the active buffer.
func (l *EdgeLog) Len() int {
	return int(l.bufs[l.active].n)
}

// Append adds an interval to the active buffer. Capture side only.
func (l *EdgeLog) Append(iv timebase.BitInterval) error {
	b := &l.bufs[l.active]
	if b.n >= EdgeCapacity {
		return ErrOverflow
	}

	b.edges[b.n] = iv
	b.n++
	return nil
}

// Swap hands the active buffer to the decoder and continues with the other one.
// Capture side only.
func (l *EdgeLog) Swap() (Handoff, error) {
	next := l.active ^ 1
	if l.bufs[next].decoding.Load() {
		return Handoff{}, ErrOverrun
	}

	h := Handoff{Index: l.active, Len: l.bufs[l.active].n}
	l.bufs[l.active].decoding.Store(true)

	l.active = next
	l.bufs[next].n = 0
	return h, nil
}

// Edges returns the intervals of a handed over buffer. Decoder side only.
func (l *EdgeLog) Edges(h Handoff) []timebase.BitInterval {
	return l.bufs[h.Index&1].edges[:h.Len]
}

// Release gives a handed over buffer back to capture. Decoder side only.
func (l *EdgeLog) Release(h Handoff) {
	l.bufs[h.Index&1].decoding.Store(false)
}
