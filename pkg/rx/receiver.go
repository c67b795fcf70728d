// Package rx recovers bytes from the edges of the radio's demodulated data pin.
//
// A frame on air looks like
//
//	...0101s<FF>ps<00>p<byte>...<byte>...
//	   <training><SYNC WORD><message>
//
// but devices are known to break the pattern: some send no training bits,
// some stretch the stop bit after the sync word. Frames are therefore
// detected by watching the length of high and low periods only. A high
// period of about nine bits looks like SYNC0; it is confirmed by a low
// period of nine or ten bits (SYNC1). After that the receiver waits for the
// end of the stop bit to get byte synchronisation.
//
// Once synchronised, the intervals of every byte are collected in an edge
// buffer. The falling edge at the end of a stop bit hands the buffer over to
// the deferred decoder, which runs below capture priority.
package rx

import (
	"sync"
	"sync/atomic"

	"swmodem/pkg/timebase"
)

const (
	// DefaultEndMarker is the last byte of a frame.
	DefaultEndMarker = 0x35

	// preambleMax caps the preamble counter.
	preambleMax = 8 * 8

	// noByte is stored in lastByte while nothing was decoded.
	noByte = 0x100
	// noEndMarker never matches lastByte.
	noEndMarker = 0x200
)

// Option configures a Receiver.
type Option func(*Receiver)

// WithEndMarker sets the byte that terminates a frame.
func WithEndMarker(b byte) Option {
	return func(r *Receiver) {
		r.endMarker = uint32(b)
	}
}

// WithoutEndMarker disables the end marker, frames end by losing sync only.
func WithoutEndMarker() Option {
	return func(r *Receiver) {
		r.endMarker = noEndMarker
	}
}

// WithTimebase sets the counter scaling.
func WithTimebase(tb timebase.Timebase) Option {
	return func(r *Receiver) {
		r.tb = tb
	}
}

// Stats are the receiver counters since it was created.
type Stats struct {
	Frames     uint32
	Bytes      uint32
	EndMarkers uint32
	LostSync   uint32
	Overflows  uint32
	Overruns   uint32
	Aborted    uint32
	// Preamble is the number of training bit periods seen before the last SYNC0.
	Preamble uint8
}

type counters struct {
	frames     atomic.Uint32
	bytes      atomic.Uint32
	endMarkers atomic.Uint32
	lostSync   atomic.Uint32
	overflows  atomic.Uint32
	overruns   atomic.Uint32
	aborted    atomic.Uint32
}

// Receiver is the edge capture and frame detection context. There is one per
// receive pin.
type Receiver struct {
	// mu is held while an edge is processed and while the receiver is
	// enabled or disabled, the equivalent of masking the edge interrupt.
	mu sync.Mutex

	tb       timebase.Timebase
	sink     Sink
	deferred Deferred

	// endMarker is the byte ending a frame, noEndMarker if disabled.
	endMarker uint32

	state State
	// time0 is the reference of the next interval.
	time0     timebase.Ticks
	lastLevel bool
	// preamble counts consecutive intervals of one bit period.
	preamble uint8
	// syncPreamble is preamble latched when SYNC0 was seen.
	syncPreamble uint8
	// started is set once FrameStart was raised for the current attempt.
	started bool
	// reason tells why the current attempt is Done.
	reason Reason
	// ended is set once FrameEnd was delivered for the current attempt.
	ended bool
	// decoding is set while the last byte may still be in the deferred queue.
	decoding bool

	log EdgeLog

	// lastByte is written by the decoder and read by capture.
	lastByte atomic.Uint32

	stats counters
}

// New creates a receiver in state Off.
func New(sink Sink, d Deferred, opts ...Option) *Receiver {
	r := &Receiver{
		tb:        timebase.New(),
		sink:      sink,
		deferred:  d,
		endMarker: DefaultEndMarker,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.lastByte.Store(noByte)
	return r
}

// Enable resets the receiver and starts frame detection.
func (r *Receiver) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reset()
	r.state = Idle
}

// Disable stops edge processing immediately. A frame in progress is
// discarded and reported with reason Aborted. A Done frame that was not
// completed yet is reported with its own reason and no RSSI.
func (r *Receiver) Disable() {
	r.mu.Lock()
	pending := r.started && !r.ended && r.state != Off
	end := End{Reason: Aborted}
	if r.state == Done {
		end.Reason = r.reason
	}
	r.ended = r.ended || pending
	r.state = Off
	r.mu.Unlock()

	if !pending {
		return
	}
	if end.Reason == Aborted {
		r.stats.aborted.Add(1)
	}
	r.deferred.Post(func() {
		r.sink.FrameEnd(end)
	})
}

// Complete reports the end of a Done frame with the given signal strength.
// It returns after the sink saw all bytes of the frame and its end. A frame
// already reported by Disable is not reported again.
func (r *Receiver) Complete(rssi uint8) {
	r.mu.Lock()
	reason, ended := r.reason, r.ended
	r.ended = true
	r.mu.Unlock()

	if ended {
		return
	}

	r.deferred.Post(func() {
		r.sink.FrameEnd(End{Reason: reason, RSSI: rssi})
	})
}

// State returns the current state.
func (r *Receiver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Active returns true if edge capture is enabled.
func (r *Receiver) Active() bool {
	return r.State() != Off
}

// Stats returns a snapshot of the receiver counters.
func (r *Receiver) Stats() Stats {
	r.mu.Lock()
	preamble := r.syncPreamble
	r.mu.Unlock()

	return Stats{
		Frames:     r.stats.frames.Load(),
		Bytes:      r.stats.bytes.Load(),
		EndMarkers: r.stats.endMarkers.Load(),
		LostSync:   r.stats.lostSync.Load(),
		Overflows:  r.stats.overflows.Load(),
		Overruns:   r.stats.overruns.Load(),
		Aborted:    r.stats.aborted.Load(),
		Preamble:   preamble,
	}
}

// Edge processes a level transition of the receive pin seen at time now.
// Repeated levels are ignored. This is the edge capture context: it must be
// short. It only waits for a Syncer decoder, at most once per byte.
func (r *Receiver) Edge(level bool, now timebase.Ticks) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Off || r.state == Done || level == r.lastLevel {
		return
	}

	interval := r.tb.Interval(now, r.time0)
	r.state = r.edge(level, interval)

	// While gathering, time0 is only latched at the end of a byte. Bit
	// jitter inside a byte is corrected on the stop/start bit boundary.
	if r.state != Gathering {
		r.time0 = now
	}
	r.lastLevel = level
}

// reset assumes the last edge was a falling edge, so a rising edge is needed
// before intervals are valid.
func (r *Receiver) reset() {
	r.time0 = 0
	r.lastLevel = false
	r.preamble = 0
	r.started = false
	r.ended = false
	r.decoding = false
	r.reason = EndMarker
	r.log.Reset()
	r.lastByte.Store(noByte)
}

func (r *Receiver) edge(level bool, interval timebase.BitInterval) State {
	switch r.state {
	case Idle:
		return r.idle(level)
	case High:
		return r.high(level, interval)
	case Low:
		return r.low(level, interval)
	case CheckSync1:
		return r.sync1(level, interval)
	case WaitStop:
		return r.stopBit(level)
	case FrameStart, Gathering:
		return r.gather(level, interval)
	default:
		return r.state
	}
}

func (r *Receiver) idle(level bool) State {
	if level {
		return High
	}
	return Idle
}

// countPreamble keeps track of preamble and training bits.
func (r *Receiver) countPreamble(interval timebase.BitInterval) {
	if interval < timebase.MinBit || interval > timebase.MaxBit {
		r.preamble = 0
		return
	}
	if r.preamble < preambleMax {
		r.preamble++
	}
}

// high stays in High until a falling edge. A long high period is SYNC0.
func (r *Receiver) high(level bool, interval timebase.BitInterval) State {
	if level {
		return High
	}

	if interval >= timebase.NineBitsMin {
		r.syncPreamble = r.preamble
		r.countPreamble(interval)
		return CheckSync1
	}

	r.countPreamble(interval)
	return Low
}

func (r *Receiver) low(level bool, interval timebase.BitInterval) State {
	if !level {
		return Low
	}

	r.countPreamble(interval)
	return High
}

// sync1 accepts nine or ten low bits, some devices send ten.
func (r *Receiver) sync1(level bool, interval timebase.BitInterval) State {
	if !level {
		return CheckSync1
	}

	r.countPreamble(interval)
	if interval >= timebase.NineBitsMin && interval <= timebase.TenBitsMax {
		return WaitStop
	}
	return High
}

// stopBit doesn't validate the stop bit length, some devices stretch it.
// A mistaken sync word fails soon enough while gathering.
func (r *Receiver) stopBit(level bool) State {
	if level {
		return WaitStop
	}

	if !r.deferred.Raise(r.sink.FrameStart) {
		// the frame never started, look for the next one
		r.stats.overruns.Add(1)
		return Idle
	}

	r.started = true
	r.stats.frames.Add(1)
	return FrameStart
}

func (r *Receiver) gather(level bool, interval timebase.BitInterval) State {
	if err := r.log.Append(interval); err != nil {
		return r.lose(Overflow)
	}

	if interval > timebase.TenBitsMin {
		if interval < timebase.StopBitsMax && !level {
			return r.byteDone()
		}
		return r.lose(LostSync)
	}

	if r.decoding {
		// the stop bit of the last byte is over, so is its decoding
		r.syncDecoder()
	}

	if r.lastByte.Load() == r.endMarker {
		r.stats.endMarkers.Add(1)
		r.reason = EndMarker
		return Done
	}
	return Gathering
}

// byteDone switches edge buffers and schedules the decoder.
func (r *Receiver) byteDone() State {
	h, err := r.log.Swap()
	if err != nil {
		return r.lose(Overrun)
	}

	if !r.deferred.Raise(func() { r.decode(h) }) {
		r.log.Release(h)
		return r.lose(Overrun)
	}
	r.decoding = true
	return FrameStart
}

// syncDecoder waits for a decoder running on another goroutine. Edges
// replayed from a backlog arrive faster than bytes are decoded, the byte
// before must be known before the next one is gathered.
func (r *Receiver) syncDecoder() {
	if s, ok := r.deferred.(Syncer); ok {
		s.Sync()
	}
	r.decoding = false
}

func (r *Receiver) lose(reason Reason) State {
	switch reason {
	case Overflow:
		r.stats.overflows.Add(1)
	case Overrun:
		r.stats.overruns.Add(1)
	default:
		r.stats.lostSync.Add(1)
	}

	r.reason = reason
	return Done
}

// decode runs in the deferred context.
func (r *Receiver) decode(h Handoff) {
	b, _ := Decode(r.log.Edges(h))
	r.log.Release(h)

	r.lastByte.Store(uint32(b))
	r.stats.bytes.Add(1)
	r.sink.Byte(b)
}
