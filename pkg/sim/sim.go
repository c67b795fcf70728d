// Package sim synthesizes the signal of the radio data pins.
//
// It runs the transmitter against a manual clock and a recording pin and
// turns the recorded bit levels into timed edge events, optionally with
// jitter, the way the receive pin would see them.
package sim

import (
	"math/rand"
	"time"

	"swmodem/pkg/port"
	"swmodem/pkg/rx"
	"swmodem/pkg/timebase"
	"swmodem/pkg/tx"
)

// BitPeriod is the simulated bit period: exactly timebase.OneBit interval units.
const BitPeriod = time.Duration(timebase.OneBit) * 2 * time.Microsecond

// Unit is the duration of one interval unit.
const Unit = 2 * time.Microsecond

// Clock is a tx.Timer that ticks only when stepped.
type Clock struct {
	tick func()
}

// Start implements tx.Timer.
func (c *Clock) Start(tick func()) {
	c.tick = tick
}

// Stop implements tx.Timer.
func (c *Clock) Stop() {
	c.tick = nil
}

// Running returns true between Start and Stop.
func (c *Clock) Running() bool {
	return c.tick != nil
}

// Step sends one tick if the clock is running.
func (c *Clock) Step() {
	if c.tick != nil {
		c.tick()
	}
}

// Wire is a tx.Pin recording every level that was set.
type Wire struct {
	Levels []bool
}

// Set implements tx.Pin.
func (w *Wire) Set(level bool) {
	w.Levels = append(w.Levels, level)
}

// Message is a tx.Source sending a fixed byte slice.
type Message struct {
	data []byte
	pos  int
}

// NewMessage returns a source for data.
func NewMessage(data []byte) *Message {
	return &Message{data: data}
}

// NextByte implements tx.Source.
func (m *Message) NextByte() (byte, bool) {
	if m.pos >= len(m.data) {
		return 0, false
	}
	b := m.data[m.pos]
	m.pos++
	return b, true
}

// Levels transmits data and returns the line level of every bit period of
// the frame, including the idle period after Enable.
func Levels(data []byte) []bool {
	w := &Wire{}
	c := &Clock{}
	t := tx.New(w, c)

	t.Enable(NewMessage(data))
	for t.State() != tx.Done {
		c.Step()
	}
	t.Disable()

	return w.Levels
}

// Jitter returns the displacement of the n-th edge.
type Jitter func(n int) time.Duration

// NoJitter keeps every edge on its nominal position.
func NoJitter(int) time.Duration { return 0 }

// UniformJitter displaces every edge by up to ±max interval units.
func UniformJitter(seed int64, max int) Jitter {
	rnd := rand.New(rand.NewSource(seed))
	return func(int) time.Duration {
		return time.Duration(rnd.Intn(2*max+1)-max) * Unit
	}
}

// Edges converts bit levels to edge events. The line is low before the
// first level, level i starts at start + i bit periods.
func Edges(levels []bool, start time.Duration, jitter Jitter) []port.Event {
	var events []port.Event
	if jitter == nil {
		jitter = NoJitter
	}

	cur := false
	for i, level := range levels {
		if level == cur {
			continue
		}
		cur = level

		events = append(events, port.Event{
			Timestamp: start + time.Duration(i)*BitPeriod + jitter(len(events)),
			Type:      port.EdgeTo(level),
		})
	}

	return events
}

// Frame returns the edges of a transmitted frame carrying data.
func Frame(data []byte, start time.Duration, jitter Jitter) []port.Event {
	return Edges(Levels(data), start, jitter)
}

// Span returns the edges of alternating high and low periods, the lengths
// given in interval units. The first edge is a rising edge at start.
func Span(start time.Duration, units ...int) []port.Event {
	var events []port.Event

	level := true
	at := start
	for _, n := range units {
		events = append(events, port.Event{Timestamp: at, Type: port.EdgeTo(level)})
		at += time.Duration(n) * Unit
		level = !level
	}
	return append(events, port.Event{Timestamp: at, Type: port.EdgeTo(level)})
}

// Feed passes events to the receiver the way the edge capture would.
func Feed(r *rx.Receiver, events []port.Event) {
	for _, ev := range events {
		r.Edge(ev.Level(), timebase.FromDuration(ev.Timestamp))
	}
}
