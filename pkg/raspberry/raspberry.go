// Package raspberry connects the radio data pins to the gpio ports
package raspberry

import (
	"fmt"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"

	"swmodem/pkg/port"
)

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// eventBuffer is the capacity of Line.C. A frame of 255 bytes has about 2500 edges.
const eventBuffer = 4096

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Line represents a single requested input line.
type Line struct {
	gpiodLine *gpiod.Line
	// dropped counts events lost because C was full, only the gpiod handler writes it
	dropped uint32
	// send edge changes to channel
	C chan port.Event
}

// Open opens a GPIO character device.
func Open(name string) (*Chip, error) {
	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// NewLine requests control of a single line on a chip.
//   If granted, control is maintained until the Line is closed.
//   Watch the line for edge changes and send the changes to channel C.
//   The timestamps are the kernel's event timestamps, so the reader of C may be late.
func (c *Chip) NewLine(gpio int, terminator string) (*Line, error) {
	b, err := bias(terminator)
	if err != nil {
		return nil, err
	}

	line := &Line{
		C: make(chan port.Event, eventBuffer)}

	handler := func(evt gpiod.LineEvent) {
		line.send(eventType(evt), evt.Timestamp)
	}

	opts := []gpiod.LineReqOption{gpiod.WithEventHandler(handler), gpiod.WithBothEdges, gpiod.AsInput}
	if b != nil {
		opts = append(opts, b)
	}

	if line.gpiodLine, err = c.gpiodChip.RequestLine(gpio, opts...); err != nil {
		return nil, err
	}
	return line, nil
}

// bias returns the line bias of terminator, nil if the line floats.
func bias(terminator string) (gpiod.LineReqOption, error) {
	switch terminator {
	case "pullup":
		return gpiod.WithPullUp, nil
	case "pulldown":
		return gpiod.WithPullDown, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: terminator %q", ErrInvalidParam, terminator)
	}
}

func eventType(evt gpiod.LineEvent) port.EventType {
	if evt.Type == gpiod.LineEventRisingEdge {
		return port.RisingEdge
	}
	return port.FallingEdge
}

// send never blocks the gpiod event handler.
func (l *Line) send(t port.EventType, ts time.Duration) {
	select {
	case l.C <- port.Event{Type: t, Timestamp: ts}:
	default:
		l.dropped++
		debug.ErrorLog.Printf("edge dropped, %d so far", l.dropped)
	}
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Close releases all resources held by the requested line.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the event
// handler - the Close should be called from a different goroutine.
func (l *Line) Close() error {
	if err := l.gpiodLine.Close(); err != nil {
		return err
	}
	close(l.C)
	return nil
}
