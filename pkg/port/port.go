// Package port holds the definition of the edge events of a physical data pin
package port

import (
	"fmt"
	"time"
)

// EventType indicates the type of change to the line active state.
//
// Note that for active low lines a low line level results in a high active
// state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

// Event is a level transition of a line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}

// Level returns the line level after the event.
func (e Event) Level() bool {
	return e.Type == RisingEdge
}

// EdgeTo returns the event type of a transition to level.
func EdgeTo(level bool) EventType {
	if level {
		return RisingEdge
	}
	return FallingEdge
}

func (t EventType) String() string {
	switch t {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}
