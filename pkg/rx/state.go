package rx

// State is the state of the receive frame state machine.
type State int

const (
	// Off means edge capture is disabled, edges are ignored.
	Off State = iota
	// Idle waits for a rising edge to get a valid time reference.
	Idle
	// High checks high signal periods, includes the SYNC0 (0xFF) check.
	High
	// Low checks low signal periods.
	Low
	// CheckSync1 checks for SYNC1 (0x00), reverts to High if not found.
	CheckSync1
	// WaitStop waits for the end of the stop bit to obtain byte synchronisation.
	WaitStop
	// FrameStart is the first edge of a byte, the time reference is latched here.
	FrameStart
	// Gathering collects the edges of the current byte.
	Gathering
	// Done means the frame attempt ended, see End.Reason.
	Done
)

var stateNames = [...]string{
	Off:        "off",
	Idle:       "idle",
	High:       "high",
	Low:        "low",
	CheckSync1: "sync1",
	WaitStop:   "stop",
	FrameStart: "framestart",
	Gathering:  "gathering",
	Done:       "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Reason tells why a frame ended.
type Reason int

const (
	// EndMarker is the normal end of a frame: the last decoded byte was the end marker.
	EndMarker Reason = iota
	// LostSync is a stop bit that was too long or had the wrong polarity.
	LostSync
	// Overflow means a byte produced more edges than an edge buffer holds.
	Overflow
	// Overrun means the decoder didn't release an edge buffer in time.
	Overrun
	// Aborted means receiving was disabled while a frame was in progress.
	Aborted
)

var reasonNames = [...]string{
	EndMarker: "end",
	LostSync:  "lost sync",
	Overflow:  "overflow",
	Overrun:   "overrun",
	Aborted:   "aborted",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return "unknown"
	}
	return reasonNames[r]
}

// End is delivered to the Sink once per started frame.
type End struct {
	Reason Reason
	// RSSI is the signal strength read from the radio when the frame ended.
	RSSI uint8
}

// Sink consumes the byte stream of received frames.
// All calls are made from the deferred decode context, in arrival order.
type Sink interface {
	// FrameStart is called once the sync word and its stop bit were seen.
	FrameStart()
	// Byte is called for every decoded data byte.
	Byte(b byte)
	// FrameEnd is called when the frame terminated, normally or not.
	FrameEnd(e End)
}
