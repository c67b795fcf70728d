// Package tx generates the bit stream of a frame on the radio's transmit data pin.
//
// A transmitted frame consists of
//
//	<PREAMBLE><SYNC WORD><MESSAGE><TRAINING>
//
// Apart from the message all bytes are fixed. Every byte is sent as a start
// bit (low), eight data bits LSB first and a stop bit (high), one bit per
// timer tick.
package tx

import "sync"

const (
	// Train is the training byte sent as preamble and trailer.
	Train = 0xAA
	// Sync0 is the first byte of the sync word.
	Sync0 = 0xFF
	// Sync1 is the second byte of the sync word.
	Sync1 = 0x00

	// PreambleLen is the number of training bytes before the sync word.
	PreambleLen = 4
	// TrainLen is the number of training bytes after the message.
	TrainLen = 2

	// startBit and stopBit are the values of bit while the start or the stop bit is sent.
	startBit = 10
	stopBit  = 1
)

var syncWord = [...]byte{Sync0, Sync1}

// State is the state of the transmit frame state machine.
type State int

const (
	// Off means the bit timer is stopped.
	Off State = iota
	// Idle is the state after Enable until the first byte is chosen.
	Idle
	// Preamble sends the training bytes.
	Preamble
	// Sync sends the sync word.
	Sync
	// Message sends the message bytes.
	Message
	// Training sends the trailer.
	Training
	// Done means the frame is complete.
	Done
)

var stateNames = [...]string{
	Off:      "off",
	Idle:     "idle",
	Preamble: "preamble",
	Sync:     "sync",
	Message:  "message",
	Training: "training",
	Done:     "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Source provides the bytes of the message to send.
type Source interface {
	// NextByte returns the next byte, ok is false if the message is complete.
	NextByte() (b byte, ok bool)
}

// Pin is the transmit data pin.
type Pin interface {
	Set(level bool)
}

// Timer calls tick once per bit period while it is started.
type Timer interface {
	Start(tick func())
	Stop()
}

// Transmitter is the transmit context. There is one per transmit pin.
type Transmitter struct {
	// mu is held while a bit is sent and while the transmitter is enabled or
	// disabled, the equivalent of masking the timer interrupt.
	mu sync.Mutex

	pin   Pin
	timer Timer

	state State
	// count is the number of bytes sent in the current phase.
	count int
	// data is the byte being sent, shifted right after every data bit.
	data byte
	// bit counts down from startBit to 0.
	bit int
	// src is the message being sent, valid until Disable.
	src Source
}

// New creates a transmitter in state Off.
func New(pin Pin, timer Timer) *Transmitter {
	return &Transmitter{
		pin:   pin,
		timer: timer,
	}
}

// Enable starts sending a frame with the message from src.
// The first bit period keeps the line high.
func (t *Transmitter) Enable(src Source) {
	t.mu.Lock()
	t.state = Idle
	t.count = 0
	t.bit = stopBit
	t.src = src
	t.pin.Set(true)
	t.mu.Unlock()

	t.timer.Start(t.Tick)
}

// Disable stops the bit timer immediately and forgets the message.
func (t *Transmitter) Disable() {
	t.timer.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = Off
	t.src = nil
	t.count = 0
	t.bit = 0
}

// State returns the current state.
func (t *Transmitter) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Active returns true unless the transmitter is Off.
func (t *Transmitter) Active() bool {
	return t.State() != Off
}

// Tick sends one bit. It is called by the timer once per bit period.
func (t *Transmitter) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Off || t.state == Done {
		return
	}

	switch t.bit {
	case startBit:
		t.pin.Set(false)
	case stopBit:
		t.pin.Set(true)
	default:
		t.pin.Set(t.data&0x01 != 0)
		t.data >>= 1
	}
	t.bit--

	if t.bit > 0 {
		return
	}

	switch t.state {
	case Idle:
		t.state = t.idle()
	case Preamble:
		t.state = t.preamble()
	case Sync:
		t.state = t.sync()
	case Message:
		t.state = t.message()
	case Training:
		t.state = t.training()
	}
}

func (t *Transmitter) setByte(b byte) {
	t.data = b
	t.bit = startBit
	t.count++
}

func (t *Transmitter) idle() State {
	t.count = 0
	if t.src == nil {
		return t.done()
	}
	return t.preamble()
}

func (t *Transmitter) preamble() State {
	if t.count < PreambleLen {
		t.setByte(Train)
		return Preamble
	}

	t.count = 0
	return t.sync()
}

func (t *Transmitter) sync() State {
	if t.count < len(syncWord) {
		t.setByte(syncWord[t.count])
		return Sync
	}

	t.count = 0
	return t.message()
}

func (t *Transmitter) message() State {
	if b, ok := t.src.NextByte(); ok {
		t.setByte(b)
		return Message
	}

	t.count = 0
	return t.training()
}

func (t *Transmitter) training() State {
	if t.count < TrainLen {
		t.setByte(Train)
		return Training
	}

	t.count = 0
	return t.done()
}

// done leaves the line high. The timer keeps running until Disable.
func (t *Transmitter) done() State {
	return Done
}
