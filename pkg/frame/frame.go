// Package frame switches the radio between receiving and transmitting.
//
// Receive and transmit share one pin pair, only one of them is ever enabled.
// The orchestrator listens by default, hands finished frames to the message
// layer and sends pending messages in between.
package frame

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/womat/debug"

	"swmodem/pkg/rx"
	"swmodem/pkg/tx"
)

// ErrRadio is returned if the radio didn't change its mode.
var ErrRadio = errors.New("radio mode change failed")

// Radio is the transceiver the data pins belong to.
type Radio interface {
	EnterRxMode() error
	EnterTxMode() error
	EnterIdleMode() error
	// ReadRSSI returns the signal strength of the current reception.
	ReadRSSI() uint8
}

// Messages is the message layer above the byte stream.
type Messages interface {
	// NextTx returns the next message to send, nil if there is none.
	NextTx() tx.Source
	// Sent is called when src was transmitted completely.
	Sent(src tx.Source)
}

// Receiver is the part of rx.Receiver the orchestrator uses.
type Receiver interface {
	Enable()
	Disable()
	Complete(rssi uint8)
	State() rx.State
	Active() bool
}

// Transmitter is the part of tx.Transmitter the orchestrator uses.
type Transmitter interface {
	Enable(src tx.Source)
	Disable()
	State() tx.State
	Active() bool
}

// Frame is the orchestrator. Work must be called from a single goroutine.
type Frame struct {
	radio Radio
	msgs  Messages
	rx    Receiver
	tx    Transmitter

	// sending is the message on air, nil while listening.
	sending tx.Source
}

// New returns an orchestrator. Nothing is enabled before the first Work.
func New(radio Radio, msgs Messages, r Receiver, t Transmitter) *Frame {
	return &Frame{
		radio: radio,
		msgs:  msgs,
		rx:    r,
		tx:    t,
	}
}

// Work runs one cycle of the orchestrator.
func (f *Frame) Work() error {
	if f.sending != nil {
		if f.tx.State() != tx.Done {
			return nil
		}
		return f.sent()
	}

	if f.rx.State() == rx.Done {
		f.rx.Complete(f.radio.ReadRSSI())
		f.rx.Enable()
	}

	if !f.rx.Active() {
		if err := f.listen(); err != nil {
			return err
		}
	}

	if src := f.msgs.NextTx(); src != nil {
		return f.send(src)
	}
	return nil
}

// Run calls Work every interval until ctx is cancelled. Errors are logged,
// the orchestrator retries in the next cycle.
func (f *Frame) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer f.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.Work(); err != nil {
				debug.ErrorLog.Printf("frame: %v", err)
			}
		}
	}
}

// Stop disables receive and transmit and puts the radio to idle.
// A message on air is dropped.
func (f *Frame) Stop() {
	f.tx.Disable()
	f.rx.Disable()
	f.sending = nil

	if err := f.radio.EnterIdleMode(); err != nil {
		debug.ErrorLog.Printf("frame: stop: %v", err)
	}
}

func (f *Frame) listen() error {
	if err := f.radio.EnterRxMode(); err != nil {
		return fmt.Errorf("%w: rx: %v", ErrRadio, err)
	}

	f.rx.Enable()
	debug.TraceLog.Print("listening")
	return nil
}

// send stops receiving before the transmitter gets the pins.
func (f *Frame) send(src tx.Source) error {
	f.rx.Disable()

	if err := f.radio.EnterIdleMode(); err != nil {
		return fmt.Errorf("%w: idle: %v", ErrRadio, err)
	}
	if err := f.radio.EnterTxMode(); err != nil {
		// the message is dropped, the next cycle listens again
		return fmt.Errorf("%w: tx: %v", ErrRadio, err)
	}

	f.sending = src
	f.tx.Enable(src)
	debug.DebugLog.Print("transmitting")
	return nil
}

// sent stops transmitting before the receiver gets the pins back.
func (f *Frame) sent() error {
	f.tx.Disable()
	src := f.sending
	f.sending = nil
	f.msgs.Sent(src)
	debug.DebugLog.Print("transmitted")

	if err := f.radio.EnterIdleMode(); err != nil {
		return fmt.Errorf("%w: idle: %v", ErrRadio, err)
	}
	return f.listen()
}
