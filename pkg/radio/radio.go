// Package radio drives the transceiver whose demodulated data pins carry the
// bit stream: a CC1101 on SPI, a transceiver switched by enable pins, or none.
package radio

import "errors"

var (
	// ErrTimeout is returned if the chip didn't reach the requested state.
	ErrTimeout = errors.New("radio state timeout")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown radio driver")
)

// Null is a radio without controls, e.g. a receiver module that is always on.
type Null struct {
	// RSSI is reported for every frame.
	RSSI uint8
}

// EnterRxMode implements frame.Radio.
func (Null) EnterRxMode() error { return nil }

// EnterTxMode implements frame.Radio.
func (Null) EnterTxMode() error { return nil }

// EnterIdleMode implements frame.Radio.
func (Null) EnterIdleMode() error { return nil }

// ReadRSSI implements frame.Radio.
func (n Null) ReadRSSI() uint8 { return n.RSSI }

// Pin is an output pin.
type Pin interface {
	Set(level bool)
}

// Switch is a transceiver with a receive enable and a transmit enable pin.
// Both are active high, idle means both low.
type Switch struct {
	RxEnable Pin
	TxEnable Pin
}

// EnterRxMode implements frame.Radio.
func (s *Switch) EnterRxMode() error {
	s.TxEnable.Set(false)
	s.RxEnable.Set(true)
	return nil
}

// EnterTxMode implements frame.Radio.
func (s *Switch) EnterTxMode() error {
	s.RxEnable.Set(false)
	s.TxEnable.Set(true)
	return nil
}

// EnterIdleMode implements frame.Radio.
func (s *Switch) EnterIdleMode() error {
	s.RxEnable.Set(false)
	s.TxEnable.Set(false)
	return nil
}

// ReadRSSI implements frame.Radio. A switched transceiver has no RSSI.
func (s *Switch) ReadRSSI() uint8 { return 0 }
