//go:build !windows
// +build !windows

package raspberry

import (
	"fmt"

	"github.com/warthog618/gpio"
)

// OutputPin is a memory mapped output pin, fast enough to send one bit every 26µs.
type OutputPin struct {
	gpioPin *gpio.Pin
}

// must be global in package, gpio memory is mapped once for all pins
var pins map[int]*OutputPin

// Memory is the mapped GPIO memory range.
type Memory struct{}

// OpenMemory maps the GPIO memory range from /dev/gpiomem.
func OpenMemory() (*Memory, error) {
	pins = map[int]*OutputPin{}

	if err := gpio.Open(); err != nil {
		return nil, err
	}
	return &Memory{}, nil
}

// Close unmaps GPIO memory
func (m *Memory) Close() (err error) {
	return gpio.Close()
}

// NewOutputPin creates a new output pin with the given initial level.
// The pin number provided is the BCM GPIO number.
func (m *Memory) NewOutputPin(p int, level bool) (*OutputPin, error) {
	if _, ok := pins[p]; ok {
		return nil, fmt.Errorf("pin %v already used", p)
	}

	l := OutputPin{gpioPin: gpio.NewPin(p)}
	l.Set(level)
	l.gpioPin.Output()
	pins[p] = &l
	return pins[p], nil
}

// Set drives the pin high or low.
func (p *OutputPin) Set(level bool) {
	if level {
		p.gpioPin.High()
		return
	}
	p.gpioPin.Low()
}

// Pin returns the pin number that this Pin represents.
func (p *OutputPin) Pin() int {
	return p.gpioPin.Pin()
}
