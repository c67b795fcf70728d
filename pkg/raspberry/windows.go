//go:build windows
// +build windows

package raspberry

import (
	"fmt"
)

// OutputPin remembers the level, there is no gpio on windows.
type OutputPin struct {
	gpioPin int
	level   bool
}

// Memory emulates the GPIO memory range.
type Memory struct {
	pins map[int]*OutputPin
}

// OpenMemory returns an emulated GPIO memory.
func OpenMemory() (*Memory, error) {
	return &Memory{pins: map[int]*OutputPin{}}, nil
}

// Close does nothing
func (m *Memory) Close() error {
	return nil
}

// NewOutputPin creates a new pin object.
func (m *Memory) NewOutputPin(p int, level bool) (*OutputPin, error) {
	if _, ok := m.pins[p]; ok {
		return nil, fmt.Errorf("pin %v already used", p)
	}

	l := OutputPin{gpioPin: p, level: level}
	m.pins[p] = &l
	return m.pins[p], nil
}

// Set stores the level.
func (p *OutputPin) Set(level bool) {
	p.level = level
}

// Pin returns the pin number that this Pin represents.
func (p *OutputPin) Pin() int {
	return p.gpioPin
}
