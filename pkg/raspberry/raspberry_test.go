package raspberry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warthog618/gpiod"

	"swmodem/pkg/port"
)

func TestBias(t *testing.T) {
	tests := []struct {
		terminator string
		want       gpiod.LineReqOption
	}{
		{"pullup", gpiod.WithPullUp},
		{"pulldown", gpiod.WithPullDown},
		{"none", nil},
		{"", nil},
	}

	for _, tt := range tests {
		b, err := bias(tt.terminator)
		assert.NoError(t, err, tt.terminator)
		assert.Equal(t, tt.want, b, tt.terminator)
	}

	_, err := bias("pullsideways")
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestEventType(t *testing.T) {
	assert.Equal(t, port.RisingEdge, eventType(gpiod.LineEvent{Type: gpiod.LineEventRisingEdge}))
	assert.Equal(t, port.FallingEdge, eventType(gpiod.LineEvent{Type: gpiod.LineEventFallingEdge}))
}

func TestSendDropsWhenFull(t *testing.T) {
	l := &Line{C: make(chan port.Event, 1)}

	l.send(port.RisingEdge, time.Microsecond)
	l.send(port.FallingEdge, 2*time.Microsecond)

	assert.Equal(t, uint32(1), l.dropped)
	assert.Equal(t, port.Event{Type: port.RisingEdge, Timestamp: time.Microsecond}, <-l.C)
}
