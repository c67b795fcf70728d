// Package message is the message layer above the radio byte stream.
//
// Received byte streams are collected into frames and published on channel C.
// Messages to send wait in a short queue until the orchestrator picks them up,
// every sent message is published as well, with RSSI 0.
package message

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/womat/debug"

	"swmodem/pkg/rx"
	"swmodem/pkg/tx"
)

const (
	// QueueLen is the default number of messages waiting to be sent.
	QueueLen = 8
	// MaxLen is the longest message kept, longer frames are truncated.
	MaxLen = 255
	// recentLen is the number of frames kept for Recent.
	recentLen = 32
	// channelLen is the buffer of channel C.
	channelLen = 16
)

var (
	// ErrQueueFull is returned by Send if QueueLen messages are waiting.
	ErrQueueFull = errors.New("transmit queue full")
	// ErrEmpty is returned by Send for a message without bytes.
	ErrEmpty = errors.New("empty message")
	// ErrTooLong is returned by Send for a message longer than MaxLen.
	ErrTooLong = errors.New("message too long")
	// ErrInvalidHex is returned by ParseHex.
	ErrInvalidHex = errors.New("invalid hex message")
)

// Frame is a received or sent message.
type Frame struct {
	Time time.Time `json:"time"`
	Data []byte    `json:"-"`
	Hex  string    `json:"hex"`
	RSSI uint8     `json:"rssi"`
	// End tells how the frame ended, "sent" for an echo.
	End  string `json:"end"`
	Echo bool   `json:"echo"`
}

func newFrame(t time.Time, data []byte, rssi uint8, end string) Frame {
	return Frame{
		Time: t,
		Data: data,
		Hex:  strings.ToUpper(hex.EncodeToString(data)),
		RSSI: rssi,
		End:  end,
	}
}

// String formats the frame as console line: RSSI and hex bytes.
func (f Frame) String() string {
	return fmt.Sprintf("%03d %s", f.RSSI, f.Hex)
}

// Stats are the message counters since start.
type Stats struct {
	// Received counts frames ended by the end marker.
	Received uint32 `json:"received"`
	// Broken counts frames with data ended by anything else.
	Broken uint32 `json:"broken"`
	// Aborted counts frames cut short by a transmission.
	Aborted uint32 `json:"aborted"`
	// Empty counts frames without a single byte.
	Empty uint32 `json:"empty"`
	// Queued counts messages accepted by Send.
	Queued uint32 `json:"queued"`
	// Sent counts messages transmitted.
	Sent uint32 `json:"sent"`
	// Dropped counts frames lost because nobody read C.
	Dropped uint32 `json:"dropped"`
}

// Option configures a Handler.
type Option func(*Handler)

// WithEndMarker appends b to every message sent unless it already ends with it.
func WithEndMarker(b byte) Option {
	return func(h *Handler) {
		h.endMarker = int(b)
	}
}

// WithoutEndMarker sends messages unchanged.
func WithoutEndMarker() Option {
	return func(h *Handler) {
		h.endMarker = -1
	}
}

// WithQueueLen sets the number of messages that may wait to be sent.
// Values below 1 keep QueueLen.
func WithQueueLen(n int) Option {
	return func(h *Handler) {
		if n < 1 {
			return
		}
		h.queue = make(chan *Outgoing, n)
	}
}

// Handler implements rx.Sink for the receiver and frame.Messages for the
// orchestrator.
type Handler struct {
	// C receives every complete frame and every echo of a sent message.
	C chan Frame

	mu sync.Mutex
	// data collects the bytes of the frame being received.
	data      []byte
	receiving bool
	// recent is a ring of the last frames, next is the slot written next.
	recent []Frame
	next   int
	stats  Stats

	queue     chan *Outgoing
	endMarker int

	now func() time.Time
}

// New returns a Handler. By default messages are terminated by
// rx.DefaultEndMarker and QueueLen messages may wait.
func New(opts ...Option) *Handler {
	h := &Handler{
		C:         make(chan Frame, channelLen),
		queue:     make(chan *Outgoing, QueueLen),
		endMarker: rx.DefaultEndMarker,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FrameStart implements rx.Sink.
func (h *Handler) FrameStart() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.data = make([]byte, 0, 32)
	h.receiving = true
}

// Byte implements rx.Sink.
func (h *Handler) Byte(b byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.receiving || len(h.data) >= MaxLen {
		return
	}
	h.data = append(h.data, b)
}

// FrameEnd implements rx.Sink. Aborted and empty frames are counted but not
// published.
func (h *Handler) FrameEnd(e rx.End) {
	h.mu.Lock()
	data := h.data
	receiving := h.receiving
	h.data, h.receiving = nil, false

	switch {
	case !receiving:
		h.mu.Unlock()
		return
	case e.Reason == rx.Aborted:
		h.stats.Aborted++
		h.mu.Unlock()
		debug.DebugLog.Printf("frame aborted after %d bytes", len(data))
		return
	case len(data) == 0:
		h.stats.Empty++
		h.mu.Unlock()
		debug.TraceLog.Printf("empty frame: %v", e.Reason)
		return
	case e.Reason == rx.EndMarker:
		h.stats.Received++
	default:
		h.stats.Broken++
	}

	f := newFrame(h.now(), data, e.RSSI, e.Reason.String())
	h.publish(f)
	h.mu.Unlock()

	debug.DebugLog.Printf("received %v (%v)", f, f.End)
}

// Send queues a message. It never blocks.
func (h *Handler) Send(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}

	msg := make([]byte, len(data), len(data)+1)
	copy(msg, data)
	if h.endMarker >= 0 && msg[len(msg)-1] != byte(h.endMarker) {
		msg = append(msg, byte(h.endMarker))
	}
	if len(msg) > MaxLen {
		return ErrTooLong
	}

	select {
	case h.queue <- &Outgoing{data: msg}:
	default:
		return ErrQueueFull
	}

	h.mu.Lock()
	h.stats.Queued++
	h.mu.Unlock()

	debug.DebugLog.Printf("queued %X", msg)
	return nil
}

// NextTx implements frame.Messages.
func (h *Handler) NextTx() tx.Source {
	select {
	case o := <-h.queue:
		return o
	default:
		return nil
	}
}

// Sent implements frame.Messages. The message is echoed on C.
func (h *Handler) Sent(src tx.Source) {
	o, ok := src.(*Outgoing)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.Sent++
	f := newFrame(h.now(), o.data, 0, "sent")
	f.Echo = true
	h.publish(f)
}

// Recent returns the last frames, oldest first.
func (h *Handler) Recent() []Frame {
	h.mu.Lock()
	defer h.mu.Unlock()

	frames := make([]Frame, 0, len(h.recent))
	if len(h.recent) == recentLen {
		frames = append(frames, h.recent[h.next:]...)
		return append(frames, h.recent[:h.next]...)
	}
	return append(frames, h.recent...)
}

// Stats returns a snapshot of the counters.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Pending returns the number of messages waiting to be sent.
func (h *Handler) Pending() int {
	return len(h.queue)
}

// publish must be called with mu held. It never blocks, the decoder calls it.
func (h *Handler) publish(f Frame) {
	if len(h.recent) < recentLen {
		h.recent = append(h.recent, f)
	} else {
		h.recent[h.next] = f
	}
	h.next = (h.next + 1) % recentLen

	select {
	case h.C <- f:
	default:
		h.stats.Dropped++
		debug.ErrorLog.Printf("frame dropped, channel full: %v", f)
	}
}

// Outgoing is a queued message, it is the tx.Source of its transmission.
type Outgoing struct {
	data []byte
	pos  int
}

// NextByte implements tx.Source.
func (o *Outgoing) NextByte() (byte, bool) {
	if o.pos >= len(o.data) {
		return 0, false
	}
	b := o.data[o.pos]
	o.pos++
	return b, true
}

// ParseHex converts a line of hex digits to bytes. Blanks between bytes are allowed.
func ParseHex(line string) ([]byte, error) {
	s := strings.Join(strings.Fields(line), "")
	if s == "" {
		return nil, ErrEmpty
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return b, nil
}
