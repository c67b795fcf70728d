package tx

import (
	"sync"
	"time"
)

// Ticker is a Timer running on its own goroutine.
// Sleeping can't hit a bit period of 26µs, so it spins on the monotonic
// clock between ticks. Late ticks are sent immediately, they are never skipped.
type Ticker struct {
	Period time.Duration

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

// NewTicker returns a stopped Ticker.
func NewTicker(period time.Duration) *Ticker {
	return &Ticker{Period: period}
}

// Start implements Timer. A running ticker is stopped first.
func (t *Ticker) Start(tick func()) {
	t.Stop()

	quit, done := make(chan struct{}), make(chan struct{})
	t.mu.Lock()
	t.quit, t.done = quit, done
	t.mu.Unlock()

	go func() {
		defer close(done)

		next := time.Now()
		for {
			next = next.Add(t.Period)
			for {
				select {
				case <-quit:
					return
				default:
				}

				if time.Until(next) <= 0 {
					break
				}
			}

			tick()
		}
	}()
}

// Stop implements Timer. It returns after the last tick returned.
func (t *Ticker) Stop() {
	t.mu.Lock()
	quit, done := t.quit, t.done
	t.quit, t.done = nil, nil
	t.mu.Unlock()

	if quit == nil {
		return
	}
	close(quit)
	<-done
}
