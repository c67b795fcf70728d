package rx

import "sync"

// Deferred runs work below the priority of edge capture.
// Work is executed in the order it was queued.
type Deferred interface {
	// Raise queues f without blocking. It returns false if f was not queued.
	Raise(f func()) bool
	// Post queues f and waits until it, and everything queued before it, ran.
	Post(f func())
}

// Syncer is implemented by Deferred queues running on their own goroutine.
// The receiver calls Sync before it looks at the last decoded byte.
type Syncer interface {
	// Sync returns when all work queued before it ran.
	Sync()
}

// Immediate runs deferred work inline. It is used in tests and simulations
// where edges are fed synchronously.
type Immediate struct{}

// Raise implements Deferred.
func (Immediate) Raise(f func()) bool {
	f()
	return true
}

// Post implements Deferred.
func (Immediate) Post(f func()) {
	f()
}

// Worker runs deferred work on its own goroutine so decoding never delays the
// capture of the next edge.
type Worker struct {
	jobs chan func()
	// quit stops the worker
	quit chan struct{}
	// done signals that run() is terminated
	done chan struct{}
	once sync.Once
}

// NewWorker starts a worker with a queue of depth jobs.
func NewWorker(depth int) *Worker {
	w := &Worker{
		jobs: make(chan func(), depth),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go w.run()
	return w
}

// Raise implements Deferred.
func (w *Worker) Raise(f func()) bool {
	select {
	case w.jobs <- f:
		return true
	default:
		return false
	}
}

// Post implements Deferred. It returns immediately if the worker is closed.
func (w *Worker) Post(f func()) {
	ran := make(chan struct{})
	job := func() {
		defer close(ran)
		f()
	}

	select {
	case w.jobs <- job:
	case <-w.done:
		return
	}

	select {
	case <-ran:
	case <-w.done:
	}
}

// Sync implements Syncer. It returns immediately if the worker is closed.
func (w *Worker) Sync() {
	w.Post(func() {})
}

// Close stops the worker, queued work is discarded.
func (w *Worker) Close() error {
	w.once.Do(func() {
		close(w.quit)
		<-w.done
	})
	return nil
}

func (w *Worker) run() {
	defer close(w.done)

	for {
		select {
		case <-w.quit:
			return
		case f := <-w.jobs:
			f()
		}
	}
}
