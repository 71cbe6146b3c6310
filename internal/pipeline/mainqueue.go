package pipeline

import (
	"sync"
	"sync/atomic"
)

// MainQueue is the single designated context for presentation updates.
// Closures run one at a time, in the order they were posted, on one goroutine.
type MainQueue struct {
	tasks chan func()
	quit  chan struct{}
	once  sync.Once
}

// NewMainQueue starts the queue goroutine
func NewMainQueue() *MainQueue {
	q := &MainQueue{
		tasks: make(chan func(), 64),
		quit:  make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *MainQueue) loop() {
	for {
		select {
		case fn := <-q.tasks:
			fn()
		case <-q.quit:
			return
		}
	}
}

// Post schedules fn without waiting. It is dropped once the queue is closed.
func (q *MainQueue) Post(fn func()) {
	select {
	case q.tasks <- fn:
	case <-q.quit:
	}
}

// Do runs fn on the queue and waits for it to finish. If the queue is closed
// before fn starts, fn never runs; once started, Do always waits for it.
// Must not be called from a closure already running on the queue.
func (q *MainQueue) Do(fn func()) {
	const (
		queued int32 = iota
		started
		abandoned
	)
	var status atomic.Int32
	done := make(chan struct{})
	q.Post(func() {
		if !status.CompareAndSwap(queued, started) {
			return
		}
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-q.quit:
		if !status.CompareAndSwap(queued, abandoned) {
			<-done
		}
	}
}

// Close stops the queue; pending closures are discarded
func (q *MainQueue) Close() {
	q.once.Do(func() { close(q.quit) })
}
