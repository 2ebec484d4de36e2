package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/pkg/logger"
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
)

type job struct {
	ctx     context.Context
	to      domain.Contact
	message string
}

// Dispatcher hands notifications to a fixed pool of workers so callers never
// wait on a transport. Each delivery runs with its own timeout and is
// detached from the caller's cancellation. Failures are logged.
type Dispatcher struct {
	next    Notifier
	timeout time.Duration
	log     logger.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers that deliver through next. queueSize bounds
// the notifications waiting for a worker.
func NewDispatcher(next Notifier, workers, queueSize int, timeout time.Duration, log logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		next:    next,
		timeout: timeout,
		log:     log,
		jobs:    make(chan job, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Notify queues the message and returns at once. It fails with ErrQueueFull
// when every slot is taken and with ErrDispatcherClosed after Close.
func (d *Dispatcher) Notify(ctx context.Context, to domain.Contact, message string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), to: to, message: message}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for the queued ones to be
// delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	if err := d.next.Notify(ctx, j.to, j.message); err != nil {
		d.log.WithFields(logger.LogFields{
			"recipient": recipient(j.to),
			"message":   j.message,
		}).Error("notify_failed", err)
	}
}
