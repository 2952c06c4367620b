package notify

import (
	"context"
	"sync"
	"time"

	"timebank/internal/logging"
	"timebank/internal/metrics"
	"timebank/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Dispatcher queues events in memory and fans each one out to every sink from a
// background loop. RecordUpdated never blocks: a full queue drops the event.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Event
	timeout time.Duration
	logger  *logrus.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewDispatcher(queueSize int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Event, queueSize),
		timeout: timeout,
		logger:  logging.New(),
		done:    make(chan struct{}),
	}
}

// RecordUpdated enqueues a record-updated event.
func (d *Dispatcher) RecordUpdated(action models.EventType, record models.ClockRecord) {
	d.Publish(NewRecordUpdated(action, record))
}

// Publish enqueues event and reports whether it was accepted.
func (d *Dispatcher) Publish(event Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.NotificationsDropped.Inc()
		return false
	}

	select {
	case d.queue <- event:
		return true
	default:
		metrics.NotificationsDropped.Inc()
		d.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"user_id":  event.UserID,
			"date":     event.Date,
		}).Warn("Notification queue full, event dropped")
		return false
	}
}

// Start runs the delivery loop in a new goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.markStarted() {
		go d.loop(ctx)
	}
}

// Run delivers queued events until Close is called and the queue is drained, or
// ctx is cancelled. Only the first Run or Start call has any effect.
func (d *Dispatcher) Run(ctx context.Context) {
	if d.markStarted() {
		d.loop(ctx)
	}
}

func (d *Dispatcher) markStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return false
	}
	d.started = true
	return true
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, event)
		}
	}
}

// Close stops accepting events; Run returns once the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Wait blocks until the delivery loop has returned. It returns at once if the loop
// was never started.
func (d *Dispatcher) Wait() {
	d.mu.RLock()
	started := d.started
	d.mu.RUnlock()

	if started {
		<-d.done
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range d.sinks {
		sink := sink
		g.Go(func() error {
			err := sink.Send(ctx, event)
			if err != nil {
				metrics.NotificationsSent.WithLabelValues(sink.Name(), metrics.OutcomeError).Inc()
				d.logger.WithError(err).WithFields(logrus.Fields{
					"sink":     sink.Name(),
					"event_id": event.ID,
					"user_id":  event.UserID,
				}).Error("Failed to deliver notification")
				return nil
			}
			metrics.NotificationsSent.WithLabelValues(sink.Name(), metrics.OutcomeOK).Inc()
			return nil
		})
	}
	_ = g.Wait()
}
