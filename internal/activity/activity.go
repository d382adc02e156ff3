// Package activity runs fire-and-forget work off the request path: user activity
// records and other best-effort calls to external collaborators. Failures are logged
// and never reach the caller.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Record is one user action reported to the activity sinks.
type Record struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Activity   string            `json:"activity"`
	ExtraData  map[string]string `json:"extra_data"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sink delivers a record somewhere (HTTP log endpoint, message broker).
type Sink interface {
	Send(ctx context.Context, rec Record) error
}

// Recorder is what services depend on.
type Recorder interface {
	Record(userID, activity string, extra map[string]string)
	Go(name string, fn func(ctx context.Context) error)
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

// Dispatcher is a bounded queue drained by a fixed number of workers.
type Dispatcher struct {
	logger  *zap.SugaredLogger
	sinks   []Sink
	queue   chan job
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers immediately. Close must be called to drain the queue.
func NewDispatcher(logger *zap.SugaredLogger, queueSize, workers int, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		logger:  logger,
		sinks:   sinks,
		queue:   make(chan job, queueSize),
		timeout: 10 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := j.run(ctx); err != nil {
			d.logger.Warnw("background task failed", "task", j.name, "err", err)
		} else {
			d.logger.Debugw("background task done", "task", j.name)
		}
		cancel()
	}
}

// Go enqueues fn. When the queue is full or the dispatcher is closed the task is dropped.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warnw("background task dropped, dispatcher closed", "task", name)
		return
	}
	select {
	case d.queue <- job{name: name, run: fn}:
	default:
		d.logger.Warnw("background task dropped, queue full", "task", name)
	}
}

// Record enqueues delivery of an activity record to every sink.
func (d *Dispatcher) Record(userID, activity string, extra map[string]string) {
	if extra == nil {
		extra = map[string]string{}
	}
	rec := Record{
		ID:         uuid.NewString(),
		UserID:     userID,
		Activity:   activity,
		ExtraData:  extra,
		OccurredAt: time.Now().UTC(),
	}
	d.Go("activity:"+activity, func(ctx context.Context) error {
		delivered := 0
		for _, s := range d.sinks {
			if err := s.Send(ctx, rec); err != nil {
				d.logger.Warnw("failed to log activity", "activity", rec.Activity, "user_id", rec.UserID, "err", err)
				continue
			}
			delivered++
		}
		d.logger.Debugw("activity logged", "activity", rec.Activity, "user_id", rec.UserID, "sinks", delivered)
		return nil
	})
}

// Close stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
