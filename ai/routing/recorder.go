package routing

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hrygo/triage/store"
)

// DecisionWriter persists one routing decision.
type DecisionWriter interface {
	CreateRoutingDecision(ctx context.Context, create *store.RoutingDecision) error
}

// RecorderConfig configures a DecisionRecorder.
type RecorderConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
	Logger       *slog.Logger
	// OnDrop is called once per decision dropped because the queue was full.
	OnDrop func()
}

// DecisionRecorder writes decisions to the decision log in the background.
// ObserveDecision never blocks: when the queue is full the decision is
// dropped and counted.
type DecisionRecorder struct {
	writer  DecisionWriter
	queue   chan *store.RoutingDecision
	logger  *slog.Logger
	onDrop  func()
	stopCh  chan struct{}
	wg      sync.WaitGroup
	timeout time.Duration
	dropped atomic.Int64
	saved   atomic.Int64

	// mu orders Enqueue against Close: once closed is set under the write
	// lock, no decision can reach the queue after the final drain.
	mu     sync.RWMutex
	closed bool
}

var _ Observer = (*DecisionRecorder)(nil)

// NewDecisionRecorder starts the background writer.
func NewDecisionRecorder(writer DecisionWriter, cfg RecorderConfig) *DecisionRecorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &DecisionRecorder{
		writer:  writer,
		queue:   make(chan *store.RoutingDecision, cfg.QueueSize),
		logger:  cfg.Logger,
		onDrop:  cfg.OnDrop,
		stopCh:  make(chan struct{}),
		timeout: cfg.WriteTimeout,
	}
	r.wg.Add(1)
	go r.processQueue()
	return r
}

// ObserveDecision implements Observer.
func (r *DecisionRecorder) ObserveDecision(d Decision) {
	r.Enqueue(toStoreDecision(d, time.Now()))
}

// Enqueue queues a decision. It returns false when the recorder is closed
// or the queue is full.
func (r *DecisionRecorder) Enqueue(rd *store.RoutingDecision) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(rd, "recorder closed")
		return false
	}

	select {
	case r.queue <- rd:
		return true
	default:
		r.drop(rd, "queue full")
		return false
	}
}

func (r *DecisionRecorder) drop(rd *store.RoutingDecision, reason string) {
	n := r.dropped.Add(1)
	if r.onDrop != nil {
		r.onDrop()
	}
	// Log the first drop and then every 1000th to keep a saturated queue quiet.
	if n == 1 || n%1000 == 0 {
		r.logger.Warn("DecisionRecorder: dropping decision",
			"id", rd.ID,
			"reason", reason,
			"dropped_total", n,
			"queue_size", len(r.queue))
	}
}

func (r *DecisionRecorder) processQueue() {
	defer r.wg.Done()

	for {
		select {
		case rd := <-r.queue:
			if err := r.save(rd); err != nil {
				r.logger.Error("DecisionRecorder: failed to save decision",
					"id", rd.ID,
					"action", rd.Action,
					"error", err)
			}
		case <-r.stopCh:
			r.drainQueue()
			return
		}
	}
}

func (r *DecisionRecorder) save(rd *store.RoutingDecision) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.writer.CreateRoutingDecision(ctx, rd); err != nil {
		return err
	}
	r.saved.Add(1)
	return nil
}

func (r *DecisionRecorder) drainQueue() {
	remaining := len(r.queue)
	if remaining > 0 {
		r.logger.Info("DecisionRecorder: draining queue", "remaining", remaining)
	}
	lost := 0
	for {
		select {
		case rd := <-r.queue:
			if err := r.save(rd); err != nil {
				lost++
			}
		default:
			if lost > 0 {
				r.logger.Error("DecisionRecorder: shutdown complete with data loss", "lost", lost)
			}
			return
		}
	}
}

// Close stops accepting decisions and waits up to timeout for the queue to
// drain. It returns context.DeadlineExceeded on timeout.
func (r *DecisionRecorder) Close(timeout time.Duration) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.stopCh)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		r.logger.Warn("DecisionRecorder: shutdown timeout", "remaining", len(r.queue))
		return context.DeadlineExceeded
	}
}

// QueueSize returns the number of decisions waiting to be written.
func (r *DecisionRecorder) QueueSize() int {
	return len(r.queue)
}

// Dropped returns how many decisions were dropped.
func (r *DecisionRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Saved returns how many decisions were written.
func (r *DecisionRecorder) Saved() int64 {
	return r.saved.Load()
}

func toStoreDecision(d Decision, at time.Time) *store.RoutingDecision {
	return &store.RoutingDecision{
		ID:         d.ID,
		Action:     string(d.Action),
		Intent:     string(d.Intent),
		Confidence: d.Confidence,
		CacheHit:   d.CacheHit(),
		LatencyUs:  d.Latency.Microseconds(),
		CreatedTs:  at.Unix(),
	}
}
