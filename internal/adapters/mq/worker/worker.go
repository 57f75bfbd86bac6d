// Package worker runs the dispatcher that hands queued save submissions to
// the store and reports each outcome back to the waiting session.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/scorecard/internal/adapters/mq/queue"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultStoreTimeout = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// ErrInvalidSubmission is replied for submissions carrying neither or both
// payloads, or an update without an evaluation id.
var ErrInvalidSubmission = errors.New("invalid submission")

// Store is the persistence collaborator the workers write to.
type Store interface {
	Create(ctx context.Context, req payload.CreateRequest) ([]string, error)
	Apply(ctx context.Context, evaluationID string, req payload.UpdateRequest) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Submission
}

// Worker processes submissions until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current submission.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	store   Store
	name    string
	timeout time.Duration

	processed atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		store:    store,
		name:     "worker",
		timeout:  defaultStoreTimeout,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	subs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-subs:
			if !ok {
				return
			}
			w.process(ctx, s)
		}
	}
}

// Shutdown stops the worker after its current submission.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns the number of submissions this worker has handled.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

// process hands one submission to the store and always replies.
func (w *InMemoryWorker) process(ctx context.Context, s queue.Submission) { //nolint:gocritic // hugeParam: Submission is passed by value for channel semantics
	start := time.Now()
	res := w.persist(ctx, &s)
	metrics.RecordPersistLatency(float64(time.Since(start).Milliseconds()))
	w.processed.Add(1)

	if res.Err != nil {
		metrics.RecordDispatchError()
		w.logger.Error(ctx, "save failed",
			logger.String("sessionID", s.SessionID),
			logger.String("mode", s.Mode()),
			logger.Error(res.Err),
		)
	}
	if !s.Respond(res) {
		w.logger.Warn(ctx, "save result dropped", logger.String("sessionID", s.SessionID))
	}
}

func (w *InMemoryWorker) persist(ctx context.Context, s *queue.Submission) queue.Result {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	switch {
	case s.Create != nil && s.Update == nil:
		ids, err := w.store.Create(ctx, *s.Create)
		if err != nil {
			return queue.Result{Err: fmt.Errorf("create evaluation: %w", err)}
		}
		return queue.Result{EvaluationIDs: ids}
	case s.Update != nil && s.Create == nil && s.EvaluationID != "":
		if err := w.store.Apply(ctx, s.EvaluationID, *s.Update); err != nil {
			return queue.Result{Err: fmt.Errorf("update evaluation %s: %w", s.EvaluationID, err)}
		}
		return queue.Result{EvaluationIDs: []string{s.EvaluationID}}
	default:
		return queue.Result{Err: ErrInvalidSubmission}
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount uses one
// worker per CPU.
func NewPool(workerCount int, q Queue, store Store, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, store, wopts...)
	}
	// The pool logs through the logger passed to its workers, if any.
	probe := &InMemoryWorker{}
	for _, opt := range opts {
		opt(probe)
	}
	if probe.logger != nil {
		pool.logger = probe.logger.Named("worker-pool")
	}

	metrics.UpdateDispatcherWorkers(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Processed returns the number of submissions handled by all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateDispatcherWorkers(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
