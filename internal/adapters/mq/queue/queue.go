// Package queue carries save submissions from editing sessions to the
// dispatcher workers that hand them to the store.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Submission is one save request. Exactly one of Create and Update is set;
// EvaluationID is required with Update. The worker sends exactly one Result
// on Reply, which must have room for it.
type Submission struct {
	SessionID    string
	EvaluationID string
	Create       *payload.CreateRequest
	Update       *payload.UpdateRequest
	Reply        chan<- Result
}

// Mode names the kind of save for logs and metrics.
func (s *Submission) Mode() string {
	if s.Create != nil {
		return "create"
	}
	return "update"
}

// Respond delivers r on Reply without blocking. It reports false when the
// reply was dropped because nobody can receive it.
func (s *Submission) Respond(r Result) bool {
	if s.Reply == nil {
		return false
	}
	select {
	case s.Reply <- r:
		return true
	default:
		return false
	}
}

// Result is the outcome of a Submission. EvaluationIDs is set by creates.
type Result struct {
	EvaluationIDs []string
	Err           error
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a submission. It fails with ErrFull when the queue is at
	// capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, s Submission) error

	// Dequeue returns a channel that receives submissions as they become
	// available. The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Submission

	// Len returns the current number of queued submissions.
	Len() int

	// Close stops accepting submissions.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Submission
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Submission, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a submission to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Submission) error { //nolint:gocritic // hugeParam: Submission is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.items <- s:
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordQueueRejected("full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive submissions as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Submission {
	out := make(chan Submission)
	go func() {
		defer close(out)
		for s := range q.items {
			select {
			case out <- s:
				metrics.UpdateQueueSize(len(q.items))
			case <-ctx.Done():
				s.Respond(Result{Err: fmt.Errorf("dequeue: %w", ctx.Err())})
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued submissions.
func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

// Close stops accepting submissions. Submissions already queued are still
// delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
