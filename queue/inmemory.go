package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pendingRecord tracks an inflight job and its visibility deadline.
type pendingRecord struct {
	job      *Job
	deadline time.Time
}

// Hooks provides optional callbacks for queue operations. All are optional no-ops by default.
type Hooks struct {
	OnEnqueue   func(queueName string, job *Job)
	OnDequeue   func(queueName string, job *Job)
	OnAck       func(queueName string, job *Job)
	OnNack      func(queueName string, job *Job, requeue bool)
	OnRedeliver func(queueName string, job *Job)
}

// Options configures the in-memory queue behavior.
type Options struct {
	// VisibilityTimeout controls how long a dequeued job stays invisible
	// before it is eligible for redelivery if not Ack'ed.
	VisibilityTimeout time.Duration
	// EnableDLQ routes Nack'ed (requeue=false) jobs to an in-memory DLQ.
	EnableDLQ bool
	// Hooks are optional callbacks for instrumentation; all nil means no-op.
	Hooks Hooks
}

// InMemoryQueue is a channel-based in-memory queue implementation
type InMemoryQueue struct {
	mu      sync.RWMutex
	queues  map[string]chan *Job
	pending map[string]map[string]*pendingRecord // queueName -> jobID -> record
	dlq     map[string][]*Job                    // optional DLQ per queue
	closed  bool
	opts    Options
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewInMemoryQueue creates a new in-memory queue
func NewInMemoryQueue() *InMemoryQueue {
	return NewInMemoryQueueWithOptions(Options{
		VisibilityTimeout: 30 * time.Second,
		EnableDLQ:         false,
	})
}

// NewInMemoryQueueWithOptions creates a new in-memory queue with options.
func NewInMemoryQueueWithOptions(opts Options) *InMemoryQueue {
	q := &InMemoryQueue{
		queues:  make(map[string]chan *Job),
		pending: make(map[string]map[string]*pendingRecord),
		dlq:     make(map[string][]*Job),
		closed:  false,
		opts:    opts,
		stopCh:  make(chan struct{}),
	}
	q.wg.Add(1)
	go q.scanLoop()
	return q
}

// getOrCreateQueue returns an existing queue channel or creates a new one
func (q *InMemoryQueue) getOrCreateQueue(queueName string) chan *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	ch, exists := q.queues[queueName]
	if !exists {
		// Create buffered channel to prevent blocking on enqueue
		ch = make(chan *Job, 100)
		q.queues[queueName] = ch
		q.pending[queueName] = make(map[string]*pendingRecord)
		if _, ok := q.dlq[queueName]; !ok {
			q.dlq[queueName] = make([]*Job, 0)
		}
	}

	return ch
}

// Enqueue implements Queue
func (q *InMemoryQueue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	ch := q.getOrCreateQueue(queueName)
	if ch == nil {
		return fmt.Errorf("queue is closed")
	}

	select {
	case ch <- job:
		if q.opts.Hooks.OnEnqueue != nil {
			q.opts.Hooks.OnEnqueue(queueName, job)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue implements Queue
func (q *InMemoryQueue) Dequeue(ctx context.Context, queueName string) (*Job, error) {
	return q.DequeueWithTimeout(ctx, queueName, 0)
}

// DequeueWithTimeout implements Queue
func (q *InMemoryQueue) DequeueWithTimeout(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	ch := q.getOrCreateQueue(queueName)
	if ch == nil {
		return nil, fmt.Errorf("queue is closed")
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case job := <-ch:
		if job != nil {
			job.Attempts++
			vis := q.opts.VisibilityTimeout
			if vis <= 0 {
				vis = 30 * time.Second
			}
			q.addPending(queueName, job, time.Now().Add(vis))
			if q.opts.Hooks.OnDequeue != nil {
				q.opts.Hooks.OnDequeue(queueName, job)
			}
		}
		return job, nil
	case <-timeoutCh:
		return nil, fmt.Errorf("dequeue timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// addPending adds a job to the inflight/pending map with a visibility deadline.
func (q *InMemoryQueue) addPending(queueName string, job *Job, deadline time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pending, exists := q.pending[queueName]; exists {
		pending[job.ID] = &pendingRecord{job: job, deadline: deadline}
	}
}

// removePending removes a job from the pending map
func (q *InMemoryQueue) removePending(queueName string, jobID string) *pendingRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pending, exists := q.pending[queueName]; exists {
		rec := pending[jobID]
		delete(pending, jobID)
		return rec
	}

	return nil
}

// Ack implements Queue
func (q *InMemoryQueue) Ack(ctx context.Context, queueName string, jobID string) error {
	rec := q.removePending(queueName, jobID)
	if rec == nil {
		return fmt.Errorf("job %s not found in pending", jobID)
	}
	if q.opts.Hooks.OnAck != nil {
		q.opts.Hooks.OnAck(queueName, rec.job)
	}
	return nil
}

// Nack implements Queue
func (q *InMemoryQueue) Nack(ctx context.Context, queueName string, jobID string, requeue bool) error {
	rec := q.removePending(queueName, jobID)
	if rec == nil {
		return fmt.Errorf("job %s not found in pending", jobID)
	}

	if requeue {
		if q.opts.Hooks.OnNack != nil {
			q.opts.Hooks.OnNack(queueName, rec.job, true)
		}
		return q.Enqueue(ctx, queueName, rec.job)
	}

	if q.opts.Hooks.OnNack != nil {
		q.opts.Hooks.OnNack(queueName, rec.job, false)
	}
	if q.opts.EnableDLQ {
		q.mu.Lock()
		q.dlq[queueName] = append(q.dlq[queueName], rec.job)
		q.mu.Unlock()
	}
	return nil
}

// Len implements Queue.
// Len returns the number of READY (not inflight) jobs for the named queue.
// Inflight jobs (dequeued but not yet Ack'ed) are NOT included.
func (q *InMemoryQueue) Len(ctx context.Context, queueName string) (int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ch, exists := q.queues[queueName]
	if !exists {
		return 0, nil
	}

	return len(ch), nil
}

// DeadLetters returns a copy of the DLQ for the named queue.
func (q *InMemoryQueue) DeadLetters(queueName string) []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]*Job, len(q.dlq[queueName]))
	copy(out, q.dlq[queueName])
	return out
}

// Close implements Queue
func (q *InMemoryQueue) Close() error {
	// Stop scanner
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()

	q.mu.Lock()
	for _, ch := range q.queues {
		close(ch)
	}

	q.queues = make(map[string]chan *Job)
	q.pending = make(map[string]map[string]*pendingRecord)
	q.dlq = make(map[string][]*Job)
	q.mu.Unlock()

	return nil
}

// scanLoop periodically scans inflight jobs and redelivers those past visibility deadline.
func (q *InMemoryQueue) scanLoop() {
	defer q.wg.Done()
	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case now := <-t.C:
			q.scanOnce(now)
		}
	}
}

func (q *InMemoryQueue) scanOnce(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for queueName, inflight := range q.pending {
		ch := q.queues[queueName]
		for id, rec := range inflight {
			if now.After(rec.deadline) {
				// Redeliver exactly once per expiry: move back to ready and remove from inflight
				select {
				case ch <- rec.job:
					if q.opts.Hooks.OnRedeliver != nil {
						q.opts.Hooks.OnRedeliver(queueName, rec.job)
					}
					delete(inflight, id)
				default:
					// Queue is full; push deadline forward a bit and try again later.
					rec.deadline = now.Add(200 * time.Millisecond)
				}
			}
		}
	}
}
