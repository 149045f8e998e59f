// Package worker provides a polling worker pool that executes queued
// generation jobs through the session manager.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/inkwell-ai/inkwell/generate"
	"github.com/inkwell-ai/inkwell/provider"
	"github.com/inkwell-ai/inkwell/queue"
	"github.com/inkwell-ai/inkwell/session"
)

// Worker polls jobs from a queue and runs them as generation sessions.
type Worker struct {
	id            string
	queue         queue.Queue
	queueName     string
	manager       *session.Manager
	client        *generate.Client
	pollInterval  time.Duration
	maxConcurrent int
	maxDeliveries int
	stopCh        chan struct{}
	wg            sync.WaitGroup
	running       bool
	mu            sync.Mutex
}

// Config holds worker configuration
type Config struct {
	ID            string
	Queue         queue.Queue
	QueueName     string
	Manager       *session.Manager
	Client        *generate.Client
	PollInterval  time.Duration
	MaxConcurrent int
	// MaxDeliveries bounds redelivery of a failing job before it is dropped.
	MaxDeliveries int
}

// DefaultConfig returns a default worker configuration
func DefaultConfig() Config {
	return Config{
		ID:            fmt.Sprintf("worker-%d", time.Now().UnixNano()),
		PollInterval:  time.Second,
		MaxConcurrent: 5,
		MaxDeliveries: 3,
	}
}

// New creates a new worker
func New(cfg Config) (*Worker, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if cfg.Manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("generation client is required")
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "default"
	}
	if cfg.ID == "" {
		cfg.ID = DefaultConfig().ID
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.MaxDeliveries == 0 {
		cfg.MaxDeliveries = DefaultConfig().MaxDeliveries
	}

	return &Worker{
		id:            cfg.ID,
		queue:         cfg.Queue,
		queueName:     cfg.QueueName,
		manager:       cfg.Manager,
		client:        cfg.Client,
		pollInterval:  cfg.PollInterval,
		maxConcurrent: cfg.MaxConcurrent,
		maxDeliveries: cfg.MaxDeliveries,
		stopCh:        make(chan struct{}),
		running:       false,
	}, nil
}

// Start begins polling for and executing jobs
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker already running")
	}
	w.running = true
	w.mu.Unlock()

	log.Printf("[Worker %s] Starting worker on queue %s with %d max concurrent jobs",
		w.id, w.queueName, w.maxConcurrent)

	for i := 0; i < w.maxConcurrent; i++ {
		w.wg.Add(1)
		go w.pollLoop(ctx, i)
	}

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	log.Printf("[Worker %s] Stopping worker...", w.id)

	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[Worker %s] Worker stopped gracefully", w.id)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker stop timeout: %w", ctx.Err())
	}
}

// pollLoop continuously polls for jobs
func (w *Worker) pollLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	log.Printf("[Worker %s-%d] Poll loop started", w.id, workerNum)

	for {
		select {
		case <-w.stopCh:
			log.Printf("[Worker %s-%d] Poll loop stopping", w.id, workerNum)
			return
		case <-ctx.Done():
			log.Printf("[Worker %s-%d] Context canceled", w.id, workerNum)
			return
		default:
			w.pollOnce(ctx, workerNum)
		}
	}
}

// pollOnce polls for a single job and executes it
func (w *Worker) pollOnce(ctx context.Context, workerNum int) {
	// Poll with timeout to allow checking stop signal
	job, err := w.queue.DequeueWithTimeout(ctx, w.queueName, w.pollInterval)
	if err != nil {
		// Timeout or context canceled - this is normal
		return
	}

	if job == nil {
		return
	}

	log.Printf("[Worker %s-%d] Received job %s (owner=%q)",
		w.id, workerNum, job.ID, job.OwnerID)

	result := w.executeJob(ctx, job)

	if result.Success {
		if err := w.queue.Ack(ctx, w.queueName, job.ID); err != nil {
			log.Printf("[Worker %s-%d] Failed to ack job %s: %v",
				w.id, workerNum, job.ID, err)
		}
	} else {
		requeue := job.Attempts < w.maxDeliveries
		if err := w.queue.Nack(ctx, w.queueName, job.ID, requeue); err != nil {
			log.Printf("[Worker %s-%d] Failed to nack job %s: %v",
				w.id, workerNum, job.ID, err)
		}
	}
}

// executeJob runs a single generation job to a terminal session state.
func (w *Worker) executeJob(ctx context.Context, job *queue.Job) *queue.JobResult {
	startTime := time.Now()

	result := &queue.JobResult{
		JobID:   job.ID,
		Success: false,
	}

	req := &provider.Request{
		Prompt:       job.Prompt,
		SystemPrompt: job.SystemPrompt,
		Model:        job.Model,
	}

	sess, err := w.manager.Submit(ctx, w.client.Call(req, job.OwnerID), session.SubmitOptions{
		OwnerID: job.OwnerID,
	})
	if err != nil {
		result.Error = fmt.Sprintf("submit failed: %v", err)
		result.Duration = time.Since(startTime)
		return result
	}
	result.SessionID = sess.ID()

	select {
	case <-sess.Done():
	case <-ctx.Done():
		w.manager.Cancel(sess.ID())
		<-sess.Done()
	}

	gen, genErr := sess.Result()
	if genErr != nil {
		result.Error = genErr.Error()
	} else if gen != nil {
		result.Success = true
		result.Chapters = gen.Chapters
	}
	result.Duration = time.Since(startTime)

	log.Printf("[Worker %s] Job %s completed: success=%v, duration=%v",
		w.id, job.ID, result.Success, result.Duration)

	return result
}
