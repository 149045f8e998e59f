// Package queue provides generation job queue interfaces and implementations
// for feeding batch work to workers.
package queue

import (
	"context"
	"time"
)

// Job represents one queued generation request.
type Job struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id,omitempty"`
	Prompt       string         `json:"prompt"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
	Model        string         `json:"model,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	EnqueueTime  time.Time      `json:"enqueue_time"`
	Attempts     int            `json:"attempts"`
}

// JobResult represents the result of executing a job.
type JobResult struct {
	JobID     string        `json:"job_id"`
	SessionID string        `json:"session_id,omitempty"`
	Success   bool          `json:"success"`
	Chapters  string        `json:"chapters,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Queue defines the interface for job distribution
type Queue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, queueName string, job *Job) error

	// Dequeue retrieves a job from the queue (blocking)
	Dequeue(ctx context.Context, queueName string) (*Job, error)

	// DequeueWithTimeout retrieves a job with a timeout
	DequeueWithTimeout(ctx context.Context, queueName string, timeout time.Duration) (*Job, error)

	// Ack acknowledges successful job completion
	Ack(ctx context.Context, queueName string, jobID string) error

	// Nack indicates job failure and potentially requeues
	Nack(ctx context.Context, queueName string, jobID string, requeue bool) error

	// Len returns the number of jobs in the queue
	Len(ctx context.Context, queueName string) (int, error)

	// Close shuts down the queue
	Close() error
}
