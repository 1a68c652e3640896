// Package notify signals an external task-execution facility that a job
// has been submitted. Notification is best effort: the job is already
// durably enqueued before a notification is attempted, so pipeline progress
// never depends on it succeeding.
package notify

import "context"

// Notifier announces a newly created job to an external consumer
type Notifier interface {
	JobCreated(ctx context.Context, jobID string) error
}

// Noop is a Notifier that does nothing
type Noop struct{}

// JobCreated implements Notifier
func (Noop) JobCreated(context.Context, string) error { return nil }
