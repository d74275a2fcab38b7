// Package workers runs the background jobs of a process: the device agent's
// outbox flush is the main one. A [Worker] blocks until its context ends.
package workers

import "context"

// Worker is a long-running background job.
//
// Run blocks until ctx is cancelled or the job fails for good. A nil error
// means the worker stopped because ctx ended.
//
// Example implementation:
//
//	type flusher struct{}
//
//	func (f *flusher) Run(ctx context.Context) error {
//	    <-ctx.Done()
//	    return nil
//	}
type Worker interface {
	Run(ctx context.Context) error
}

// Job is one unit of periodic work.
type Job func(ctx context.Context) error
