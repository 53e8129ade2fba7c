// Package queue implements a durable job queue on top of the jobs table.
//
// Producers call Queue.Enqueue, which persists a pending job and returns
// without waiting for execution. A Worker (in the worker process, or inline
// in the API process) claims due jobs, dispatches them to the Handler
// registered for their kind, and records the outcome. A Reaper periodically
// returns jobs abandoned in the processing state to pending, which gives
// at-least-once execution when a worker dies mid-job.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// Handler executes one job. A returned error marks the job failed.
type Handler interface {
	Handle(ctx context.Context, job *domain.Job) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, job *domain.Job) error

// Handle calls f(ctx, job).
func (f HandlerFunc) Handle(ctx context.Context, job *domain.Job) error { return f(ctx, job) }

// Queue persists jobs for later execution.
type Queue struct {
	DB    *gorm.DB
	Clock clock.Clock
}

// New returns a Queue writing to db. A nil clk uses the system clock.
func New(db *gorm.DB, clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.System{}
	}
	return &Queue{DB: db, Clock: clk}
}

// Enqueue JSON-encodes payload and records a pending job of kind that is due
// immediately.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) (*domain.Job, error) {
	if kind == "" {
		return nil, fmt.Errorf("queue: empty job kind")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("queue: encode %s payload: %w", kind, err)
	}
	return repo.EnqueueJob(ctx, q.DB, kind, string(raw), q.Clock.Now())
}

// Decode unmarshals the job payload into v.
func Decode(job *domain.Job, v any) error {
	if err := json.Unmarshal([]byte(job.Payload), v); err != nil {
		return fmt.Errorf("queue: decode %s payload: %w", job.Kind, err)
	}
	return nil
}
