package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// WorkerConfig tunes the polling loop.
type WorkerConfig struct {
	// PollInterval is the delay between batches.
	PollInterval time.Duration
	// BatchSize caps how many jobs are claimed per tick.
	BatchSize int
	// JobTimeout bounds a single handler invocation.
	JobTimeout time.Duration
}

// DefaultWorkerConfig returns the defaults used when config values are unset.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: time.Second,
		BatchSize:    10,
		JobTimeout:   30 * time.Second,
	}
}

// Worker polls the jobs table and executes due jobs one at a time.
type Worker struct {
	db     *gorm.DB
	clock  clock.Clock
	config WorkerConfig
	logger zerolog.Logger

	hmu      sync.RWMutex
	handlers map[string]Handler

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewWorker builds a Worker. Zero config fields fall back to
// DefaultWorkerConfig and a nil clk uses the system clock.
func NewWorker(db *gorm.DB, clk clock.Clock, config WorkerConfig) *Worker {
	def := DefaultWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = def.JobTimeout
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Worker{
		db:       db,
		clock:    clk,
		config:   config,
		logger:   log.With().Str("component", "worker").Logger(),
		handlers: make(map[string]Handler),
		stopChan: make(chan struct{}),
	}
}

// Register binds h to jobs of kind, replacing any previous handler.
func (w *Worker) Register(kind string, h Handler) {
	w.hmu.Lock()
	defer w.hmu.Unlock()
	w.handlers[kind] = h
}

func (w *Worker) handler(kind string) (Handler, bool) {
	w.hmu.RLock()
	defer w.hmu.RUnlock()
	h, ok := w.handlers[kind]
	return h, ok
}

// Start begins the polling loop in a goroutine. Calling Start on a running
// worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("batch_size", w.config.BatchSize).
		Msg("job worker started")
	return nil
}

// Stop ends the polling loop and waits for the in-flight batch to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info().Msg("job worker stopped")
}

// IsRunning reports whether the polling loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if _, err := w.processBatch(ctx); err != nil {
				w.logger.Error().Err(err).Msg("failed to process job batch")
			}
		}
	}
}

// ProcessOnce runs a single batch synchronously and reports how many jobs
// were executed.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	return w.processBatch(ctx)
}

func (w *Worker) processBatch(ctx context.Context) (int, error) {
	n := 0
	for n < w.config.BatchSize {
		if ctx.Err() != nil {
			return n, nil
		}
		job, err := repo.ClaimNextJob(ctx, w.db, w.clock.Now())
		if errors.Is(err, repo.ErrNotFound) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		w.execute(ctx, job)
		n++
	}
	return n, nil
}

// execute runs the handler for a claimed job and records the outcome. The
// job row is always moved out of processing, even when the handler panics.
func (w *Worker) execute(ctx context.Context, job *domain.Job) {
	tr := otel.Tracer("queue/Worker")
	ctx, span := tr.Start(ctx, "Execute",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.kind", job.Kind),
			attribute.Int("job.attempts", job.Attempts),
		),
	)
	defer span.End()

	start := time.Now()
	err := w.invoke(ctx, job)
	jobDuration.WithLabelValues(job.Kind).Observe(time.Since(start).Seconds())

	lg := w.logger.With().Str("job_id", job.ID).Str("kind", job.Kind).Int("attempts", job.Attempts).Logger()
	finishedAt := w.clock.Now()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobsProcessed.WithLabelValues(job.Kind, string(domain.JobFailed)).Inc()
		lg.Warn().Err(err).Msg("job failed")
		if markErr := repo.FailJob(context.WithoutCancel(ctx), w.db, job.ID, err.Error(), finishedAt); markErr != nil {
			lg.Error().Err(markErr).Msg("failed to mark job failed")
		}
		return
	}

	jobsProcessed.WithLabelValues(job.Kind, string(domain.JobCompleted)).Inc()
	lg.Debug().Msg("job completed")
	if markErr := repo.CompleteJob(context.WithoutCancel(ctx), w.db, job.ID, finishedAt); markErr != nil {
		lg.Error().Err(markErr).Msg("failed to mark job completed")
	}
}

func (w *Worker) invoke(ctx context.Context, job *domain.Job) (err error) {
	h, ok := w.handler(job.Kind)
	if !ok {
		return fmt.Errorf("no handler registered for kind %q", job.Kind)
	}

	jctx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h.Handle(jctx, job)
}
